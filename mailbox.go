package assist

import "sync"

// mailbox is an unbounded FIFO feeding the controller loop. Posting never
// blocks, so capability callbacks may post from the loop goroutine itself.
type mailbox struct {
	mu     sync.Mutex
	items  []any
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) post(msg any) {
	m.mu.Lock()
	m.items = append(m.items, msg)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

type triggerMsg struct {
	trigger Trigger
	text    string
	// internal marks an utterance dispatched after a successful listen.
	internal bool
}

type speakStartMsg struct {
	id uint64
}

type speakEndMsg struct {
	id  uint64
	err error
}

type scanDoneMsg struct {
	set ObjectSet
	err error
}

type listenDoneMsg struct {
	text string
	err  error
}
