package assist

import (
	"context"
	"sync"
)

// outputPort serialises a SpeechOutput: starting an utterance cancels the one
// in progress and waits for it to release the device before speaking.
type outputPort struct {
	out  SpeechOutput
	post func(any)

	mu     sync.Mutex
	nextID uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func newOutputPort(out SpeechOutput, post func(any)) *outputPort {
	return &outputPort{out: out, post: post}
}

func (p *outputPort) available() bool {
	return p.out.Available()
}

// speak starts text and returns its utterance ID. Start and end are reported
// through post as speakStartMsg and speakEndMsg.
func (p *outputPort) speak(ctx context.Context, text string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	prev := p.done
	p.nextID++
	id := p.nextID
	uctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	go func() {
		defer close(done)
		defer cancel()
		if prev != nil {
			<-prev
		}
		if err := uctx.Err(); err != nil {
			p.post(speakEndMsg{id: id, err: err})
			return
		}
		p.post(speakStartMsg{id: id})
		err := p.out.Speak(uctx, text)
		p.post(speakEndMsg{id: id, err: err})
	}()
	return id
}

func (p *outputPort) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// wait blocks until the most recent utterance goroutine has returned.
func (p *outputPort) wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
