package tools

import (
	"io"
	"sync"
)

// AudioBuffer is a bounded byte FIFO feeding an audio player. Writes beyond
// capacity drop the oldest bytes. Read blocks until data arrives or the
// buffer is closed, and returns io.EOF once a closed buffer is drained.
type AudioBuffer struct {
	buffer []byte
	mu     sync.Mutex
	cond   *sync.Cond
	size   int
	cap    int
	closed bool
}

func NewAudioBuffer(fixedCap int) *AudioBuffer {
	ab := &AudioBuffer{
		buffer: make([]byte, 0, fixedCap),
		size:   0,
		cap:    fixedCap,
	}
	ab.cond = sync.NewCond(&ab.mu)
	return ab
}

func (ab *AudioBuffer) Write(data []byte) (dropped int) {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	if ab.closed {
		return len(data)
	}
	if len(data) > ab.cap {
		dropped = len(data) - ab.cap
		data = data[dropped:]
	}
	if ab.size+len(data) > ab.cap {
		drop := ab.size + len(data) - ab.cap
		ab.buffer = ab.buffer[drop:]
		ab.size -= drop
		dropped += drop
	}
	ab.buffer = append(ab.buffer, data...)
	ab.size += len(data)
	ab.cond.Signal()
	return dropped
}

func (ab *AudioBuffer) Read(p []byte) (n int, err error) {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	for ab.size == 0 && !ab.closed {
		ab.cond.Wait()
	}
	if ab.size == 0 {
		return 0, io.EOF
	}
	n = copy(p, ab.buffer)
	ab.buffer = ab.buffer[n:]
	ab.size -= n
	return n, nil
}

// Len returns the number of buffered bytes.
func (ab *AudioBuffer) Len() int {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return ab.size
}

// Close marks the end of the stream. Buffered bytes remain readable.
func (ab *AudioBuffer) Close() error {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	ab.closed = true
	ab.cond.Broadcast()
	return nil
}
