package tools

// Ring keeps the most recent samples so audio captured just before speech
// onset is not lost.
type Ring struct {
	buffer []int16
	head   int
	filled int
}

func NewRing(size int) *Ring {
	return &Ring{buffer: make([]int16, max(size, 0))}
}

func (r *Ring) Add(samples []int16) {
	if len(r.buffer) == 0 {
		return
	}
	for _, s := range samples {
		r.buffer[r.head] = s
		r.head = (r.head + 1) % len(r.buffer)
	}
	r.filled = min(r.filled+len(samples), len(r.buffer))
}

// Read returns the buffered samples, oldest first.
func (r *Ring) Read() []int16 {
	samples := make([]int16, r.filled)
	start := r.head - r.filled
	if start < 0 {
		start += len(r.buffer)
	}
	for i := range r.filled {
		samples[i] = r.buffer[(start+i)%len(r.buffer)]
	}
	return samples
}

func (r *Ring) Len() int { return r.filled }

func (r *Ring) Clear() {
	for i := range r.buffer {
		r.buffer[i] = 0
	}
	r.head, r.filled = 0, 0
}
