// Package speech provides the speech capabilities behind the controller's
// ports: synthesis and playback for output, recording and transcription for
// input, and a printed announcer for hosts without audio.
package speech

import (
	"context"
	"time"

	"github.com/bt-bridge/vision-assist/tools"
	"github.com/go-audio/audio"
)

// PCM is signed 16-bit little endian interleaved audio.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

func (p PCM) Duration() time.Duration {
	return tools.FrameDuration(len(p.Data)/2, p.SampleRate, p.Channels)
}

// Clip is one recorded mono utterance.
type Clip struct {
	Samples    []int16
	SampleRate int
}

func (c Clip) Duration() time.Duration {
	return tools.FrameDuration(len(c.Samples), c.SampleRate, 1)
}

func (c Clip) Buffer() *audio.IntBuffer {
	return tools.IntBuffer(c.Samples, c.SampleRate)
}

// Float32 returns the samples scaled to [-1, 1].
func (c Clip) Float32() []float32 {
	return c.Buffer().AsFloat32Buffer().Data
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (PCM, error)
}

// Player plays PCM and blocks until playback ends or ctx is done.
type Player interface {
	Play(ctx context.Context, pcm PCM) error
}

// Microphone records a single utterance.
type Microphone interface {
	Available() bool
	Record(ctx context.Context) (Clip, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, clip Clip) (string, error)
}
