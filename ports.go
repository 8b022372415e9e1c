package assist

import "context"

// SpeechOutput speaks text on the host.
type SpeechOutput interface {
	// Available reports whether the host can speak at all.
	Available() bool
	// Speak blocks until the utterance has been played or ctx is cancelled.
	Speak(ctx context.Context, text string) error
}

// SpeechInput recognises one spoken command per call.
type SpeechInput interface {
	Available() bool
	// Listen blocks until one utterance has been recognised, recognition
	// failed, or ctx is done.
	Listen(ctx context.Context) (string, error)
}

// ScanProducer returns the objects currently in front of the user. Real
// perception pipelines report shared.ErrSensorUnavailable or
// shared.ErrScanTimeout on failure.
type ScanProducer interface {
	ProduceScan(ctx context.Context) (ObjectSet, error)
}

// Announcer is the synchronous, visible stand-in for speech output.
type Announcer interface {
	Announce(text string)
}

type nopAnnouncer struct{}

func (nopAnnouncer) Announce(string) {}

type unavailableOutput struct{}

func (unavailableOutput) Available() bool { return false }
func (unavailableOutput) Speak(ctx context.Context, _ string) error { return ctx.Err() }

type unavailableInput struct{}

func (unavailableInput) Available() bool { return false }
func (unavailableInput) Listen(ctx context.Context) (string, error) { return "", ctx.Err() }
