package tools

import (
	"errors"
	"time"

	"github.com/bt-bridge/vision-assist/shared"
)

type SegmentState int

const (
	// SegmentWaiting means no speech has been heard yet.
	SegmentWaiting SegmentState = iota
	// SegmentSpeech means speech is being captured.
	SegmentSpeech
	// SegmentDone means the utterance is complete.
	SegmentDone
)

func (s SegmentState) String() string {
	switch s {
	case SegmentWaiting:
		return "waiting"
	case SegmentSpeech:
		return "speech"
	case SegmentDone:
		return "done"
	}
	return "unknown"
}

// SegmentConfig bounds one spoken command.
type SegmentConfig struct {
	SampleRate int
	FrameSize  int
	// MaxDuration caps captured speech.
	MaxDuration time.Duration
	// Silence ends the utterance after speech was heard.
	Silence time.Duration
	// NoSpeechTimeout gives up when nothing was heard.
	NoSpeechTimeout time.Duration
	// PreRoll is kept from before the onset.
	PreRoll   time.Duration
	RMSFloor  float64
	FluxOnset float64
}

func SegmentConfigFrom(cfg shared.ListenConfig) SegmentConfig {
	return SegmentConfig{
		SampleRate:      cfg.SampleRate,
		FrameSize:       cfg.FrameSize,
		MaxDuration:     shared.Millis(cfg.MaxDurationMs),
		Silence:         shared.Millis(cfg.SilenceMs),
		NoSpeechTimeout: shared.Millis(cfg.NoSpeechTimeoutMs),
		PreRoll:         shared.Millis(cfg.PreRollMs),
		RMSFloor:        cfg.RMSFloor,
		FluxOnset:       cfg.FluxOnset,
	}
}

func (c SegmentConfig) Validate() error {
	if c.SampleRate <= 0 || c.FrameSize <= 0 {
		return errors.New("sample rate and frame size must be positive")
	}
	if c.MaxDuration <= 0 || c.Silence <= 0 || c.NoSpeechTimeout <= 0 {
		return errors.New("durations must be positive")
	}
	return nil
}

// Segmenter cuts one utterance out of a stream of mono frames. Onset needs
// both energy above RMSFloor and a flux jump of at least FluxOnset; the
// utterance ends after Silence of low energy or at MaxDuration.
type Segmenter struct {
	cfg       SegmentConfig
	frameDur  time.Duration
	vad       *FluxVAD
	ring      *Ring
	state     SegmentState
	samples   []int16
	waited    time.Duration
	spoken    time.Duration
	silentFor time.Duration
}

func NewSegmenter(cfg SegmentConfig) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{
		cfg:      cfg,
		frameDur: FrameDuration(cfg.FrameSize, cfg.SampleRate, 1),
		vad:      NewFluxVAD(cfg.FrameSize),
		ring:     NewRing(FrameSamples(cfg.PreRoll, cfg.SampleRate, 1)),
	}, nil
}

// Push feeds one frame. It returns shared.ErrNoSpeech when the no-speech
// timeout passes before any onset.
func (s *Segmenter) Push(frame []int16) (SegmentState, error) {
	if s.state == SegmentDone {
		return s.state, nil
	}
	rms := RMS(frame)
	flux := s.vad.Flux(frame)
	voiced := rms >= s.cfg.RMSFloor

	switch s.state {
	case SegmentWaiting:
		if voiced && flux >= s.cfg.FluxOnset {
			s.state = SegmentSpeech
			s.samples = append(s.ring.Read(), frame...)
			s.spoken = s.frameDur
			break
		}
		s.ring.Add(frame)
		s.waited += s.frameDur
		if s.waited >= s.cfg.NoSpeechTimeout {
			s.state = SegmentDone
			return s.state, shared.ErrNoSpeech
		}
	case SegmentSpeech:
		s.samples = append(s.samples, frame...)
		s.spoken += s.frameDur
		if voiced {
			s.silentFor = 0
		} else {
			s.silentFor += s.frameDur
		}
		if s.silentFor >= s.cfg.Silence || s.spoken >= s.cfg.MaxDuration {
			s.state = SegmentDone
		}
	}
	return s.state, nil
}

func (s *Segmenter) State() SegmentState { return s.state }

// Samples returns the captured utterance including pre-roll.
func (s *Segmenter) Samples() []int16 { return s.samples }

func (s *Segmenter) Reset() {
	s.vad.Reset()
	s.ring.Clear()
	s.state = SegmentWaiting
	s.samples = nil
	s.waited, s.spoken, s.silentFor = 0, 0, 0
}
