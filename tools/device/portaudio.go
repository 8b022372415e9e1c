package device

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bt-bridge/vision-assist/speech"
	"github.com/bt-bridge/vision-assist/tools"
	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

// PortAudioMicrophone records one command from the default input device.
type PortAudioMicrophone struct {
	logger shared.LoggerAdapter
	cfg    tools.SegmentConfig

	mu sync.Mutex
}

var _ speech.Microphone = (*PortAudioMicrophone)(nil)

// NewPortAudioMicrophone initializes PortAudio. Close terminates it.
func NewPortAudioMicrophone(logger shared.LoggerAdapter, cfg tools.SegmentConfig) (*PortAudioMicrophone, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	return &PortAudioMicrophone{
		logger: logger.With(zap.String("component", "portaudio")),
		cfg:    cfg,
	}, nil
}

func (m *PortAudioMicrophone) Available() bool {
	dev, err := portaudio.DefaultInputDevice()
	return err == nil && dev != nil && dev.MaxInputChannels > 0
}

func (m *PortAudioMicrophone) Record(ctx context.Context) (speech.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seg, err := tools.NewSegmenter(m.cfg)
	if err != nil {
		return speech.Clip{}, err
	}
	in := make([]int16, m.cfg.FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.cfg.SampleRate), len(in), in)
	if err != nil {
		return speech.Clip{}, fmt.Errorf("opening input stream: %w", err)
	}
	defer func() { _ = stream.Close() }()
	if err := stream.Start(); err != nil {
		return speech.Clip{}, fmt.Errorf("starting input stream: %w", err)
	}
	defer func() { _ = stream.Stop() }()

	samples, err := tools.Capture(ctx, seg, func() ([]int16, error) {
		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				m.logger.Warn("input overflowed")
				return in, nil
			}
			return nil, err
		}
		return in, nil
	})
	if err != nil {
		return speech.Clip{}, err
	}
	return speech.Clip{Samples: samples, SampleRate: m.cfg.SampleRate}, nil
}

func (m *PortAudioMicrophone) Close() error {
	return portaudio.Terminate()
}
