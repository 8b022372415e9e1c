package device

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bt-bridge/vision-assist/speech"
	"github.com/bt-bridge/vision-assist/tools"
	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/mediadevices/pkg/wave"
	"go.uber.org/zap"
)

// MediaDevicesMicrophone records one command through pion/mediadevices.
// A track is opened per recording and closed afterwards.
type MediaDevicesMicrophone struct {
	logger shared.LoggerAdapter
	cfg    tools.SegmentConfig

	mu sync.Mutex
}

var _ speech.Microphone = (*MediaDevicesMicrophone)(nil)

func NewMediaDevicesMicrophone(logger shared.LoggerAdapter, cfg tools.SegmentConfig) (*MediaDevicesMicrophone, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MediaDevicesMicrophone{
		logger: logger.With(zap.String("component", "mediadevices")),
		cfg:    cfg,
	}, nil
}

func (m *MediaDevicesMicrophone) Available() bool {
	for _, d := range mediadevices.EnumerateDevices() {
		if d.Kind == mediadevices.AudioInput {
			return true
		}
	}
	return false
}

func (m *MediaDevicesMicrophone) Record(ctx context.Context) (speech.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seg, err := tools.NewSegmenter(m.cfg)
	if err != nil {
		return speech.Clip{}, err
	}
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {
			c.SampleRate = prop.Int(m.cfg.SampleRate)
			c.ChannelCount = prop.Int(1)
			c.SampleSize = prop.Int(16)
		},
	})
	if err != nil {
		return speech.Clip{}, fmt.Errorf("getting microphone stream: %w", err)
	}
	tracks := stream.GetAudioTracks()
	if len(tracks) == 0 {
		return speech.Clip{}, errors.New("no audio track found in microphone stream")
	}
	track, ok := tracks[0].(*mediadevices.AudioTrack)
	if !ok {
		return speech.Clip{}, fmt.Errorf("unexpected track type %T", tracks[0])
	}
	defer func() { _ = track.Close() }()

	// Read blocks, so a cancelled ctx closes the track to unblock it.
	stop := context.AfterFunc(ctx, func() { _ = track.Close() })
	defer stop()

	reader := track.NewReader(false)
	samples, err := tools.Capture(ctx, seg, func() ([]int16, error) {
		chunk, release, err := reader.Read()
		if err != nil {
			return nil, err
		}
		defer release()
		return m.mono(chunk)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return speech.Clip{}, ctxErr
		}
		return speech.Clip{}, err
	}
	return speech.Clip{Samples: samples, SampleRate: m.cfg.SampleRate}, nil
}

// mono copies chunk out of the reader's buffer as mono 16-bit samples.
func (m *MediaDevicesMicrophone) mono(chunk wave.Audio) ([]int16, error) {
	info := chunk.ChunkInfo()
	if info.SamplingRate != m.cfg.SampleRate {
		return nil, fmt.Errorf("device delivers %d Hz, want %d Hz", info.SamplingRate, m.cfg.SampleRate)
	}
	switch c := chunk.(type) {
	case *wave.Int16Interleaved:
		return append([]int16(nil), tools.Downmix(c.Data, info.Channels)...), nil
	case *wave.Float32Interleaved:
		return tools.Downmix(tools.FloatToInt16(c.Data), info.Channels), nil
	default:
		return nil, fmt.Errorf("unsupported sample format %T", chunk)
	}
}
