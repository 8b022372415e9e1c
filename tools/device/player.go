// Package device binds the speech ports to real audio hardware and to a
// local whisper model. Everything here needs cgo and system libraries.
package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bt-bridge/vision-assist/speech"
	"github.com/bt-bridge/vision-assist/tools"
	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"
)

const pollInterval = 10 * time.Millisecond

// OtoPlayer plays PCM on the default output device. Oto allows a single
// context per process, so one player serves every utterance.
type OtoPlayer struct {
	logger     shared.LoggerAdapter
	ctx        *oto.Context
	sampleRate int
	channels   int

	mu sync.Mutex
}

var _ speech.Player = (*OtoPlayer)(nil)

func NewOtoPlayer(logger shared.LoggerAdapter, sampleRate, channels int, bufferMs int) (*OtoPlayer, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   shared.Millis(bufferMs),
	})
	if err != nil {
		return nil, fmt.Errorf("creating oto context: %w", err)
	}
	<-ready
	return &OtoPlayer{
		logger:     logger.With(zap.String("component", "player")),
		ctx:        otoCtx,
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

func (p *OtoPlayer) Play(ctx context.Context, pcm speech.PCM) error {
	if pcm.SampleRate != p.sampleRate || pcm.Channels != p.channels {
		return fmt.Errorf("unsupported format %d Hz x%d, player runs at %d Hz x%d",
			pcm.SampleRate, pcm.Channels, p.sampleRate, p.channels)
	}
	if len(pcm.Data) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	buf := tools.NewAudioBuffer(len(pcm.Data))
	buf.Write(pcm.Data)
	_ = buf.Close()

	player := p.ctx.NewPlayer(buf)
	defer func() { _ = player.Close() }()
	player.Play()
	p.logger.Trace("playback started", zap.Duration("duration", pcm.Duration()))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}
