package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	assist "github.com/bt-bridge/vision-assist"
	"github.com/bt-bridge/vision-assist/shared"
	"go.uber.org/zap"
)

const defaultCacheSize = 32

// Voice speaks by synthesizing text and playing the result. Synthesized
// phrases are cached since the same cues are spoken over and over.
type Voice struct {
	logger shared.LoggerAdapter
	synth  Synthesizer
	player Player

	mu        sync.Mutex
	cache     map[string]PCM
	order     []string
	cacheSize int
}

var _ assist.SpeechOutput = (*Voice)(nil)

func NewVoice(logger shared.LoggerAdapter, synth Synthesizer, player Player) (*Voice, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	return &Voice{
		logger:    logger.With(zap.String("component", "voice")),
		synth:     synth,
		player:    player,
		cache:     make(map[string]PCM),
		cacheSize: defaultCacheSize,
	}, nil
}

func (v *Voice) Available() bool {
	return v.synth != nil && v.player != nil
}

func (v *Voice) Speak(ctx context.Context, text string) error {
	if !v.Available() {
		return fmt.Errorf("%w: speech output", shared.ErrCapabilityUnavailable)
	}
	pcm, err := v.synthesize(ctx, text)
	if err != nil {
		return err
	}
	v.logger.Debug("playing utterance", zap.Int("bytes", len(pcm.Data)), zap.Duration("duration", pcm.Duration()))
	if err := v.player.Play(ctx, pcm); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("playing speech: %w", err)
	}
	return nil
}

func (v *Voice) synthesize(ctx context.Context, text string) (PCM, error) {
	v.mu.Lock()
	pcm, ok := v.cache[text]
	v.mu.Unlock()
	if ok {
		return pcm, nil
	}
	pcm, err := v.synth.Synthesize(ctx, text)
	if err != nil {
		return PCM{}, fmt.Errorf("synthesizing speech: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.cache[text]; !ok {
		if len(v.order) >= v.cacheSize {
			delete(v.cache, v.order[0])
			v.order = v.order[1:]
		}
		v.order = append(v.order, text)
		v.cache[text] = pcm
	}
	return pcm, nil
}
