package speech

import (
	"context"
	"fmt"
	"strings"

	assist "github.com/bt-bridge/vision-assist"
	"github.com/bt-bridge/vision-assist/shared"
	"go.uber.org/zap"
)

// Ear hears one command: it records an utterance and transcribes it.
type Ear struct {
	logger shared.LoggerAdapter
	mic    Microphone
	stt    Transcriber
}

var _ assist.SpeechInput = (*Ear)(nil)

func NewEar(logger shared.LoggerAdapter, mic Microphone, stt Transcriber) (*Ear, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	return &Ear{
		logger: logger.With(zap.String("component", "ear")),
		mic:    mic,
		stt:    stt,
	}, nil
}

func (e *Ear) Available() bool {
	return e.mic != nil && e.stt != nil && e.mic.Available()
}

func (e *Ear) Listen(ctx context.Context) (string, error) {
	if !e.Available() {
		return "", fmt.Errorf("%w: speech input", shared.ErrCapabilityUnavailable)
	}
	clip, err := e.mic.Record(ctx)
	if err != nil {
		return "", fmt.Errorf("recording: %w", err)
	}
	e.logger.Debug("recorded utterance", zap.Duration("duration", clip.Duration()))
	text, err := e.stt.Transcribe(ctx, clip)
	if err != nil {
		return "", fmt.Errorf("transcribing: %w", err)
	}
	text = strings.TrimSpace(text)
	e.logger.Info("transcribed", zap.String("text", text))
	return text, nil
}
