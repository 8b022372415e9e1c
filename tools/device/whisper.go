package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bt-bridge/vision-assist/speech"
	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"
)

const whisperSampleRate = 16000

// WhisperTranscriber runs a local whisper.cpp model. The model is not safe
// for concurrent use, so clips are transcribed one at a time.
type WhisperTranscriber struct {
	logger   shared.LoggerAdapter
	model    whisper.Model
	language string

	mu sync.Mutex
}

var _ speech.Transcriber = (*WhisperTranscriber)(nil)

func NewWhisperTranscriber(logger shared.LoggerAdapter, modelPath, language string) (*WhisperTranscriber, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading whisper model: %w", err)
	}
	return &WhisperTranscriber{
		logger:   logger.With(zap.String("component", "whisper")),
		model:    model,
		language: language,
	}, nil
}

type transcript struct {
	text string
	err  error
}

// Transcribe returns once the model is done or ctx ends. A cancelled
// transcription keeps running in the background until the model returns.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, clip speech.Clip) (string, error) {
	if len(clip.Samples) == 0 {
		return "", shared.ErrNoSpeech
	}
	if clip.SampleRate != whisperSampleRate {
		return "", fmt.Errorf("whisper needs %d Hz audio, got %d Hz", whisperSampleRate, clip.SampleRate)
	}
	resC := make(chan transcript, 1)
	go func() {
		text, err := w.process(clip.Float32())
		resC <- transcript{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resC:
		return res.text, res.err
	}
}

func (w *WhisperTranscriber) process(data []float32) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("creating whisper context: %w", err)
	}
	if w.language != "" {
		if err := wctx.SetLanguage(w.language); err != nil {
			return "", fmt.Errorf("setting language: %w", err)
		}
	}
	if err := wctx.Process(data, nil); err != nil {
		return "", fmt.Errorf("processing audio: %w", err)
	}

	var parts []string
	seen := make(map[string]bool)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(segment.Text)
		// [BLANK_AUDIO], (music) and the like are annotations, not speech
		if text == "" || isAnnotation(text) || seen[text] {
			continue
		}
		seen[text] = true
		parts = append(parts, text)
	}
	w.logger.Debug("whisper segments", zap.Int("count", len(parts)))
	return strings.Join(parts, " "), nil
}

func isAnnotation(text string) bool {
	return strings.HasPrefix(text, "[") || strings.HasPrefix(text, "(") ||
		strings.HasSuffix(text, "]") || strings.HasSuffix(text, ")")
}

func (w *WhisperTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.model.Close()
}
