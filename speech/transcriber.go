package speech

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bt-bridge/vision-assist/tools"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type TranscriberConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Prompt   string
}

func TranscriberConfigFrom(cfg *shared.Config) TranscriberConfig {
	return TranscriberConfig{
		BaseURL:  cfg.OpenAI.BaseURL,
		APIKey:   cfg.OpenAI.APIKey,
		Model:    cfg.Listen.Model,
		Language: cfg.Listen.Language,
		Prompt:   cfg.Listen.Prompt,
	}
}

// OpenAITranscriber uploads each clip as a WAV file to the transcription
// API. Clips are encoded on an in-memory filesystem.
type OpenAITranscriber struct {
	logger shared.LoggerAdapter
	client openai.Client
	fs     afero.Fs
	cfg    TranscriberConfig
	seq    atomic.Uint64
}

var _ Transcriber = (*OpenAITranscriber)(nil)

func NewOpenAITranscriber(logger shared.LoggerAdapter, cfg TranscriberConfig, opts ...option.RequestOption) (*OpenAITranscriber, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if cfg.APIKey == "" {
		return nil, shared.ErrNoAPIKey
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	}, opts...)
	return &OpenAITranscriber{
		logger: logger.With(zap.String("component", "transcriber")),
		client: openai.NewClient(opts...),
		fs:     afero.NewMemMapFs(),
		cfg:    cfg,
	}, nil
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, clip Clip) (string, error) {
	if len(clip.Samples) == 0 {
		return "", shared.ErrNoSpeech
	}
	name := fmt.Sprintf("command-%d.wav", t.seq.Add(1))
	data, err := tools.EncodeWAV(t.fs, name, clip.Samples, clip.SampleRate)
	if err != nil {
		return "", err
	}
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(data), name, "audio/wav"),
		Model: openai.AudioModel(t.cfg.Model),
	}
	if t.cfg.Language != "" {
		params.Language = param.NewOpt(t.cfg.Language)
	}
	if t.cfg.Prompt != "" {
		params.Prompt = param.NewOpt(t.cfg.Prompt)
	}
	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	t.logger.Debug("transcription received", zap.Int("wav_bytes", len(data)), zap.String("text", resp.Text))
	return resp.Text, nil
}
