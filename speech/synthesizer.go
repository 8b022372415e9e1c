package speech

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// SynthesizerConfig targets an OpenAI compatible /audio/speech endpoint.
type SynthesizerConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Voice      string
	Speed      float64
	SampleRate int
}

func SynthesizerConfigFrom(cfg *shared.Config) SynthesizerConfig {
	return SynthesizerConfig{
		BaseURL:    cfg.OpenAI.BaseURL,
		APIKey:     cfg.OpenAI.APIKey,
		Model:      cfg.Speech.Model,
		Voice:      cfg.Speech.Voice,
		Speed:      cfg.Speech.Speed,
		SampleRate: cfg.Speech.SampleRate,
	}
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// HTTPSynthesizer requests raw PCM speech over HTTP.
type HTTPSynthesizer struct {
	logger shared.LoggerAdapter
	client *fasthttp.Client
	url    string
	cfg    SynthesizerConfig
}

var _ Synthesizer = (*HTTPSynthesizer)(nil)

// NewHTTPSynthesizer builds a synthesizer. A nil client uses fasthttp's
// default client.
func NewHTTPSynthesizer(logger shared.LoggerAdapter, cfg SynthesizerConfig, client *fasthttp.Client) (*HTTPSynthesizer, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if cfg.APIKey == "" {
		return nil, shared.ErrNoAPIKey
	}
	if cfg.SampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	return &HTTPSynthesizer{
		logger: logger.With(zap.String("component", "synthesizer")),
		client: client,
		url:    base.JoinPath("/audio/speech").String(),
		cfg:    cfg,
	}, nil
}

type httpResult struct {
	status int
	body   []byte
	err    error
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (PCM, error) {
	payload, err := sonic.Marshal(speechRequest{
		Model:          s.cfg.Model,
		Input:          text,
		Voice:          s.cfg.Voice,
		ResponseFormat: "pcm",
		Speed:          s.cfg.Speed,
	})
	if err != nil {
		return PCM{}, fmt.Errorf("marshaling speech request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	resC := make(chan httpResult, 1)
	go func() {
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)
		var err error
		if s.client != nil {
			err = s.client.Do(req, resp)
		} else {
			err = fasthttp.Do(req, resp)
		}
		res := httpResult{err: err}
		if err == nil {
			res.status = resp.StatusCode()
			res.body = append([]byte(nil), resp.Body()...)
		}
		resC <- res
	}()

	var res httpResult
	select {
	case <-ctx.Done():
		return PCM{}, ctx.Err()
	case res = <-resC:
	}
	if res.err != nil {
		return PCM{}, fmt.Errorf("performing HTTP request: %w", res.err)
	}
	if res.status != fasthttp.StatusOK {
		var apiErr apiError
		if err := sonic.Unmarshal(res.body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return PCM{}, fmt.Errorf("unexpected status code: %d: %s", res.status, apiErr.Error.Message)
		}
		return PCM{}, fmt.Errorf("unexpected status code: %d, body: %s", res.status, string(res.body))
	}
	if len(res.body) == 0 {
		return PCM{}, errors.New("empty audio response")
	}
	s.logger.Trace("synthesized", zap.Int("chars", len(text)), zap.Int("bytes", len(res.body)))
	return PCM{Data: res.body, SampleRate: s.cfg.SampleRate, Channels: 1}, nil
}
