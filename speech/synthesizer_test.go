package speech

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serveInMemory(t *testing.T, handler fasthttp.RequestHandler) *fasthttputil.InmemoryListener {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func testSynthConfig() SynthesizerConfig {
	return SynthesizerConfig{
		BaseURL:    "http://assist.test/v1",
		APIKey:     "sk-test",
		Model:      "gpt-4o-mini-tts",
		Voice:      "alloy",
		Speed:      0.9,
		SampleRate: 24000,
	}
}

func TestHTTPSynthesizer(t *testing.T) {
	var got speechRequest
	var auth, path string
	ln := serveInMemory(t, func(ctx *fasthttp.RequestCtx) {
		auth = string(ctx.Request.Header.Peek("Authorization"))
		path = string(ctx.Path())
		if err := sonic.Unmarshal(ctx.PostBody(), &got); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		ctx.SetContentType("audio/pcm")
		ctx.SetBody([]byte{1, 0, 2, 0})
	})
	client := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}

	s, err := NewHTTPSynthesizer(shared.NewNopLogger(), testSynthConfig(), client)
	require.NoError(t, err)
	pcm, err := s.Synthesize(context.Background(), "Listening")
	require.NoError(t, err)

	assert.Equal(t, []byte{1, 0, 2, 0}, pcm.Data)
	assert.Equal(t, 24000, pcm.SampleRate)
	assert.Equal(t, 1, pcm.Channels)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "/v1/audio/speech", path)
	assert.Equal(t, speechRequest{
		Model:          "gpt-4o-mini-tts",
		Input:          "Listening",
		Voice:          "alloy",
		ResponseFormat: "pcm",
		Speed:          0.9,
	}, got)
}

func TestHTTPSynthesizerErrors(t *testing.T) {
	ln := serveInMemory(t, func(ctx *fasthttp.RequestCtx) {
		var req speechRequest
		_ = sonic.Unmarshal(ctx.PostBody(), &req)
		switch req.Input {
		case "quota":
			ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
			ctx.SetBodyString(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`)
		case "slow":
			time.Sleep(200 * time.Millisecond)
		}
	})
	client := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	s, err := NewHTTPSynthesizer(shared.NewNopLogger(), testSynthConfig(), client)
	require.NoError(t, err)

	_, err = s.Synthesize(context.Background(), "quota")
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = s.Synthesize(context.Background(), "empty")
	assert.ErrorContains(t, err, "empty audio")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Synthesize(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewHTTPSynthesizer(t *testing.T) {
	cfg := testSynthConfig()
	cfg.APIKey = ""
	_, err := NewHTTPSynthesizer(shared.NewNopLogger(), cfg, nil)
	assert.ErrorIs(t, err, shared.ErrNoAPIKey)

	cfg = testSynthConfig()
	cfg.SampleRate = 0
	_, err = NewHTTPSynthesizer(shared.NewNopLogger(), cfg, nil)
	assert.Error(t, err)

	_, err = NewHTTPSynthesizer(nil, testSynthConfig(), nil)
	assert.ErrorIs(t, err, shared.ErrNoLogger)

	s, err := NewHTTPSynthesizer(shared.NewNopLogger(), SynthesizerConfigFrom(func() *shared.Config {
		c := shared.DefaultConfig()
		c.OpenAI.APIKey = "sk-test"
		return c
	}()), nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1/audio/speech", s.url)
}
