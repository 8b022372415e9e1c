// Package server exposes the controller's triggers and state over HTTP so
// switches, phones and scripts can drive a session.
package server

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	assist "github.com/bt-bridge/vision-assist"
	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	maxBodySize     = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// Assistant is the part of the controller the server drives.
type Assistant interface {
	Fire(t assist.Trigger, text string) error
	Snapshot() assist.Snapshot
}

// routes maps /trigger/{name} to controller triggers.
var routes = map[string]assist.Trigger{
	"camera":  assist.TriggerActivateCamera,
	"scan":    assist.TriggerRequestScan,
	"listen":  assist.TriggerRequestListen,
	"repeat":  assist.TriggerRepeatDescription,
	"objects": assist.TriggerSpeakAllObjects,
}

type Server struct {
	logger shared.LoggerAdapter
	ctl    Assistant
	srv    *fasthttp.Server
}

type commandRequest struct {
	Text string `json:"text"`
}

type acceptedResponse struct {
	Accepted assist.Trigger `json:"accepted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(logger shared.LoggerAdapter, ctl Assistant) (*Server, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if ctl == nil {
		return nil, shared.ErrNoController
	}
	s := &Server{
		logger: logger.With(zap.String("component", "server")),
		ctl:    ctl,
	}
	s.srv = &fasthttp.Server{
		Handler:            s.Handler,
		Name:               "vision-assist/" + shared.Version,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        time.Minute,
		MaxRequestBodySize: maxBodySize,
	}
	return s, nil
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return err
	}
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errC := make(chan error, 1)
	go func() { errC <- s.srv.Serve(ln) }()
	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.srv.ShutdownWithContext(shutdownCtx)
	}
}

func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == "/healthz":
		s.handleHealth(ctx)
	case path == "/state":
		s.handleState(ctx)
	case path == "/command":
		s.handleCommand(ctx)
	case strings.HasPrefix(path, "/trigger/"):
		s.handleTrigger(ctx, strings.TrimPrefix(path, "/trigger/"))
	default:
		s.fail(ctx, fasthttp.StatusNotFound, "not found")
	}
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		s.fail(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.reply(ctx, fasthttp.StatusOK, map[string]string{"status": "ok", "version": shared.Version})
}

func (s *Server) handleState(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		s.fail(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.reply(ctx, fasthttp.StatusOK, s.ctl.Snapshot())
}

func (s *Server) handleTrigger(ctx *fasthttp.RequestCtx, name string) {
	if !ctx.IsPost() {
		s.fail(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	trigger, ok := routes[name]
	if !ok {
		s.fail(ctx, fasthttp.StatusNotFound, "unknown trigger: "+name)
		return
	}
	s.fire(ctx, trigger, "")
}

func (s *Server) handleCommand(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		s.fail(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req commandRequest
	if err := sonic.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.fail(ctx, fasthttp.StatusBadRequest, "text is empty")
		return
	}
	s.fire(ctx, assist.TriggerUtterance, req.Text)
}

func (s *Server) fire(ctx *fasthttp.RequestCtx, trigger assist.Trigger, text string) {
	if err := s.ctl.Fire(trigger, text); err != nil {
		if errors.Is(err, shared.ErrControllerClosed) {
			s.fail(ctx, fasthttp.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error("firing trigger", err, zap.String("trigger", string(trigger)))
		s.fail(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("trigger accepted", zap.String("trigger", string(trigger)), zap.String("remote", ctx.RemoteAddr().String()))
	s.reply(ctx, fasthttp.StatusAccepted, acceptedResponse{Accepted: trigger})
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, status int, msg string) {
	s.reply(ctx, status, errorResponse{Error: msg})
}

func (s *Server) reply(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		s.logger.Error("marshaling response", err)
		ctx.Error("internal error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
