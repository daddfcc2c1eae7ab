package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type HTTPServer struct {
	httpServer *http.Server
}

// NewHTTPServer has no write timeout, handlers bound their own work
// and the cart event stream stays open.
//
// Request contexts are cancelled once shutdown starts,
// so open streams end and let the server drain.
func NewHTTPServer(addr string, handler http.Handler) *HTTPServer {
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}
	s.RegisterOnShutdown(cancel)
	return &HTTPServer{s}
}

// Run serves until the server is closed.
func (s *HTTPServer) Run() error {
	const op = "HTTPServer.Run"
	log := slog.With("op", op)

	log.Info("listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("unexpected servers shutdown", "err", err)
		return err
	}
	return nil
}

func (s *HTTPServer) Close(ctx context.Context) {
	const op = "HTTPServer.Close"
	log := slog.With("op", op)

	log.Info("closing http server...")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		log.Error("failed to shutdown gracefully", "err", err)
	}
	log.Info("http server is closed")
}
