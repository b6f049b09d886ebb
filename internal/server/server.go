// Package server exposes the explorer over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/Mohsinsiddi/w3scan/internal/analytics"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/network"
	"github.com/Mohsinsiddi/w3scan/internal/nft"
	"github.com/Mohsinsiddi/w3scan/internal/token"
)

// DefaultNetwork is used when a request has no ?network= parameter.
const DefaultNetwork = "ethereum"

// Services are the backends the API serves from.
type Services struct {
	Networks  *network.Accessor
	Lookup    *lookup.Service
	Tokens    *token.Service
	NFTs      *nft.Service
	Analytics *analytics.Service
}

// Options configures the HTTP server.
type Options struct {
	Addr        string `default:":8080"`
	CORSOrigins []string
	// RateLimit is the sustained requests per second per client IP; 0
	// disables limiting.
	RateLimit float64
	RateBurst int
	// RequestTimeout bounds a single request's backend work.
	RequestTimeout  time.Duration `default:"60s"`
	ShutdownTimeout time.Duration `default:"10s"`
}

// Server is the explorer HTTP API.
type Server struct {
	svc     Services
	opts    Options
	limiter *ipLimiter
	handler http.Handler
}

// New builds the server and its middleware stack.
func New(svc Services, opts Options) *Server {
	defaults.SetDefaults(&opts)
	s := &Server{svc: svc, opts: opts}
	if opts.RateLimit > 0 {
		s.limiter = newIPLimiter(opts.RateLimit, opts.RateBurst)
	}

	var h http.Handler = s.routes()
	h = s.rateLimit(h)
	h = newCorsHandler(h, opts.CORSOrigins)
	h = logRequests(h)
	h = requestID(h)
	s.handler = h
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func newCorsHandler(h http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		return h
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(h)
}

// Run serves on opts.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if s.limiter != nil {
		go s.limiter.gcLoop(ctx, time.Minute)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logrus.WithField("addr", ln.Addr().String()).Info("API server started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logrus.Info("API server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errc; !errors.Is(serveErr, http.ErrServerClosed) {
		err = multierr.Append(err, serveErr)
	}
	return err
}
