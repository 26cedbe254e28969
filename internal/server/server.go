// Package server implements the TCP front end of the token vault: a
// connection acceptor that hands each accepted connection to a dedicated
// session goroutine, and the session state machine itself.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	accountUsecase "github.com/tokenvault/tokenvault/internal/account/usecase"
	"github.com/tokenvault/tokenvault/internal/metrics"
	tokenizationUsecase "github.com/tokenvault/tokenvault/internal/tokenization/usecase"
)

// Server accepts client connections and serves the tokenization protocol.
// Every connection gets its own session goroutine; connections never wait on
// each other and there is no cap on their number.
type Server struct {
	addr     string
	logger   *slog.Logger
	accounts accountUsecase.UseCase
	tokens   tokenizationUsecase.UseCase
	metrics  metrics.BusinessMetrics

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	conns    map[net.Conn]struct{}
	sessions sync.WaitGroup
}

// NewServer creates a TCP server bound to host:port once Start is called.
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
	accounts accountUsecase.UseCase,
	tokens tokenizationUsecase.UseCase,
	businessMetrics metrics.BusinessMetrics,
) *Server {
	return &Server{
		addr:     fmt.Sprintf("%s:%d", host, port),
		logger:   logger,
		accounts: accounts,
		tokens:   tokens,
		metrics:  businessMetrics,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start listens on the configured address and accepts connections until
// Shutdown is called. It blocks for the lifetime of the listener.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("starting token server", slog.String("addr", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			continue
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		sess := newSession(conn, s.logger, s.accounts, s.tokens, s.metrics)
		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			defer s.forget(conn)
			sess.run(ctx)
		}()
	}
}

// Addr returns the bound listener address, or empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) forget(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Shutdown stops accepting connections, closes active session connections,
// and waits for the session goroutines to finish, up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down token server")

	s.mu.Lock()
	s.closed = true
	listener := s.listener
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sessions still active at shutdown: %w", ctx.Err())
	}
}
