package match

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/udisondev/tictac/internal/config"
	"github.com/udisondev/tictac/internal/player"
)

// Server owns the TCP listener, the two registries and the accept loop,
// and coordinates graceful shutdown: stop accepting, half-close every
// registered session's read side, then wait on the registry's empty
// barrier until the last service loop has torn itself down.
type Server struct {
	cfg     config.Server
	players *player.Registry
	clients *Registry
	handler *Handler

	listener net.Listener
	mu       sync.Mutex
}

// NewServer создаёт сервер с пустыми реестрами игроков и сессий.
func NewServer(cfg config.Server) *Server {
	players := player.NewRegistry()
	clients := NewRegistry(cfg.MaxClients)
	return &Server{
		cfg:     cfg,
		players: players,
		clients: clients,
		handler: NewHandler(clients, players),
	}
}

// Clients returns the live-session registry.
func (s *Server) Clients() *Registry {
	return s.clients
}

// Players returns the persistent player registry.
func (s *Server) Players() *player.Registry {
	return s.players
}

// Addr возвращает адрес, на котором слушает сервер.
// Возвращает nil если сервер ещё не запущен.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run начинает прослушивание на cfg.BindAddress:cfg.Port и запускает
// accept loop до отмены контекста.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve принимает готовый listener и запускает accept loop.
// Используется для тестирования с произвольным listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("server started", "address", ln.Addr(), "max_clients", s.cfg.MaxClients)

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return s.shutdown(&wg)
			default:
				slog.Error("failed to accept connection", "err", err)
				continue
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handler.ServeConn(conn)
		}()
	}
}

// shutdown drains the live sessions cooperatively and waits for every
// service loop to finish.
func (s *Server) shutdown(wg *sync.WaitGroup) error {
	slog.Info("server shutting down", "sessions", s.clients.Count())
	s.clients.ShutdownAll()
	s.clients.WaitForEmpty()
	wg.Wait()
	slog.Info("server stopped")
	return nil
}
