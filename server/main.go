package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/ponyo877/callwatch/callpb"
	"github.com/ponyo877/callwatch/server/adaptor"
	"github.com/ponyo877/callwatch/server/config"
	"github.com/ponyo877/callwatch/server/repository"
	"github.com/ponyo877/callwatch/server/usecase"
)

const shutdownTimeout = 10 * time.Second

func setupLogger(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.Level())
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open db")
	}
	defer db.Close()

	rp := repository.NewRepository(db)
	uc := usecase.NewUsecase(rp)
	sessions := usecase.NewSessionCoordinator(usecase.Options{
		Recorder:       rp,
		Profiles:       rp,
		QueueSize:      cfg.OutboundQueueSize,
		PersistTimeout: cfg.PersistTimeout,
		StrictIdentity: cfg.StrictIdentity,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("failed to listen")
		}
		grpcServer = grpc.NewServer()
		callpb.RegisterCallServiceServer(grpcServer, adaptor.NewAdaptor(sessions))
		reflection.Register(grpcServer)
		go func() {
			log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server is running")
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		ws := adaptor.NewWebSocketHandler(sessions, cfg.OriginPatterns())
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           adaptor.NewHTTPHandler(uc, sessions, ws),
			ReadHeaderTimeout: 10 * time.Second,
			// Hijacked WebSocket connections are not closed by Shutdown; cancelling
			// their request context ends them.
			BaseContext: func(net.Listener) context.Context { return ctx },
		}
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server is running")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
	}
	if grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
	}

	sessions.Wait()
	stats := sessions.Stats()
	log.Info().
		Int("connections", stats.Connections).
		Int("users", stats.Users).
		Int("rooms", stats.Rooms).
		Int64("accepted", stats.Accepted).
		Int64("rejected", stats.Rejected).
		Str("uptime", stats.Uptime).
		Msg("stopped")
}
