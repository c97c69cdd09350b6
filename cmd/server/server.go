package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"

	"github.com/KirkDiggler/numenera-api/internal/handlers/numenera/v1alpha1"
	"github.com/KirkDiggler/numenera-api/internal/i18n"
	dialogorch "github.com/KirkDiggler/numenera-api/internal/orchestrators/dialog"
	"github.com/KirkDiggler/numenera-api/internal/orchestrators/roll"
	"github.com/KirkDiggler/numenera-api/internal/pkg/clock"
	"github.com/KirkDiggler/numenera-api/internal/pkg/idgen"
	"github.com/KirkDiggler/numenera-api/internal/redis"
	actorrepo "github.com/KirkDiggler/numenera-api/internal/repositories/actor"
	effortsession "github.com/KirkDiggler/numenera-api/internal/repositories/effort_session"
	rollsession "github.com/KirkDiggler/numenera-api/internal/repositories/roll_session"
)

const shutdownTimeout = 30 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gRPC server",
	Long:  `Start the Numenera API gRPC server backed by Redis.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().Int(keyPort, 50051, "gRPC server port")
	serverCmd.Flags().Duration(keySessionTTL, dialogorch.DefaultSessionTTL, "lifetime of an open Effort dialog")
	serverCmd.Flags().Duration(keyRollTTL, roll.DefaultSessionTTL, "lifetime of an actor's roll history")
	addRedisFlags(serverCmd)
}

func runServer(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := newRedisClient(v)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	if err := redis.Ping(ctx, redisClient); err != nil {
		return err
	}

	clk := clock.New()

	actorRepo, err := actorrepo.NewRedisRepository(&actorrepo.Config{Client: redisClient})
	if err != nil {
		return fmt.Errorf("failed to create actor repository: %w", err)
	}

	sessionRepo, err := effortsession.NewRedisRepository(&effortsession.Config{Client: redisClient, Clock: clk})
	if err != nil {
		return fmt.Errorf("failed to create effort session repository: %w", err)
	}

	rollSessionRepo, err := rollsession.NewRedisRepository(&rollsession.Config{
		Client: redisClient,
		Clock:  clk,
		TTL:    v.GetDuration(keyRollTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to create roll session repository: %w", err)
	}

	eventBus := events.NewBus()
	eventBus.SubscribeFunc(roll.EventRollResolved, 0, func(ctx context.Context, e events.Event) error {
		slog.DebugContext(ctx, "Roll resolved", "actor_id", e.Source().GetID())
		return nil
	})

	rollService, err := roll.NewOrchestrator(&roll.Config{
		RollSessionRepo: rollSessionRepo,
		IDGenerator:     idgen.NewUUID("roll"),
		Roller:          dice.DefaultRoller,
		EventBus:        eventBus,
		Clock:           clk,
		SessionTTL:      v.GetDuration(keyRollTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to create roll orchestrator: %w", err)
	}

	catalog, err := i18n.LoadEmbedded()
	if err != nil {
		return fmt.Errorf("failed to load localization catalog: %w", err)
	}
	slog.Info("Loaded localization catalog", "locales", catalog.Locales(), "base", i18n.BaseLocale)

	dialogService, err := dialogorch.New(&dialogorch.Config{
		ActorRepo:   actorRepo,
		SessionRepo: sessionRepo,
		RollService: rollService,
		IDGenerator: idgen.NewUUID("es"),
		Clock:       clk,
		Localizer:   catalog,
		SessionTTL:  v.GetDuration(keySessionTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to create dialog orchestrator: %w", err)
	}

	handler, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{
		DialogService: dialogService,
		RollService:   rollService,
		Localizer:     catalog,
	})
	if err != nil {
		return fmt.Errorf("failed to create effort handler: %w", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", v.GetInt(keyPort)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	logger := grpc_logging.LoggerFunc(logFunc)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(logger),
			grpc_recovery.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(logger),
			grpc_recovery.StreamServerInterceptor(),
		),
	)

	v1alpha1.RegisterEffortServiceServer(srv, handler)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(v1alpha1.EffortServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(srv)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("gRPC server starting", "port", v.GetInt(keyPort))
		if err := srv.Serve(lis); err != nil {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down gRPC server")
		healthServer.Shutdown()

		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()

		select {
		case <-time.After(shutdownTimeout):
			slog.Warn("Graceful shutdown timeout exceeded, forcing stop")
			srv.Stop()
		case <-stopped:
			slog.Info("Server stopped gracefully")
		}

		return nil
	case err := <-errChan:
		return err
	}
}

func logFunc(ctx context.Context, level grpc_logging.Level, msg string, fields ...any) {
	slog.Log(ctx, slog.Level(level), msg, fields...)
}
