package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/arthurdotwork/forumlive/internal/adapters/primary/grpc"
	"github.com/arthurdotwork/forumlive/internal/adapters/primary/httpapi"
	kafkasubscriber "github.com/arthurdotwork/forumlive/internal/adapters/primary/kafka"
	natssubscriber "github.com/arthurdotwork/forumlive/internal/adapters/primary/nats"
	redissubscriber "github.com/arthurdotwork/forumlive/internal/adapters/primary/redis"
	"github.com/arthurdotwork/forumlive/internal/adapters/primary/websocket"
	"github.com/arthurdotwork/forumlive/internal/adapters/secondary/broadcaster"
	"github.com/arthurdotwork/forumlive/internal/adapters/secondary/jwt"
	"github.com/arthurdotwork/forumlive/internal/adapters/secondary/messenger"
	pgstore "github.com/arthurdotwork/forumlive/internal/adapters/secondary/postgres"
	"github.com/arthurdotwork/forumlive/internal/adapters/secondary/store"
	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/config"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/kafka"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/log"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/nats"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/postgres"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/redis"
	"github.com/arthurdotwork/forumlive/internal/infrastructure/runner"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 5 * time.Second

type eventPublisher interface {
	Publish(ctx context.Context, e domain.Event) error
}

// eventSource is the bus side of the gateway: where routed events come from
// and where the ingest endpoint sends the events it accepts.
type eventSource struct {
	publisher eventPublisher
	subscribe func(ctx context.Context) error
	close     func() error
}

func Server(ctx context.Context, c *cobra.Command) error {
	configFile, _ := c.Flags().GetString("config")

	cfg, err := config.Load(viper.New(), configFile)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	log.Config(ctx, cfg.Log.Level)

	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("postgres.NewPool: %w", err)
	}
	defer pool.Close()

	verifier, err := jwt.NewVerifier([]byte(cfg.Auth.Secret), cfg.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("jwt.NewVerifier: %w", err)
	}

	sessions := store.NewMemorySessionStore()
	resolver := domain.NewMembershipResolver(pgstore.NewMembershipStore(pool))
	authenticator := domain.NewAuthenticator(verifier, pgstore.NewUserDirectory(pool))
	lifecycle := domain.NewLifecycleHandler(authenticator, sessions, resolver)
	router := domain.NewEventRouter(sessions, resolver)
	bus := domain.NewEventBus(cfg.Events.Buffer)

	source, err := newEventSource(ctx, cfg, bus)
	if err != nil {
		return fmt.Errorf("newEventSource: %w", err)
	}
	defer func() {
		if err := source.close(); err != nil {
			slog.ErrorContext(ctx, "error closing event source", "error", err)
		}
	}()

	wsHandler := websocket.NewHandler(lifecycle, websocket.Options{
		MaxMessageSize: cfg.WS.MaxMessageSize,
		PongWait:       cfg.WS.PongWait,
		AllowedOrigins: cfg.WS.AllowedOrigins,
		Messenger: messenger.Options{
			SendBuffer: cfg.WS.SendBuffer,
			WriteWait:  cfg.WS.WriteWait,
			PingPeriod: cfg.WS.PingPeriod(),
		},
	})

	gin.SetMode(gin.ReleaseMode)

	apiHandler := httpapi.NewHandler(source.publisher, sessions, cfg.Internal.Key)
	httpSrv := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewRouter(wsHandler.Serve, apiHandler))
	if !apiHandler.IngestEnabled() {
		slog.WarnContext(ctx, "internal.key is not set, POST /internal/events is disabled")
	}

	grpcSrv := grpc.NewServer()
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("net.Listen: %w", err)
	}

	r := runner.New(ctx)

	r.Go("router", func(ctx context.Context) error {
		return router.Run(ctx, bus.Events())
	})

	if source.subscribe != nil {
		r.Go("subscriber", source.subscribe)
	}

	r.Go("http", func(ctx context.Context) error {
		slog.DebugContext(ctx, "starting http server", "address", cfg.HTTP.Addr)

		return serveUntilDone(ctx, func() error {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("httpSrv.ListenAndServe: %w", err)
			}

			return nil
		})
	})

	r.Go("grpc", func(ctx context.Context) error {
		return serveUntilDone(ctx, func() error {
			return grpcSrv.Serve(lis)
		})
	})

	grpcSrv.SetServing(true)
	slog.InfoContext(ctx, "gateway started", "http", cfg.HTTP.Addr, "grpc", cfg.GRPC.Addr, "bus", cfg.Events.Bus)

	runErr := r.Wait()
	if runErr != nil {
		slog.ErrorContext(ctx, "error running server", "error", runErr)
	}

	slog.DebugContext(ctx, "initiating server shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownCancel()

	grpcSrv.SetServing(false)
	bus.Close()

	if err := lifecycle.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "error closing sessions", "error", err)
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "error shutting down http server", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcSrv.Stop()
	}

	if runErr != nil {
		return fmt.Errorf("r.Wait: %w", runErr)
	}

	return nil
}

// serveUntilDone runs a blocking serve function and returns when it fails or
// ctx is done. Stopping the server itself is left to the shutdown sequence.
func serveUntilDone(ctx context.Context, serve func() error) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- serve()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func newEventSource(ctx context.Context, cfg config.Config, bus *domain.EventBus) (eventSource, error) {
	switch cfg.Events.Bus {
	case config.BusRedis:
		redisClient, err := redis.NewClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return eventSource{}, fmt.Errorf("redis.NewClient: %w", err)
		}

		sub := redissubscriber.NewSubscriber(redisClient, bus)

		return eventSource{
			publisher: broadcaster.NewRedisBroadcaster(redisClient, cfg.Events.Channel),
			subscribe: func(ctx context.Context) error {
				return sub.Subscribe(ctx, cfg.Events.Channel)
			},
			close: redisClient.Close,
		}, nil
	case config.BusNats:
		natsClient, err := nats.NewClient(cfg.Nats.URL, "forumlive")
		if err != nil {
			return eventSource{}, fmt.Errorf("nats.NewClient: %w", err)
		}

		sub := natssubscriber.NewSubscriber(natsClient, bus)

		return eventSource{
			publisher: broadcaster.NewNatsBroadcaster(natsClient, cfg.Events.Subject),
			subscribe: func(ctx context.Context) error {
				return sub.Subscribe(ctx, cfg.Events.Subject)
			},
			close: natsClient.Close,
		}, nil
	case config.BusKafka:
		kafkaCfg, err := kafka.NewConfig("forumlive", cfg.Kafka.Version)
		if err != nil {
			return eventSource{}, fmt.Errorf("kafka.NewConfig: %w", err)
		}

		kafkaClient, err := kafka.NewClient(cfg.Kafka.Brokers, cfg.KafkaGroupID(), kafkaCfg)
		if err != nil {
			return eventSource{}, fmt.Errorf("kafka.NewClient: %w", err)
		}

		sub := kafkasubscriber.NewSubscriber(kafkaClient, bus)

		return eventSource{
			publisher: broadcaster.NewKafkaBroadcaster(kafkaClient, cfg.Events.Topic),
			subscribe: func(ctx context.Context) error {
				return sub.Subscribe(ctx, cfg.Events.Topic)
			},
			close: kafkaClient.Close,
		}, nil
	default:
		return eventSource{
			publisher: bus,
			close:     func() error { return nil },
		}, nil
	}
}
