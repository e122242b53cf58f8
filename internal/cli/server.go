package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enem-simulado-service/internal/app"
	"enem-simulado-service/internal/config"
	"enem-simulado-service/internal/domain"
	"enem-simulado-service/internal/infra/enemapi"
	"enem-simulado-service/internal/infra/memory"
	pgstore "enem-simulado-service/internal/infra/postgres"
	redisstore "enem-simulado-service/internal/infra/redis"
	transport "enem-simulado-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the simulado server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.ProgressStore
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewProgressStore(pool)
	case cfg.Redis.Addr != "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		store = redisstore.NewProgressStore(client)
	default:
		log.Printf("no postgres or redis configured, using in-memory progress store")
		store = memory.NewProgressStore()
	}

	questionTTL := config.Duration(cfg.Questions.CacheTTL, 10*time.Minute)
	source := enemapi.NewSource(enemapi.NewClient(cfg.Questions.BaseURL), questionTTL)

	service := app.NewSimuladoService(store, source)
	handler := transport.NewHandler(service)

	sweepInterval := config.Duration(cfg.Lives.SweepInterval, domain.RegenInterval)
	sweeper := app.NewLivesSweeper(store, sweepInterval)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweeper.Run(sweepCtx)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("starting simulado service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
