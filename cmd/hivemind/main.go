package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/outpost-systems/hivemind/internal/config"
	"github.com/outpost-systems/hivemind/pkg/dispatch"
	"github.com/outpost-systems/hivemind/pkg/log"
	"github.com/outpost-systems/hivemind/pkg/master"
	"github.com/outpost-systems/hivemind/pkg/metrics"
	"github.com/outpost-systems/hivemind/pkg/orchestrator"
	"github.com/outpost-systems/hivemind/pkg/registry"
	"github.com/outpost-systems/hivemind/pkg/store"
	"github.com/outpost-systems/hivemind/pkg/worker"
)

const version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hivemind",
	Short: "hivemind - a master/worker compute dispatch cluster",
	Long: `hivemind dispatches compute work (leaf functions, word counts,
matrix multiplication) across a pool of workers that register themselves
over HTTP.`,
	RunE: run,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	metrics.SetVersion(version)
	metrics.RegisterComponent("store", false, "connecting")
	metrics.RegisterComponent("http", false, "not listening")

	redisStore, err := store.NewRedisStore(cfg.RedisURI)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer redisStore.Close()
	metrics.RegisterComponent("store", true, "connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	if cfg.Role == config.RoleMaster {
		return runMaster(ctx, cfg, redisStore)
	}
	return runWorker(ctx, cfg, redisStore)
}

func runMaster(ctx context.Context, cfg *config.Config, s store.Store) error {
	reg := registry.New()
	d := dispatch.New(reg)
	orch := orchestrator.New(reg, d, s)
	srv := master.NewServer(reg, d, orch, cfg.SlaveCode)

	log.Info(fmt.Sprintf("starting master on port %s", cfg.Port))
	metrics.RegisterComponent("http", true, "listening")
	return master.Run(ctx, cfg.Port, srv.Handler())
}

func runWorker(ctx context.Context, cfg *config.Config, s store.Store) error {
	w := worker.New(worker.Config{
		Port:         cfg.Port,
		MasterSocket: cfg.MasterSocket,
		SlaveCode:    cfg.SlaveCode,
		Store:        s,
	})

	log.Info(fmt.Sprintf("starting worker on port %s, reporting to %s", cfg.Port, cfg.MasterSocket))
	metrics.RegisterComponent("http", true, "listening")
	return w.Start(ctx)
}
