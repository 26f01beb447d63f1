// Command uavlogd serves the UAV log viewer backend: telemetry ingestion
// plus the natural-language chat agent over the ingested tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/20arjuna/UAVLogViewer-AppServer/internal/log"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/agent"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/config"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/history"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/ingest"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/llm/factory"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/server"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools/uav"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "uavlogd",
		Short: "UAV log viewer app server",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./uavlogd.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log.Init(cfg.Logging.Level)
	defer log.Sync() //nolint:errcheck

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	hist, err := history.New(st.DB())
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	uav.RegisterAll(registry, st)

	llm, err := factory.New(factory.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		Endpoint:  cfg.LLM.Endpoint,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	log.Info("model provider ready",
		zap.String("provider", llm.Name()),
		zap.String("model", llm.Model()))

	agentCfg := agent.DefaultConfig()
	if cfg.Agent.MaxIterations > 0 {
		agentCfg.MaxIterations = cfg.Agent.MaxIterations
	}
	if cfg.Agent.HistoryLimit > 0 {
		agentCfg.HistoryLimit = cfg.Agent.HistoryLimit
	}
	ag := agent.New(llm, registry, hist, agentCfg)

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	}, st, ingest.NewPipeline(st), ag, hist)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
