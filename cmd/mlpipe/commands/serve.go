package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/api"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/api/handlers"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/model"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction API server",
	Long: `Serves the predict contract over HTTP.

Endpoints:
  GET  /health       - health check
  POST /api/predict  - single-candidate prediction
  GET  /api/model    - current snapshot metadata

Inference is read-only against the published model snapshot; the
snapshot is reloaded automatically when a training run advances the
latest pointer.

Example:
  go run ./cmd/mlpipe serve
  go run ./cmd/mlpipe serve --port 8093`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := initDeps()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	predictor := model.NewPredictor(cfg.Data.Dir, log.Zerolog())
	predictHandler := handlers.NewPredictHandler(predictor, cfg.Data.Dir, log)
	router := api.NewRouter(predictHandler, log)
	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
