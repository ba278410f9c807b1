package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blog-entries-service/config"
	"blog-entries-service/logger"
	"blog-entries-service/router"
	"blog-entries-service/services"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "blog-entries-service",
	Short: "REST API storing blog entries in Elasticsearch",
	Long: `blog-entries-service exposes

  PUT /entries/new/{id}
  GET /entries/searchid/{id}
  GET /entries/searchuser/{user}

and stores the entries in an Elasticsearch index.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger.InitLogger(cfg.Log, nil)
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is ./application.{properties,yaml})")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Logger.Fatalf("blog-entries-service: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	esClient, err := services.NewElasticsearchClient(cfg.Elasticsearch, cfg.Search.Size)
	if err != nil {
		return err
	}

	// an absent cluster is not fatal, requests will report it
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := esClient.CheckCluster(startCtx, cfg.Elasticsearch.ClusterName, cfg.Elasticsearch.StartupAttempts); err != nil {
		logger.Logger.Warnf("elasticsearch at %s unreachable: %v", cfg.Elasticsearch.URL(), err)
	} else if err := esClient.EnsureIndex(startCtx); err != nil {
		logger.Logger.Warnf("could not prepare index %s: %v", cfg.Elasticsearch.IndexName, err)
	}
	cancel()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router.NewRouter(esClient),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Infof("Server is running on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
