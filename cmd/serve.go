package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanhnv2901/webscan/internal/advice"
	"github.com/khanhnv2901/webscan/internal/api"
	"github.com/khanhnv2901/webscan/internal/checker"
	jsonstore "github.com/khanhnv2901/webscan/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/webscan/internal/metrics"
	"github.com/khanhnv2901/webscan/internal/nmap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run WebScan as a JSON HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		noHistory, _ := cmd.Flags().GetBool("no-history")

		logger := appCtx.Logger.Desugar()

		server, err := newAPIServer(cfg, appCtx.ResultsDir, !noHistory, logger)
		if err != nil {
			return err
		}
		defer server.Close()

		httpServer := &http.Server{
			Addr:              cfg.Serve.Addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      serveWriteTimeout(cfg),
			IdleTimeout:       120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s API server listening on %s (results dir: %s)\n", colorInfo("→"), cfg.Serve.Addr, appCtx.ResultsDir)
			fmt.Fprintf(cmd.OutOrStdout(), "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&cliConfig.Serve.Addr, "addr", cliConfig.Serve.Addr, "address for the API server")
	flags.StringVar(&cliConfig.Serve.AuthToken, "auth-token", cliConfig.Serve.AuthToken, "optional shared secret required in X-Auth-Token")
	flags.StringSliceVar(&cliConfig.Serve.CORSOrigins, "cors-origins", cliConfig.Serve.CORSOrigins, "allowed CORS origins (empty = allow all)")
	flags.IntVar(&cliConfig.Serve.RateLimit, "rate-limit", cliConfig.Serve.RateLimit, "rate limit per IP (requests/second, 0 = disabled)")
	flags.IntVar(&cliConfig.Serve.RateBurst, "rate-burst", cliConfig.Serve.RateBurst, "rate limit burst size")
	flags.IntVar(&cliConfig.Serve.MaxPages, "max-pages-cap", cliConfig.Serve.MaxPages, "upper bound for client-requested max_pages (0 = unbounded)")
	flags.IntVar(&cliConfig.Serve.Jobs, "jobs", cliConfig.Serve.Jobs, "concurrent background scan jobs")
	flags.BoolVar(&cliConfig.Serve.TrustProxy, "trust-proxy", cliConfig.Serve.TrustProxy, "use X-Forwarded-For to identify clients")
	flags.BoolVar(&cliConfig.Serve.Metrics, "metrics", cliConfig.Serve.Metrics, "expose Prometheus metrics on /metrics")
	flags.Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
	flags.Bool("no-history", false, "do not persist scans or serve /api/v1/scans")
}

// serveWriteTimeout covers the slowest synchronous scan the configuration
// allows. Scan handlers extend it per request and the job stream clears it.
func serveWriteTimeout(cfg *CLIConfig) time.Duration {
	crawl := cfg.crawlOptions()
	if cfg.Serve.MaxPages > 0 {
		crawl.MaxPages = cfg.Serve.MaxPages
	}
	active := time.Duration(cfg.Active.TimeoutSecs) * time.Second
	return max(crawl.WorstCase(), active) + 30*time.Second
}

// newAPIServer wires the scanners, history store, advice table, metrics and job
// manager into an api.Server.
func newAPIServer(cfg *CLIConfig, resultsDir string, history bool, logger *zap.Logger) (*api.Server, error) {
	table, err := advice.Load(cfg.AdviceFile)
	if err != nil {
		return nil, err
	}

	serverCfg := api.Config{
		Advice:       table,
		CrawlOptions: cfg.crawlOptions(),
		MaxPages:     cfg.Serve.MaxPages,
		AuthToken:    cfg.Serve.AuthToken,
		Logger:       logger,
		CORSOrigins:  cfg.Serve.CORSOrigins,
		RateLimit:    cfg.Serve.RateLimit,
		RateBurst:    cfg.Serve.RateBurst,
		TrustProxy:   cfg.Serve.TrustProxy,
		Jobs:         api.NewJobManager(cfg.Serve.Jobs, logger),
	}

	crawler := &checker.Crawler{Logger: logger}
	if cfg.Serve.Metrics {
		recorder := metrics.NewRecorder("")
		crawler.Observer = recorder
		serverCfg.Metrics = recorder
	}
	serverCfg.Passive = crawler

	runner := nmap.NewRunner(logger)
	runner.Binary = cfg.Active.Binary
	runner.Timeout = time.Duration(cfg.Active.TimeoutSecs) * time.Second
	serverCfg.Active = runner
	serverCfg.ActiveTimeout = runner.Timeout

	if history {
		store, err := jsonstore.NewScanRepository(resultsDir)
		if err != nil {
			serverCfg.Jobs.Close()
			return nil, err
		}
		serverCfg.Store = store
	}

	if !runner.Available() {
		logger.Warn("nmap_unavailable", zap.String("binary", runner.Binary))
	}
	return api.NewServer(serverCfg), nil
}
