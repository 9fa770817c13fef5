package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	scanapp "github.com/khanhnv2901/webscan/internal/application/scan"
	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	jsonstore "github.com/khanhnv2901/webscan/internal/infrastructure/persistence/json"
	"github.com/spf13/cobra"
)

var passiveCmd = &cobra.Command{
	Use:   "passive <url>",
	Short: "Crawl a site and audit security headers and scripts",
	Long: `Crawl same-host pages breadth-first from <url> and audit every fetched page:
missing security headers, Server banners and deprecated jQuery versions.
A bare host is fetched over http://.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config

		format, err := parseOutputFormat(mustGetString(cmd, "format"))
		if err != nil {
			return err
		}
		target := checker.NormalizeURL(args[0])
		if target == "" {
			return errors.New("missing url")
		}

		ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
		defer stop()

		crawler := &checker.Crawler{Logger: appCtx.Logger.Desugar()}
		opts := cfg.crawlOptions()
		var progress *crawlProgress
		if mustGetBool(cmd, "progress") && format == outputText {
			progress = newCrawlProgress(cmd.ErrOrStderr(), opts.MaxPages, "crawl")
			crawler.Observer = progress
			progress.Start()
		}

		service := newScanService(cmd, crawler, nil)
		result, outcome := service.RunPassive(ctx, target, opts)
		if progress != nil {
			progress.Stop()
		}
		warnSaveFailure(cmd, outcome)

		if err := printPassiveResult(cmd.OutOrStdout(), format, target, outcome.ID(), result); err != nil {
			return err
		}
		if len(result.Pages) == 0 {
			return &ScanFailedError{Target: target, Err: errors.New("no page could be fetched")}
		}
		return nil
	},
}

func init() {
	flags := passiveCmd.Flags()
	flags.IntVar(&cliConfig.Passive.MaxPages, "max-pages", cliConfig.Passive.MaxPages, "maximum number of URLs to visit")
	flags.IntVar(&cliConfig.Passive.MaxDepth, "max-depth", cliConfig.Passive.MaxDepth, "maximum link depth from the start URL (0 = start page only)")
	flags.IntVar(&cliConfig.Passive.TimeoutSecs, "timeout", cliConfig.Passive.TimeoutSecs, "per-page fetch timeout in seconds")
	flags.Float64Var(&cliConfig.Passive.Rate, "rate", cliConfig.Passive.Rate, "maximum requests per second (0 = unthrottled)")
	flags.StringVar(&cliConfig.Passive.UserAgent, "user-agent", cliConfig.Passive.UserAgent, "User-Agent header for page fetches")
	flags.StringP("format", "f", outputText, "output format: text, json or yaml")
	flags.Bool("save", true, "store the result in the scan history")
	flags.Bool("progress", true, "show crawl progress on stderr (text output only)")
}

// newScanService wires the engines to the scan history unless --save=false.
// History is best effort: when the store cannot be opened the scan still runs.
func newScanService(cmd *cobra.Command, crawler scanapp.Crawler, scanner scanapp.PortScanner) *scanapp.Service {
	appCtx := getAppContext(cmd)
	logger := appCtx.Logger.Desugar()

	var repo scan.Repository
	if mustGetBool(cmd, "save") {
		store, err := jsonstore.NewScanRepository(appCtx.ResultsDir)
		if err != nil {
			warnSaveFailure(cmd, scanapp.Outcome{SaveErr: err})
		} else {
			repo = store
		}
	}
	return scanapp.NewService(crawler, scanner, repo, nil, logger)
}

func warnSaveFailure(cmd *cobra.Command, outcome scanapp.Outcome) {
	if outcome.SaveErr == nil {
		return
	}
	getAppContext(cmd).Logger.Warnw("scan not saved", "error", outcome.SaveErr)
	fmt.Fprintf(cmd.ErrOrStderr(), "%s could not save scan: %v\n", colorWarn("Warning:"), outcome.SaveErr)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func mustGetString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
