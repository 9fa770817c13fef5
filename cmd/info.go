package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/khanhnv2901/webscan/internal/nmap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration, data directory and scanner availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config

		resultsExists := "✗ (not created yet)"
		if _, err := os.Stat(appCtx.ResultsDir); err == nil {
			resultsExists = "✓ (exists)"
		}

		configFile := viper.ConfigFileUsed()
		configExists := "✓ (loaded)"
		if configFile == "" {
			configExists = "✗ (using defaults)"
			if path, err := getConfigFilePath(); err == nil {
				configFile = path
			}
		}

		runner := &nmap.Runner{Binary: cfg.Active.Binary}
		nmapStatus := colorSuccess("✓ available")
		if !runner.Available() {
			nmapStatus = colorWarn("✗ not installed (active scans will fail)")
		}

		adviceFile := cfg.AdviceFile
		if adviceFile == "" {
			adviceFile = "(built-in)"
		}

		// Get output writer (for testing support)
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "WebScan System Information")
		fmt.Fprintln(out, "==========================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:           %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Version:            %s\n", Version)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Results Directory:  %s %s\n", appCtx.ResultsDir, resultsExists)
		fmt.Fprintf(out, "  Configuration File: %s %s\n", configFile, configExists)
		fmt.Fprintf(out, "  Advice File:        %s\n", adviceFile)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Scanners:")
		fmt.Fprintf(out, "  nmap (%s): %s\n", cfg.Active.Binary, nmapStatus)
		fmt.Fprintf(out, "  passive crawl:      max_pages=%d max_depth=%d timeout=%ds rate=%g/s\n",
			cfg.Passive.MaxPages, cfg.Passive.MaxDepth, cfg.Passive.TimeoutSecs, cfg.Passive.Rate)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To override defaults, create ~/.webscan.yaml with e.g.:")
		fmt.Fprintln(out, "  results_dir: /custom/path/to/results")
		fmt.Fprintln(out, "  passive:")
		fmt.Fprintln(out, "    max_pages: 25")
		fmt.Fprintln(out, "  active:")
		fmt.Fprintln(out, "    timeout_secs: 300")
		fmt.Fprintln(out, "Every key can also be set as an environment variable, e.g. WEBSCAN_PASSIVE_MAX_PAGES.")

		return nil
	},
}
