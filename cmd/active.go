package cmd

import (
	"os"
	"os/signal"
	"time"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/nmap"
	"github.com/spf13/cobra"
)

var activeCmd = &cobra.Command{
	Use:   "active <host|url>",
	Short: "Run an nmap service and TLS cipher scan (requires --consent)",
	Long: `Run nmap -sV --script ssl-enum-ciphers against the host of <host|url>.
Active scanning sends probes to the target: only scan systems you own or are
authorised in writing to test, and confirm this with --consent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config

		format, err := parseOutputFormat(mustGetString(cmd, "format"))
		if err != nil {
			return err
		}

		target := checker.NormalizeURL(args[0])
		if !mustGetBool(cmd, "consent") {
			host, _ := checker.HostOf(target)
			return &ConsentRequiredError{Host: host}
		}
		host, err := checker.HostOf(target)
		if err != nil {
			return err
		}
		ports := mustGetString(cmd, "ports")

		runner := nmap.NewRunner(appCtx.Logger.Desugar())
		runner.Binary = cfg.Active.Binary
		runner.Timeout = time.Duration(cfg.Active.TimeoutSecs) * time.Second

		ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
		defer stop()

		result, outcome := newScanService(cmd, nil, runner).RunActive(ctx, target, host, ports)
		warnSaveFailure(cmd, outcome)

		if err := printActiveResult(cmd.OutOrStdout(), format, host, outcome.ID(), result, mustGetBool(cmd, "raw")); err != nil {
			return err
		}
		if result.Failed() {
			return &ScanFailedError{Target: host, Err: result.Err}
		}
		return nil
	},
}

func init() {
	flags := activeCmd.Flags()
	flags.Bool("consent", false, "confirm you are authorised to scan the target")
	flags.StringP("ports", "p", "", "nmap port specification, e.g. 80,443 or 1-1024 (default: nmap's top ports)")
	flags.IntVar(&cliConfig.Active.TimeoutSecs, "timeout", cliConfig.Active.TimeoutSecs, "scan timeout in seconds")
	flags.StringVar(&cliConfig.Active.Binary, "nmap-binary", cliConfig.Active.Binary, "nmap executable name or path")
	flags.StringP("format", "f", outputText, "output format: text, json or yaml")
	flags.Bool("raw", false, "print the raw nmap XML after the port table (text output only)")
	flags.Bool("save", true, "store the result in the scan history")
}
