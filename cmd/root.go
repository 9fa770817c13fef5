package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	configFileName = ".webscan"
	envPrefix      = "WEBSCAN"
)

// AppContext carries process-wide state prepared by the root command.
type AppContext struct {
	Logger     *zap.SugaredLogger
	ResultsDir string
	Config     *CLIConfig
}

type appContextKey struct{}

var (
	cfgFile          string
	resultsDirFlag   string
	globalAppContext *AppContext
)

var rootCmd = &cobra.Command{
	Use:   "webscan",
	Short: "Passive security header auditor and consent-gated nmap scanner",
	Long: `WebScan crawls a site and audits the security headers and scripts of every page,
runs nmap service and TLS cipher scans against hosts you are authorised to test,
keeps a local scan history and exports reports as CSV, PDF or Markdown.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd.Root().PersistentFlags()); err != nil {
			return err
		}
		applyConfigDefaults()

		resultsDir, err := resolveResultsDir()
		if err != nil {
			return err
		}

		l, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		appCtx := &AppContext{
			Logger:     l.Sugar(),
			ResultsDir: resultsDir,
			Config:     cliConfig,
		}
		storeAppContext(cmd, appCtx)
		appCtx.Logger.Debugw("config loaded", "results_dir", resultsDir, "config_file", viper.ConfigFileUsed())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.webscan.yaml)")
	rootCmd.PersistentFlags().StringVar(&resultsDirFlag, "results-dir", "", "directory for scan history (overrides results_dir)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn or error")

	rootCmd.AddCommand(passiveCmd)
	rootCmd.AddCommand(activeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(adviceCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig(flags *pflag.FlagSet) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(configFileName)
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit --config must exist; the default one is optional
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// resolveResultsDir picks --results-dir, then results_dir from config or env,
// then the default under the per-user data directory, and makes sure it exists.
func resolveResultsDir() (string, error) {
	dir := resultsDirFlag
	if dir == "" {
		dir = viper.GetString("results_dir")
	}
	if dir == "" {
		return getResultsDir()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	return dir, nil
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(viper.GetString("log_level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg.Level = level
	return cfg.Build()
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil && cmd.Context() != nil {
		if appCtx, ok := cmd.Context().Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	return globalAppContext
}
