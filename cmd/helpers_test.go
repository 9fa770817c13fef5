package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/khanhnv2901/webscan/cmd/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// setupCommandEnv isolates a command run from the user's home, config and data
// directories and restores every flag to its default.
func setupCommandEnv(t *testing.T) *testutil.TestEnv {
	t.Helper()

	env := testutil.NewTestEnv(t)
	t.Setenv("HOME", env.TmpDir)
	t.Setenv(dataDirEnvVar, env.TmpDir)
	t.Setenv("WEBSCAN_RESULTS_DIR", env.ResultsDir)

	originalNoColor := color.NoColor
	color.NoColor = true
	originalAppCtx := globalAppContext

	resetCommandState()
	t.Cleanup(func() {
		resetCommandState()
		color.NoColor = originalNoColor
		globalAppContext = originalAppCtx
	})
	return env
}

func resetCommandState() {
	viper.Reset()
	*cliConfig = *newCLIConfig()
	cfgFile = ""
	resetFlags(rootCmd)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func decodeScanOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	return decoded
}
