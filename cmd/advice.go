package cmd

import (
	"fmt"
	"strings"

	"github.com/khanhnv2901/webscan/internal/advice"
	"github.com/spf13/cobra"
)

var adviceCmd = &cobra.Command{
	Use:   "advice [question]",
	Short: "Answer a remediation question from the advice table",
	Example: `  webscan advice how do I enable hsts
  webscan advice --finding missing_content-security-policy
  webscan advice --list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		out := cmd.OutOrStdout()

		table, err := advice.Load(appCtx.Config.AdviceFile)
		if err != nil {
			return err
		}

		if mustGetBool(cmd, "list") {
			for _, key := range table.Keys() {
				fmt.Fprintln(out, key)
			}
			return nil
		}

		if finding := strings.TrimSpace(mustGetString(cmd, "finding")); finding != "" {
			if answer, ok := table.ForFinding(finding); ok {
				fmt.Fprintln(out, answer)
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s no advice for finding %q, falling back to the question\n", colorWarn("Note:"), finding)
		}

		fmt.Fprintln(out, table.Lookup(strings.Join(args, " ")))
		return nil
	},
}

func init() {
	adviceCmd.Flags().String("finding", "", "finding ID to explain, e.g. server_banner")
	adviceCmd.Flags().Bool("list", false, "list the topics the advice table knows")
	adviceCmd.Flags().StringVar(&cliConfig.AdviceFile, "advice-file", cliConfig.AdviceFile, "JSON file of topic to answer entries replacing the built-in table")
}
