package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	jsonstore "github.com/khanhnv2901/webscan/internal/infrastructure/persistence/json"
	"github.com/spf13/cobra"
)

// historyEntry is one row of structured history output.
type historyEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      scan.Kind `json:"kind" yaml:"kind"`
	Target    string    `json:"target" yaml:"target"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Summary   string    `json:"summary" yaml:"summary"`
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored scans, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		format, err := parseOutputFormat(mustGetString(cmd, "format"))
		if err != nil {
			return err
		}
		kind := scan.Kind(strings.ToLower(mustGetString(cmd, "kind")))
		if kind != "" && kind != scan.KindPassive && kind != scan.KindActive {
			return fmt.Errorf("invalid kind: %s (must be passive or active)", kind)
		}
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := jsonstore.NewScanRepository(appCtx.ResultsDir)
		if err != nil {
			return err
		}
		scans, err := store.FindAll(cmdContext(cmd))
		if err != nil {
			return err
		}

		entries := make([]historyEntry, 0, len(scans))
		for _, s := range scans {
			if kind != "" && s.Kind() != kind {
				continue
			}
			entries = append(entries, historyEntry{
				ID:        s.ID(),
				Kind:      s.Kind(),
				Target:    s.Target(),
				CreatedAt: s.CreatedAt(),
				Summary:   s.Summary(),
			})
			if limit > 0 && len(entries) == limit {
				break
			}
		}

		out := cmd.OutOrStdout()
		if format != outputText {
			return writeStructured(out, format, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No scans stored yet.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tCREATED\tTARGET\tSUMMARY")
		for _, e := range entries {
			summary := e.Summary
			if strings.HasPrefix(summary, "failed") {
				summary = formatStatusWithColor("failed") + strings.TrimPrefix(summary, "failed")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Kind, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Target, summary)
		}
		return tw.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		format, err := parseOutputFormat(mustGetString(cmd, "format"))
		if err != nil {
			return err
		}
		if err := validateScanID(args[0]); err != nil {
			return err
		}
		store, err := jsonstore.NewScanRepository(appCtx.ResultsDir)
		if err != nil {
			return err
		}
		stored, err := store.FindByID(cmdContext(cmd), strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch stored.Kind() {
		case scan.KindActive:
			return printActiveResult(out, format, stored.Host(), stored.ID(), *stored.Active(), mustGetBool(cmd, "raw"))
		default:
			return printPassiveResult(out, format, stored.Target(), stored.ID(), *stored.Passive())
		}
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a stored scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		if err := validateScanID(args[0]); err != nil {
			return err
		}
		store, err := jsonstore.NewScanRepository(appCtx.ResultsDir)
		if err != nil {
			return err
		}
		id := strings.TrimSpace(args[0])
		if err := store.Delete(cmdContext(cmd), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted scan %s\n", colorSuccess("✓"), id)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("kind", "", "only list passive or active scans")
	historyCmd.Flags().Int("limit", 25, "maximum number of scans to list (0 = all)")
	historyCmd.PersistentFlags().StringP("format", "f", outputText, "output format: text, json or yaml")
	historyShowCmd.Flags().Bool("raw", false, "print the raw nmap XML of active scans")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}
