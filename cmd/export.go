package cmd

import (
	"fmt"
	"strings"

	jsonstore "github.com/khanhnv2901/webscan/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/webscan/internal/report"
	"github.com/spf13/cobra"
)

type exportRenderer struct {
	ext    string
	render func(report.Data) ([]byte, error)
}

var exportRenderers = map[string]exportRenderer{
	"csv": {ext: "csv", render: report.CSV},
	"pdf": {ext: "pdf", render: report.PDF},
	"md":  {ext: "md", render: report.Markdown},
}

var exportFormats = []string{"csv", "pdf", "md"}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored scan as CSV, PDF or Markdown",
	Example: `  webscan export --id 2f1c1a5e-8a8e-4c7e-9d3f-2b7f3c2a9e11 --format pdf
  webscan export --id 2f1c1a5e-8a8e-4c7e-9d3f-2b7f3c2a9e11 --format md --output -`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		id := strings.TrimSpace(mustGetString(cmd, "id"))
		if err := validateScanID(id); err != nil {
			return err
		}

		format := strings.ToLower(mustGetString(cmd, "format"))
		if format == "markdown" {
			format = "md"
		}
		renderer, ok := exportRenderers[format]
		if !ok {
			return &UnsupportedFormatError{Format: format, Allowed: exportFormats}
		}

		store, err := jsonstore.NewScanRepository(appCtx.ResultsDir)
		if err != nil {
			return err
		}
		stored, err := store.FindByID(cmdContext(cmd), id)
		if err != nil {
			return err
		}

		data := report.Data{
			Target:      stored.Target(),
			Passive:     stored.Findings(),
			Active:      stored.Active(),
			GeneratedAt: stored.CreatedAt(),
		}
		body, err := renderer.render(data)
		if err != nil {
			return fmt.Errorf("render %s report: %w", format, err)
		}

		output := mustGetString(cmd, "output")
		if output == "-" {
			_, err := cmd.OutOrStdout().Write(body)
			return err
		}
		path, err := resolveOutputPath(mustGetString(cmd, "dir"), output, report.Filename(data.Target, renderer.ext))
		if err != nil {
			return err
		}
		if err := writeOutputFile(path, body); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Report written to %s\n", colorSuccess("✓"), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("id", "", "ID of the stored scan (see webscan history)")
	exportCmd.Flags().StringP("format", "f", "md", "report format: csv, pdf or md")
	exportCmd.Flags().StringP("output", "o", "", "output file, or - for stdout (default: webscan_<target>.<ext> in --dir)")
	exportCmd.Flags().String("dir", ".", "directory for the default output file")
	_ = exportCmd.MarkFlagRequired("id")
}
