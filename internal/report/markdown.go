package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/nao1215/markdown"
)

// Markdown renders the report as GitHub-flavoured Markdown.
func Markdown(data Data) ([]byte, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1("WebScan Report - " + data.target())
	md.PlainText("")
	md.PlainText("Generated: " + data.generatedAt().Format(time.RFC3339) + " UTC")
	md.PlainText("")

	writeSeveritySummary(md, data.Passive)
	writePassiveFindings(md, data.Passive)
	writeActiveFindings(md, data)

	if err := md.Build(); err != nil {
		return nil, fmt.Errorf("failed to generate markdown: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSeveritySummary(md *markdown.Markdown, findings []checker.Finding) {
	counts := checker.CrawlResult{Findings: findings}.CountBySeverity()

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"High", strconv.Itoa(counts[checker.SeverityHigh])},
			{"Medium", strconv.Itoa(counts[checker.SeverityMedium])},
			{"Low", strconv.Itoa(counts[checker.SeverityLow])},
			{"Total", strconv.Itoa(len(findings))},
		},
	})
	md.PlainText("")

	switch {
	case counts[checker.SeverityHigh] > 0:
		md.Warningf("%d high severity finding(s) should be addressed first.", counts[checker.SeverityHigh])
	case counts[checker.SeverityMedium] > 0:
		md.Importantf("%d medium severity finding(s) detected.", counts[checker.SeverityMedium])
	case len(findings) > 0:
		md.Note("Only low severity findings detected.")
	default:
		md.Tip("No passive findings.")
	}
	md.PlainText("")
}

func writePassiveFindings(md *markdown.Markdown, findings []checker.Finding) {
	md.H2("Passive Findings")
	md.PlainText("")
	if len(findings) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{"`" + f.ID + "`", f.Title, string(f.Severity), f.Remediation})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Title", "Severity", "Remediation"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeActiveFindings(md *markdown.Markdown, data Data) {
	md.H2("Active Findings")
	md.PlainText("")

	switch {
	case data.Active == nil:
		md.PlainText("No active scan.")
	case data.Active.Failed():
		md.Cautionf("Active scan failed: %s", data.Active.Err.Error())
	case len(data.Active.Ports) == 0:
		md.PlainText("No ports reported.")
	default:
		rows := make([][]string, 0, len(data.Active.Ports))
		for _, p := range data.Active.Ports {
			rows = append(rows, []string{p.Port, p.Protocol, p.State, p.Service})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Port", "Protocol", "State", "Service"},
			Rows:   rows,
		})
	}
	md.PlainText("")
}
