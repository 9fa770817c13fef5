package cmd

import (
	"strings"

	"github.com/fatih/color"
	"github.com/khanhnv2901/webscan/internal/checker"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "done":
		return colorSuccess(status)
	case "error", "fail", "failed":
		return colorError(status)
	case "pending", "running":
		return colorInfo(status)
	default:
		return status
	}
}

func formatSeverityWithColor(sev checker.Severity) string {
	label := strings.ToUpper(string(sev))
	switch sev {
	case checker.SeverityHigh:
		return colorError(label)
	case checker.SeverityMedium:
		return colorWarn(label)
	case checker.SeverityLow:
		return colorInfo(label)
	default:
		return label
	}
}

// formatPortState highlights reachable ports; an open port is the interesting case.
func formatPortState(state string) string {
	switch {
	case state == "open":
		return colorWarn(state)
	case strings.HasPrefix(state, "open|"):
		return colorInfo(state)
	default:
		return state
	}
}
