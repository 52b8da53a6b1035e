// Package output provides terminal output utilities for logport.
//
// Tables are plain ASCII with optional ANSI color. Spinners and progress
// bars animate only on a terminal and print a single line otherwise.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/logport/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// FileState describes an allow-listed path on disk.
type FileState struct {
	Exists bool
	Size   int64
}

// RenderAllowedTable renders allow-list entries, newest state of each file
// taken from states (keyed by path). Entries missing from states show "?".
func RenderAllowedTable(entries []*store.AllowedLog, states map[string]FileState) string {
	if len(entries) == 0 {
		return "No allowed logs. Add one with 'logport allow add <path>'.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-48s %-9s %-15s %s\n", "Path", "Size", "Added", "Note"))
	sb.WriteString(strings.Repeat("─", 90))
	sb.WriteString("\n")

	for _, e := range entries {
		size := "?"
		if st, ok := states[e.Path]; ok {
			if st.Exists {
				size = formatSize(st.Size)
			} else {
				size = colorize(colorRed, "missing")
			}
		}
		sb.WriteString(fmt.Sprintf("%-48s %-9s %-15s %s\n",
			truncate(e.Path, 48),
			size,
			formatRelativeTime(e.AddedAt),
			colorize(colorGray, truncate(e.Note, 30))))
	}

	return sb.String()
}

// StatusInfo is what 'logport status' reports.
type StatusInfo struct {
	Running      bool
	PID          int
	Address      string
	Mode         string
	Watchers     int
	OpenLogs     []string
	AllowedCount int
	DBPath       string
}

// RenderStatus renders the daemon status block.
func RenderStatus(info StatusInfo) string {
	var sb strings.Builder

	state := colorize(colorRed, "stopped")
	if info.Running {
		state = colorize(colorGreen, fmt.Sprintf("running (PID %d)", info.PID))
	}
	sb.WriteString(fmt.Sprintf("%-14s %s\n", "Daemon:", state))
	if info.Address != "" {
		sb.WriteString(fmt.Sprintf("%-14s %s\n", "Address:", info.Address))
	}
	if info.Mode != "" {
		sb.WriteString(fmt.Sprintf("%-14s %s\n", "Content mode:", info.Mode))
	}
	sb.WriteString(fmt.Sprintf("%-14s %d\n", "Allowed logs:", info.AllowedCount))
	if info.DBPath != "" {
		sb.WriteString(fmt.Sprintf("%-14s %s\n", "Database:", info.DBPath))
	}

	if !info.Running {
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%-14s %d\n", "Watchers:", info.Watchers))
	if len(info.OpenLogs) == 0 {
		sb.WriteString(fmt.Sprintf("%-14s %s\n", "Open logs:", colorize(colorGray, "none")))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("%-14s %s\n", "Open logs:", colorize(colorYellow, fmt.Sprintf("%d", len(info.OpenLogs)))))
	for _, p := range info.OpenLogs {
		sb.WriteString("  " + p + "\n")
	}
	return sb.String()
}

// formatSize converts bytes to human-readable size (GB, MB, KB).
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
