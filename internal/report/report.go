// Package report formats a completed run's RunStats into the plain-text
// summary (or, with --stats-json, the JSON form) that the CLI prints to
// stdout after every run.
package report

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fellowapp/relay-dedup/internal/pipeline"
)

// GzipSize returns the gzip-compressed size of content at the default
// compression level.
func GzipSize(content []byte) (int64, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(content); err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}

// Timer measures wall-clock elapsed time for one run, in milliseconds.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMillis returns the elapsed time since NewTimer, in milliseconds.
func (t *Timer) ElapsedMillis() int64 {
	return time.Since(t.start).Milliseconds()
}

// Format renders stats as a plain-text summary suitable for printing to
// stderr. showGzip and showTiming alone decide whether the corresponding
// sections appear; a section that is shown prints its numbers even when
// they are zero.
func Format(stats pipeline.RunStats, showGzip, showTiming bool) string {
	var sb strings.Builder

	title := "Dedup Report"
	separator := strings.Repeat("─", len(title)+2)
	sb.WriteString(title + "\n")
	sb.WriteString(separator + "\n")

	fmt.Fprintf(&sb, "Files scanned:    %s\n", FormatInt(stats.FilesScanned))
	fmt.Fprintf(&sb, "Files skipped:    %s\n", FormatInt(stats.FilesSkipped))
	fmt.Fprintf(&sb, "Files rewritten:  %s\n", FormatInt(stats.FilesRewritten))
	fmt.Fprintf(&sb, "Extractions:      %s\n", FormatInt(stats.Extractions))
	fmt.Fprintf(&sb, "Passes run:       %s\n", FormatInt(stats.PassesRun))
	if stats.ExhaustedPasses {
		sb.WriteString("Passes run:       exhausted max_passes before a fixed point\n")
	}

	fmt.Fprintf(&sb, "Original size:    %s bytes\n", FormatInt(int(stats.OriginalBytes)))
	fmt.Fprintf(&sb, "Rewritten size:   %s bytes\n", FormatInt(int(stats.RewrittenBytes)))
	if stats.OriginalBytes > 0 {
		pct := 100 * (1 - float64(stats.RewrittenBytes)/float64(stats.OriginalBytes))
		fmt.Fprintf(&sb, "Size reduction:   %.1f%%\n", pct)
	}

	if showGzip {
		sb.WriteString("\nGzip:\n")
		fmt.Fprintf(&sb, "  Original:   %s bytes\n", FormatInt(int(stats.GzipOriginalBytes)))
		fmt.Fprintf(&sb, "  Rewritten:  %s bytes\n", FormatInt(int(stats.GzipRewrittenBytes)))
		if stats.GzipOriginalBytes > 0 {
			pct := 100 * (1 - float64(stats.GzipRewrittenBytes)/float64(stats.GzipOriginalBytes))
			fmt.Fprintf(&sb, "  Reduction:  %.1f%%\n", pct)
		}
	}

	if showTiming {
		fmt.Fprintf(&sb, "\nElapsed:          %s ms\n", FormatInt(int(stats.ElapsedMillis)))
	}

	return sb.String()
}

// FormatJSON renders stats as indented JSON, for --stats-json CI consumption
// in place of the human-readable Format summary. GzipOriginalBytes/
// GzipRewrittenBytes/ElapsedMillis are omitted when zero, via RunStats's own
// `omitempty` tags; unlike Format, no flag decides whether they appear.
func FormatJSON(stats pipeline.RunStats) (string, error) {
	b, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// FormatInt formats an integer with comma separators (e.g. 89420 -> "89,420").
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}

	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result []byte
	start := len(s) % 3
	if start == 0 {
		start = 3
	}
	result = append(result, s[:start]...)
	for i := start; i < len(s); i += 3 {
		result = append(result, ',')
		result = append(result, s[i:i+3]...)
	}

	return string(result)
}
