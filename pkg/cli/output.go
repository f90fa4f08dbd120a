package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/executor"
)

// Output colors. color.NoColor disables them for NO_COLOR, non-terminals
// and --no-ansi.
var (
	passColor = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	skipColor = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
	grayColor = color.New(color.FgHiBlack)
	boldColor = color.New(color.Bold)
	infoColor = color.New(color.FgCyan)
)

// slowThresholdMs marks steps slower than this in yellow.
const slowThresholdMs = 5000

// printer writes live progress. Callbacks arrive from every worker, so
// writes are serialized.
type printer struct {
	w  io.Writer
	mu sync.Mutex
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) section(title string) {
	p.printf("\n%s\n", boldColor.Sprint(title))
}

func (p *printer) onTestStart(testIdx, totalTests int, title, file string) {
	p.printf("\n%s %s %s\n",
		infoColor.Sprintf("[%d/%d]", testIdx+1, totalTests),
		boldColor.Sprint(title),
		grayColor.Sprintf("(%s)", file))
}

func (p *printer) onStepComplete(res core.StepResult) {
	ms := res.Duration.Milliseconds()
	durStr := formatDuration(ms)

	switch res.Status {
	case core.StatusPassed:
		symbol := passColor.Sprint("✓")
		dur := grayColor.Sprintf("(%s)", durStr)
		if ms > slowThresholdMs {
			symbol = warnColor.Sprint("⚠")
			dur = warnColor.Sprintf("(%s)", durStr)
		}
		p.printf("    %s %s %s\n", symbol, res.Label, dur)
	case core.StatusSkipped:
		p.printf("    %s %s\n", skipColor.Sprint("-"), grayColor.Sprint(res.Label))
	default:
		p.printf("    %s %s (%s)\n", failColor.Sprint("✗"), res.Label, durStr)
		if res.Error != "" {
			p.printf("      %s %s\n", grayColor.Sprint("╰─"), res.Error)
		}
	}
}

func (p *printer) onTestEnd(title string, status core.StepStatus, durationMs int64) {
	dur := grayColor.Sprint(formatDuration(durationMs))
	switch status {
	case core.StatusPassed:
		p.printf("%s %s %s\n", passColor.Sprint("✓"), title, dur)
	case core.StatusSkipped:
		p.printf("%s %s %s\n", skipColor.Sprint("-"), title, dur)
	default:
		p.printf("%s %s %s\n", failColor.Sprint("✗"), title, dur)
	}
}

func (p *printer) printSummary(result *executor.RunResult) {
	totalSteps, passedSteps, failedSteps, skippedSteps := 0, 0, 0, 0
	for _, tr := range result.Tests {
		totalSteps += tr.TotalSteps
		passedSteps += tr.PassedSteps
		failedSteps += tr.FailedSteps
		skippedSteps += tr.SkippedSteps
	}

	p.printf("\n")
	if passedSteps > 0 {
		p.printf("  %s (%s)\n", passColor.Sprintf("%d steps passing", passedSteps), formatDuration(result.Duration))
	}
	if failedSteps > 0 {
		p.printf("  %s\n", failColor.Sprintf("%d steps failing", failedSteps))
	}
	if skippedSteps > 0 {
		p.printf("  %s\n", skipColor.Sprintf("%d steps skipped", skippedSteps))
	}
	p.printf("\n")

	tableWidth := 92
	p.printf("%s\n", strings.Repeat("═", tableWidth))
	p.printf("  %-42s %6s %7s %6s %6s %6s %10s\n", "Test", "Status", "Steps", "Pass", "Fail", "Skip", "Duration")
	p.printf("%s\n", strings.Repeat("─", tableWidth))

	for _, tr := range result.Tests {
		var status string
		switch tr.Status {
		case core.StatusPassed:
			status = passColor.Sprintf("%6s", "✓ PASS")
		case core.StatusSkipped:
			status = skipColor.Sprintf("%6s", "- SKIP")
		default:
			status = failColor.Sprintf("%6s", "✗ FAIL")
		}

		name := tr.Title
		if len(name) > 42 {
			name = name[:39] + "..."
		}
		p.printf("  %-42s %s %7d %6d %6d %6d %10s\n",
			name, status,
			tr.TotalSteps, tr.PassedSteps, tr.FailedSteps, tr.SkippedSteps,
			formatDuration(tr.Duration.Milliseconds()))
	}

	p.printf("%s\n", strings.Repeat("─", tableWidth))
	statusColor := passColor
	if result.FailedTests > 0 {
		statusColor = failColor
	}
	p.printf("  %s %s %7d %6d %6d %6d %10s\n",
		boldColor.Sprintf("%-42s", "TOTAL"),
		statusColor.Sprintf("%6s", fmt.Sprintf("%d/%d", result.PassedTests, result.TotalTests)),
		totalSteps, passedSteps, failedSteps, skippedSteps,
		formatDuration(result.Duration))
	p.printf("%s\n", strings.Repeat("═", tableWidth))
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}

// resolveOutputDir determines the report directory.
//   - flatten unset: <output>/<timestamp>/
//   - flatten set: <output>/
func resolveOutputDir(output string, flatten bool, now time.Time) string {
	if output == "" {
		output = "reports"
	}
	if flatten {
		return filepath.Clean(output)
	}
	return filepath.Join(output, now.Format("2006-01-02_15-04-05"))
}
