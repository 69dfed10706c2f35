package cmdline

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xcawolfe-amzn/zax/internal/pipeline"
	"github.com/xcawolfe-amzn/zax/internal/style"
)

// FormatSummary renders a check Summary to the CLI stdout format:
// literal lines, integers interpolated in base 10, certain lines omitted
// conditionally. Each line is styled as a whole (color only, gated on
// stdout being a terminal) so the literal text any line contains stays
// byte-contiguous for callers that scan for it.
func FormatSummary(s pipeline.Summary, deopt bool) string {
	tty := style.Stdout()
	var b strings.Builder

	if !deopt {
		line := fmt.Sprintf("Δ %d files changed → %d tests affected", s.DirtyCount, s.AffectedCount)
		writeLine(&b, line, style.Dim, tty)
	}

	if s.ESLintSkipped {
		line := fmt.Sprintf("eslint: skipped (%s)", s.ESLintSkipReason)
		writeLine(&b, line, style.Warning, tty)
	}

	if s.VitestSkipped {
		writeLine(&b, "No tests affected, skipping vitest", style.Warning, tty)
	}

	deltaLine := fmt.Sprintf("%d new failures, %d fixed | %d new findings, %d fixed",
		s.NewTestFailures, s.FixedTestFailures, s.NewFindings, s.FixedFindings)
	deltaStyle := style.Success
	if s.NewTestFailures > 0 || s.NewFindings > 0 {
		deltaStyle = style.Failure
	}
	writeLine(&b, deltaLine, deltaStyle, tty)

	quality := "all"
	if s.SkippedCount > 0 {
		quality = "some"
	}
	secs := int(s.DurationSeconds + 0.5)
	var passLine string
	if s.SkippedCount > 0 {
		passLine = fmt.Sprintf("%s tests passed in %ds (skipped %d unaffected)", quality, secs, s.SkippedCount)
	} else {
		passLine = fmt.Sprintf("%s tests passed in %ds", quality, secs)
	}
	writeLine(&b, passLine, style.Bold, tty)

	return strings.TrimRight(b.String(), "\n")
}

func writeLine(b *strings.Builder, line string, sty lipgloss.Style, tty bool) {
	if tty {
		line = sty.Render(line)
	}
	b.WriteString(line)
	b.WriteString("\n")
}

// ExitCode returns 0 iff the run introduced no new test failures and no
// new findings.
func ExitCode(s pipeline.Summary) int {
	if s.NewTestFailures == 0 && s.NewFindings == 0 {
		return 0
	}
	return 1
}
