package cmdline

import (
	"strings"
	"testing"

	"github.com/xcawolfe-amzn/zax/internal/pipeline"
	"github.com/xcawolfe-amzn/zax/internal/store"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		s    pipeline.Summary
		want int
	}{
		{"clean", pipeline.Summary{}, 0},
		{"new failures", pipeline.Summary{DeltaSummary: store.DeltaSummary{NewTestFailures: 1}}, 1},
		{"new findings", pipeline.Summary{DeltaSummary: store.DeltaSummary{NewFindings: 1}}, 1},
		{"only fixed", pipeline.Summary{DeltaSummary: store.DeltaSummary{FixedTestFailures: 3}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.s); got != tt.want {
				t.Errorf("ExitCode(%+v) = %d, want %d", tt.s, got, tt.want)
			}
		})
	}
}

func TestFormatSummary_S1FirstRunWithFailures(t *testing.T) {
	s := pipeline.Summary{
		DeltaSummary: store.DeltaSummary{NewTestFailures: 2},
	}
	got := FormatSummary(s, false)
	want := "2 new failures, 0 fixed | 0 new findings, 0 fixed"
	if !strings.Contains(got, want) {
		t.Errorf("FormatSummary() = %q, want it to contain %q", got, want)
	}
}

func TestFormatSummary_S2SecondRunUnchanged(t *testing.T) {
	s := pipeline.Summary{}
	got := FormatSummary(s, false)
	want := "0 new failures, 0 fixed | 0 new findings, 0 fixed"
	if !strings.Contains(got, want) {
		t.Errorf("FormatSummary() = %q, want it to contain %q", got, want)
	}
	if ExitCode(s) != 0 {
		t.Errorf("ExitCode() = %d, want 0", ExitCode(s))
	}
}

func TestFormatSummary_ESLintSkipped(t *testing.T) {
	s := pipeline.Summary{ESLintSkipped: true, ESLintSkipReason: "no config"}
	got := FormatSummary(s, false)
	if !strings.Contains(got, "eslint: skipped (no config)") {
		t.Errorf("FormatSummary() = %q, want eslint skip line", got)
	}
}

func TestFormatSummary_VitestSkipped(t *testing.T) {
	s := pipeline.Summary{VitestSkipped: true}
	got := FormatSummary(s, false)
	if !strings.Contains(got, "No tests affected, skipping vitest") {
		t.Errorf("FormatSummary() = %q, want vitest skip line", got)
	}
}

func TestFormatSummary_DeoptOmitsDeltaLine(t *testing.T) {
	s := pipeline.Summary{DirtyCount: 3, AffectedCount: 5}
	got := FormatSummary(s, true)
	if strings.Contains(got, "files changed") {
		t.Errorf("FormatSummary(deopt=true) = %q, want no Δ line", got)
	}
}

func TestFormatSummary_DeltaLinePresentWithoutDeopt(t *testing.T) {
	s := pipeline.Summary{DirtyCount: 3, AffectedCount: 5}
	got := FormatSummary(s, false)
	if !strings.Contains(got, "Δ 3 files changed → 5 tests affected") {
		t.Errorf("FormatSummary() = %q, want Δ line", got)
	}
}

func TestFormatSummary_PassLineUsesWholeSeconds(t *testing.T) {
	s := pipeline.Summary{DurationSeconds: 2.7}
	got := FormatSummary(s, false)
	if !strings.Contains(got, "all tests passed in 3s") {
		t.Errorf("FormatSummary() = %q, want \"all tests passed in 3s\"", got)
	}
}

func TestFormatSummary_SkippedUnaffectedNoted(t *testing.T) {
	s := pipeline.Summary{SkippedCount: 4}
	got := FormatSummary(s, false)
	if !strings.Contains(got, "skipped 4 unaffected") {
		t.Errorf("FormatSummary() = %q, want skipped-unaffected note", got)
	}
	if !strings.Contains(got, "some tests passed") {
		t.Errorf("FormatSummary() = %q, want \"some tests passed\"", got)
	}
}
