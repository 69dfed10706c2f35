// Package pipeline glues together affected-test selection, tool spawning,
// manifest ingestion, and delta computation into the engine's one
// /check operation.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/xcawolfe-amzn/zax/internal/cachedir"
	"github.com/xcawolfe-amzn/zax/internal/errkind"
	"github.com/xcawolfe-amzn/zax/internal/pm"
	"github.com/xcawolfe-amzn/zax/internal/rpc"
	"github.com/xcawolfe-amzn/zax/internal/store"
	"github.com/xcawolfe-amzn/zax/internal/toolrunner"
	"github.com/xcawolfe-amzn/zax/internal/vcs"
)

// Request is the input to one check invocation.
type Request struct {
	WorkspaceID   string
	WorkspaceRoot string
	PackageScope  string
	Deopt         bool
}

// Summary is the check pipeline's result, the delta summary augmented with
// the fields the CLI's stdout format needs.
type Summary struct {
	store.DeltaSummary
	ESLintSkipped    bool    `json:"eslint_skipped"`
	ESLintSkipReason string  `json:"eslint_skip_reason,omitempty"`
	AffectedCount    int     `json:"affected_count"`
	SkippedCount     int     `json:"skipped_count"`
	DirtyCount       int     `json:"dirty_count"`
	VitestSkipped    bool    `json:"vitest_skipped"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// Run executes one check: preflight, affected-test selection, tool
// spawns, path normalization, manifest ingestion, delta summary.
// toolTimeout is the wall-clock budget applied to each tool spawn
// (config.Config.ToolTimeout, or toolrunner.DefaultToolTimeout).
func Run(ctx context.Context, req Request, dir *cachedir.Dir, client *rpc.Client, toolTimeout time.Duration) (Summary, error) {
	start := time.Now()

	manager := pm.Detect(req.WorkspaceRoot)
	if !pm.HasNodeModules(req.WorkspaceRoot) {
		return Summary{}, errkind.Wrap(errkind.DepsNotInstalled, "node_modules not found; run %q", manager.InstallCommand())
	}

	runID := uuid.NewString()
	artifactDir, err := dir.EnsureArtifactDir(runID)
	if err != nil {
		return Summary{}, fmt.Errorf("creating artifact directory: %w", err)
	}

	dirty, err := vcs.DirtyFiles(ctx, req.WorkspaceRoot)
	if err != nil {
		return Summary{}, fmt.Errorf("detecting dirty files: %w", err)
	}
	if err := client.RecordDirtyFiles(ctx, req.WorkspaceID, dirty); err != nil {
		return Summary{}, fmt.Errorf("recording dirty files: %w", err)
	}

	affected, err := client.GetAffectedTests(ctx, req.WorkspaceID, req.Deopt, req.PackageScope)
	if err != nil {
		return Summary{}, fmt.Errorf("getting affected tests: %w", err)
	}

	var artifacts []store.Artifact
	vitestSkipped := false

	runTests := affected.IsFullRun || len(affected.TestFiles) > 0
	if runTests {
		var testFiles []string
		if !affected.IsFullRun {
			testFiles = affected.TestFiles
		}
		outPath := filepath.Join(artifactDir, "vitest.json")
		if _, err := toolrunner.RunVitest(ctx, manager, req.WorkspaceRoot, outPath, testFiles, toolTimeout); err != nil {
			return Summary{}, err
		}
		// A zero-exit run with no output file (e.g. no matching tests)
		// contributes no artifact; normalize only what exists.
		if _, err := os.Stat(outPath); err == nil {
			if err := toolrunner.NormalizeVitestOutput(outPath, req.WorkspaceRoot); err != nil {
				return Summary{}, err
			}
			artifacts = append(artifacts, store.Artifact{
				ArtifactID: runID + "-vitest",
				Kind:       store.ArtifactTestFailure,
				Path:       outPath,
			})
		}
	} else {
		vitestSkipped = true
	}

	eslintOut := filepath.Join(artifactDir, "eslint.json")
	lintResult, err := toolrunner.RunESLint(ctx, manager, req.WorkspaceRoot, eslintOut, req.PackageScope, toolTimeout)
	if err != nil {
		return Summary{}, err
	}
	eslintSkipped := lintResult.Skipped
	eslintSkipReason := lintResult.SkipReason
	if !lintResult.Skipped {
		if _, err := os.Stat(eslintOut); err == nil {
			if err := toolrunner.NormalizeESLintOutput(eslintOut, req.WorkspaceRoot); err != nil {
				return Summary{}, err
			}
			artifacts = append(artifacts, store.Artifact{
				ArtifactID: runID + "-eslint",
				Kind:       store.ArtifactFinding,
				Path:       eslintOut,
			})
		}
	}

	manifest := store.Manifest{
		WorkspaceID: req.WorkspaceID,
		RunID:       runID,
		Artifacts:   artifacts,
	}
	if err := client.IngestManifest(ctx, manifest, req.PackageScope); err != nil {
		return Summary{}, fmt.Errorf("ingesting manifest: %w", err)
	}

	delta, err := client.GetDeltaSummary(ctx, req.WorkspaceID, req.PackageScope)
	if err != nil {
		return Summary{}, fmt.Errorf("getting delta summary: %w", err)
	}

	skippedCount := 0
	if !affected.IsFullRun {
		skippedCount = len(affected.DirtyFiles) - len(affected.TestFiles)
		if skippedCount < 0 {
			skippedCount = 0
		}
	}

	return Summary{
		DeltaSummary:     delta,
		ESLintSkipped:    eslintSkipped,
		ESLintSkipReason: eslintSkipReason,
		AffectedCount:    len(affected.TestFiles),
		SkippedCount:     skippedCount,
		DirtyCount:       len(affected.DirtyFiles),
		VitestSkipped:    vitestSkipped,
		DurationSeconds:  time.Since(start).Seconds(),
	}, nil
}
