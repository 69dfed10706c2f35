package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xcawolfe-amzn/zax/internal/cachedir"
	"github.com/xcawolfe-amzn/zax/internal/errkind"
	"github.com/xcawolfe-amzn/zax/internal/workspace"
)

// IngestManifest parses every artifact named in m and writes one runs row
// plus all derived failure/finding rows in a single transaction.
// artifactsRoot is the workspace cache dir's artifacts root; every
// artifact path must resolve inside artifactsRoot/<run_id>/.
func (s *Store) IngestManifest(ctx context.Context, m Manifest, packageScope, artifactsRoot string) error {
	if !workspace.ValidID(m.WorkspaceID) {
		return errkind.Wrap(errkind.Validation, "invalid workspace_id %q", m.WorkspaceID)
	}

	runDir := filepath.Join(artifactsRoot, m.RunID)
	var failures []TestFailure
	var findings []Finding

	for _, a := range m.Artifacts {
		abs, err := filepath.Abs(a.Path)
		if err != nil {
			return errkind.Wrap(errkind.Validation, "resolving artifact path %q: %v", a.Path, err)
		}
		absRunDir, err := filepath.Abs(runDir)
		if err != nil {
			return fmt.Errorf("resolving run directory %q: %w", runDir, err)
		}
		if !strings.HasPrefix(abs, absRunDir+string(filepath.Separator)) && abs != absRunDir {
			return errkind.Wrap(errkind.Validation, "artifact path %q is outside %s", a.Path, absRunDir)
		}

		switch a.Kind {
		case ArtifactTestFailure:
			parsed, err := ParseVitestReport(abs, packageScope)
			if err != nil {
				return err
			}
			failures = append(failures, parsed...)
		case ArtifactFinding:
			parsed, err := ParseESLintReport(abs, packageScope)
			if err != nil {
				return err
			}
			findings = append(findings, parsed...)
		default:
			return errkind.Wrap(errkind.Validation, "unknown artifact kind %q", a.Kind)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ingest transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, workspace_id, package_scope, started_at) VALUES (?, ?, ?, ?)`,
		m.RunID, m.WorkspaceID, packageScope, time.Now().UnixNano(),
	); err != nil {
		return fmt.Errorf("inserting run %q: %w", m.RunID, err)
	}

	for _, f := range failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_failures (run_id, stable_id, test_id, file, message, package) VALUES (?, ?, ?, ?, ?, ?)`,
			m.RunID, f.StableID, f.TestID, f.File, f.Message, f.Package,
		); err != nil {
			return fmt.Errorf("inserting test failure for run %q: %w", m.RunID, err)
		}
	}

	for _, fi := range findings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO findings (run_id, stable_id, tool, rule, file, start_line, start_column, end_line, end_column, message, package) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.RunID, fi.StableID, fi.Tool, fi.Rule, fi.File, fi.StartLine, fi.StartColumn, fi.EndLine, fi.EndColumn, fi.Message, fi.Package,
		); err != nil {
			return fmt.Errorf("inserting finding for run %q: %w", m.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ingest transaction: %w", err)
	}

	s.pruneArtifacts(ctx, m.WorkspaceID, artifactsRoot)
	return nil
}

// pruneArtifacts removes artifact directories for runs older than the 20
// most recent for workspaceID, run after a successful ingestion to keep the
// cache directory from growing unbounded. Failures are ignored and not
// logged; this is ambient housekeeping, not a correctness concern.
func (s *Store) pruneArtifacts(ctx context.Context, workspaceID, artifactsRoot string) {
	const keep = 20
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM runs WHERE workspace_id = ? ORDER BY started_at DESC LIMIT -1 OFFSET ?`,
		workspaceID, keep,
	)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var runID string
		if err := rows.Scan(&runID); err != nil {
			continue
		}
		_ = cachedir.RemoveArtifactDir(artifactsRoot, runID)
	}
}
