package store

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// AffectedTests is the response shape of GetAffectedTests.
type AffectedTests struct {
	DirtyFiles []string `json:"dirty_files"`
	TestFiles  []string `json:"test_files"`
	IsFullRun  bool     `json:"is_full_run"`
}

var testFilePattern = regexp.MustCompile(`(\.test\.|\.spec\.)|(^|/)__tests__/`)

// RecordDirtyFiles replaces the dirty-file set for workspaceID with paths,
// each workspace-root-relative. Call this before GetAffectedTests in a
// check pipeline run.
func (s *Store) RecordDirtyFiles(ctx context.Context, workspaceID string, paths []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning dirty-files transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dirty_files WHERE workspace_id = ?`, workspaceID); err != nil {
		return fmt.Errorf("clearing dirty files: %w", err)
	}
	now := time.Now().UnixNano()
	for _, p := range paths {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO dirty_files (workspace_id, path, observed_at) VALUES (?, ?, ?)`,
			workspaceID, p, now,
		); err != nil {
			return fmt.Errorf("recording dirty file %q: %w", p, err)
		}
	}
	return tx.Commit()
}

// GetAffectedTests implements the policy in the affected-tests algorithm:
// a forced full run bypasses dirty-file consultation entirely; an empty
// dirty set means nothing to run; a non-empty set maps each dirty file to
// itself (if already a test file) or to a co-located test file candidate,
// scoped to packageScope when non-empty.
func (s *Store) GetAffectedTests(ctx context.Context, workspaceID string, forceFull bool, packageScope string) (AffectedTests, error) {
	if forceFull {
		return AffectedTests{IsFullRun: true}, nil
	}

	dirty, err := s.dirtyFiles(ctx, workspaceID, packageScope)
	if err != nil {
		return AffectedTests{}, err
	}
	if len(dirty) == 0 {
		return AffectedTests{IsFullRun: false}, nil
	}

	seen := map[string]bool{}
	var testFiles []string
	for _, f := range dirty {
		for _, candidate := range mapDirtyToTests(f) {
			if !seen[candidate] {
				seen[candidate] = true
				testFiles = append(testFiles, candidate)
			}
		}
	}

	return AffectedTests{DirtyFiles: dirty, TestFiles: testFiles, IsFullRun: false}, nil
}

func (s *Store) dirtyFiles(ctx context.Context, workspaceID, packageScope string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM dirty_files WHERE workspace_id = ? ORDER BY path`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("querying dirty files: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scanning dirty file: %w", err)
		}
		if packageScope != "" && !strings.HasPrefix(filepath.ToSlash(path), packageScope+"/") {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

// mapDirtyToTests returns the test-file candidates a single dirty file
// implies: itself, if it already looks like a test file; otherwise a
// same-directory co-located test file guess. This is the simple
// placeholder the affected-tests RPC contract is designed to tolerate
// being replaced by a richer dependency-graph walk later.
func mapDirtyToTests(path string) []string {
	if testFilePattern.MatchString(path) {
		return []string{path}
	}

	ext := filepath.Ext(path)
	if ext == "" {
		return nil
	}
	base := strings.TrimSuffix(path, ext)
	return []string{base + ".test" + ext, base + ".spec" + ext}
}
