package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertRun(t *testing.T, s *Store, runID, workspaceID, scope string) {
	t.Helper()
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO runs (run_id, workspace_id, package_scope, started_at) VALUES (?, ?, ?, ?)`,
		runID, workspaceID, scope, 0)
	if err != nil {
		t.Fatalf("inserting run: %v", err)
	}
}

func insertFailure(t *testing.T, s *Store, runID, stableID, pkg string) {
	t.Helper()
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO test_failures (run_id, stable_id, test_id, file, message, package) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stableID, stableID, "f.ts", "", pkg)
	if err != nil {
		t.Fatalf("inserting failure: %v", err)
	}
}

func TestGetDeltaSummary_Baseline(t *testing.T) {
	s := openTestStore(t)
	insertRun(t, s, "run-1", "abcdef0123456789", "")
	insertFailure(t, s, "run-1", "f1", "")
	insertFailure(t, s, "run-1", "f2", "")

	summary, err := s.GetDeltaSummary(context.Background(), "abcdef0123456789", "")
	if err != nil {
		t.Fatalf("GetDeltaSummary: %v", err)
	}
	if summary.NewTestFailures != 2 || summary.FixedTestFailures != 0 {
		t.Errorf("baseline summary = %+v, want new=2 fixed=0", summary)
	}
}

func TestGetDeltaSummary_Idempotent(t *testing.T) {
	s := openTestStore(t)
	insertRun(t, s, "run-1", "abcdef0123456789", "")
	insertFailure(t, s, "run-1", "f1", "")
	insertRun(t, s, "run-2", "abcdef0123456789", "")
	insertFailure(t, s, "run-2", "f1", "")

	summary, err := s.GetDeltaSummary(context.Background(), "abcdef0123456789", "")
	if err != nil {
		t.Fatalf("GetDeltaSummary: %v", err)
	}
	if summary.NewTestFailures != 0 || summary.FixedTestFailures != 0 {
		t.Errorf("unchanged summary = %+v, want new=0 fixed=0", summary)
	}
}

func TestGetDeltaSummary_NewAndFixed(t *testing.T) {
	s := openTestStore(t)
	insertRun(t, s, "run-1", "abcdef0123456789", "")
	insertFailure(t, s, "run-1", "f1", "")
	insertFailure(t, s, "run-1", "f2", "")
	insertRun(t, s, "run-2", "abcdef0123456789", "")
	insertFailure(t, s, "run-2", "f2", "")
	insertFailure(t, s, "run-2", "f3", "")

	summary, err := s.GetDeltaSummary(context.Background(), "abcdef0123456789", "")
	if err != nil {
		t.Fatalf("GetDeltaSummary: %v", err)
	}
	if summary.NewTestFailures != 1 || summary.FixedTestFailures != 1 {
		t.Errorf("summary = %+v, want new=1 fixed=1", summary)
	}
}

func TestGetDeltaSummary_ScopedByPackage(t *testing.T) {
	s := openTestStore(t)
	insertRun(t, s, "run-1", "abcdef0123456789", "packages/a")
	insertFailure(t, s, "run-1", "f1", "packages/a")
	insertRun(t, s, "run-1b", "abcdef0123456789", "packages/b")
	insertFailure(t, s, "run-1b", "g1", "packages/b")

	summary, err := s.GetDeltaSummary(context.Background(), "abcdef0123456789", "packages/a")
	if err != nil {
		t.Fatalf("GetDeltaSummary: %v", err)
	}
	if summary.NewTestFailures != 1 {
		t.Errorf("scoped summary = %+v, want new=1 (only packages/a)", summary)
	}
}

func TestGetAffectedTests_ForceFull(t *testing.T) {
	s := openTestStore(t)
	affected, err := s.GetAffectedTests(context.Background(), "abcdef0123456789", true, "")
	if err != nil {
		t.Fatalf("GetAffectedTests: %v", err)
	}
	if !affected.IsFullRun || len(affected.TestFiles) != 0 {
		t.Errorf("GetAffectedTests(forceFull) = %+v, want IsFullRun=true, empty TestFiles", affected)
	}
}

func TestGetAffectedTests_EmptyDirtySetSkipsRunner(t *testing.T) {
	s := openTestStore(t)
	affected, err := s.GetAffectedTests(context.Background(), "abcdef0123456789", false, "")
	if err != nil {
		t.Fatalf("GetAffectedTests: %v", err)
	}
	if affected.IsFullRun || len(affected.TestFiles) != 0 {
		t.Errorf("GetAffectedTests(no dirty files) = %+v, want IsFullRun=false, empty TestFiles", affected)
	}
}

func TestGetAffectedTests_MapsDirtyToTests(t *testing.T) {
	s := openTestStore(t)
	if err := s.RecordDirtyFiles(context.Background(), "abcdef0123456789", []string{"src/foo.ts", "src/bar.test.ts"}); err != nil {
		t.Fatalf("RecordDirtyFiles: %v", err)
	}

	affected, err := s.GetAffectedTests(context.Background(), "abcdef0123456789", false, "")
	if err != nil {
		t.Fatalf("GetAffectedTests: %v", err)
	}
	if affected.IsFullRun {
		t.Errorf("GetAffectedTests() IsFullRun = true, want false")
	}
	want := map[string]bool{"src/foo.test.ts": true, "src/foo.spec.ts": true, "src/bar.test.ts": true}
	for _, f := range affected.TestFiles {
		if !want[f] {
			t.Errorf("unexpected test file %q in %v", f, affected.TestFiles)
		}
	}
}
