package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeArtifact places content at artifactsRoot/<runID>/<name> the way the
// check pipeline does, so ingestion's path-containment check passes.
func writeArtifact(t *testing.T, artifactsRoot, runID, name, content string) string {
	t.Helper()
	dir := filepath.Join(artifactsRoot, runID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestManifest_RoundTripDelta(t *testing.T) {
	s := openTestStore(t)
	artifactsRoot := t.TempDir()
	ctx := context.Background()
	const ws = "abcdef0123456789"

	// First run: two failures, one finding. Baseline semantics.
	p1 := writeArtifact(t, artifactsRoot, "run-1", "vitest.json", sampleVitestReport)
	l1 := writeArtifact(t, artifactsRoot, "run-1", "eslint.json", sampleESLintReport)
	m1 := Manifest{
		WorkspaceID: ws,
		RunID:       "run-1",
		Artifacts: []Artifact{
			{ArtifactID: "run-1-vitest", Kind: ArtifactTestFailure, Path: p1},
			{ArtifactID: "run-1-eslint", Kind: ArtifactFinding, Path: l1},
		},
	}
	if err := s.IngestManifest(ctx, m1, "", artifactsRoot); err != nil {
		t.Fatalf("first IngestManifest: %v", err)
	}

	d1, err := s.GetDeltaSummary(ctx, ws, "")
	if err != nil {
		t.Fatalf("GetDeltaSummary: %v", err)
	}
	if d1.NewTestFailures != 2 || d1.FixedTestFailures != 0 || d1.NewFindings != 2 || d1.FixedFindings != 0 {
		t.Errorf("baseline delta = %+v, want new_t=2 fixed_t=0 new_f=2 fixed_f=0", d1)
	}

	// Second run, identical outputs: everything cancels out.
	p2 := writeArtifact(t, artifactsRoot, "run-2", "vitest.json", sampleVitestReport)
	l2 := writeArtifact(t, artifactsRoot, "run-2", "eslint.json", sampleESLintReport)
	m2 := Manifest{
		WorkspaceID: ws,
		RunID:       "run-2",
		Artifacts: []Artifact{
			{ArtifactID: "run-2-vitest", Kind: ArtifactTestFailure, Path: p2},
			{ArtifactID: "run-2-eslint", Kind: ArtifactFinding, Path: l2},
		},
	}
	if err := s.IngestManifest(ctx, m2, "", artifactsRoot); err != nil {
		t.Fatalf("second IngestManifest: %v", err)
	}

	d2, err := s.GetDeltaSummary(ctx, ws, "")
	if err != nil {
		t.Fatalf("GetDeltaSummary: %v", err)
	}
	if d2 != (DeltaSummary{}) {
		t.Errorf("unchanged delta = %+v, want all zero", d2)
	}

	// Third run: no artifacts at all (everything fixed).
	m3 := Manifest{WorkspaceID: ws, RunID: "run-3"}
	if err := s.IngestManifest(ctx, m3, "", artifactsRoot); err != nil {
		t.Fatalf("third IngestManifest: %v", err)
	}

	d3, err := s.GetDeltaSummary(ctx, ws, "")
	if err != nil {
		t.Fatalf("GetDeltaSummary: %v", err)
	}
	if d3.NewTestFailures != 0 || d3.FixedTestFailures != 2 || d3.NewFindings != 0 || d3.FixedFindings != 2 {
		t.Errorf("all-fixed delta = %+v, want fixed_t=2 fixed_f=2", d3)
	}
}

func TestIngestManifest_RejectsInvalidWorkspaceID(t *testing.T) {
	s := openTestStore(t)
	m := Manifest{WorkspaceID: "not-hex", RunID: "run-1"}
	if err := s.IngestManifest(context.Background(), m, "", t.TempDir()); err == nil {
		t.Errorf("IngestManifest accepted invalid workspace id")
	}
}

func TestIngestManifest_RejectsArtifactOutsideRunDir(t *testing.T) {
	s := openTestStore(t)
	artifactsRoot := t.TempDir()
	outside := filepath.Join(t.TempDir(), "vitest.json")
	if err := os.WriteFile(outside, []byte(sampleVitestReport), 0o600); err != nil {
		t.Fatal(err)
	}

	m := Manifest{
		WorkspaceID: "abcdef0123456789",
		RunID:       "run-1",
		Artifacts:   []Artifact{{ArtifactID: "run-1-vitest", Kind: ArtifactTestFailure, Path: outside}},
	}
	if err := s.IngestManifest(context.Background(), m, "", artifactsRoot); err == nil {
		t.Errorf("IngestManifest accepted artifact path outside artifacts/<run_id>/")
	}
}

func TestIngestManifest_RejectsUnknownKind(t *testing.T) {
	s := openTestStore(t)
	artifactsRoot := t.TempDir()
	p := writeArtifact(t, artifactsRoot, "run-1", "mystery.json", "{}")

	m := Manifest{
		WorkspaceID: "abcdef0123456789",
		RunID:       "run-1",
		Artifacts:   []Artifact{{ArtifactID: "run-1-mystery", Kind: ArtifactKind("MYSTERY"), Path: p}},
	}
	if err := s.IngestManifest(context.Background(), m, "", artifactsRoot); err == nil {
		t.Errorf("IngestManifest accepted unknown artifact kind")
	}
}

func TestIngestManifest_ParseFailureLeavesNoRunRow(t *testing.T) {
	s := openTestStore(t)
	artifactsRoot := t.TempDir()
	p := writeArtifact(t, artifactsRoot, "run-1", "vitest.json", "not json")

	m := Manifest{
		WorkspaceID: "abcdef0123456789",
		RunID:       "run-1",
		Artifacts:   []Artifact{{ArtifactID: "run-1-vitest", Kind: ArtifactTestFailure, Path: p}},
	}
	if err := s.IngestManifest(context.Background(), m, "", artifactsRoot); err == nil {
		t.Fatalf("IngestManifest accepted malformed artifact")
	}

	var count int
	row := s.db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM runs WHERE run_id = 'run-1'`)
	if err := row.Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("failed ingest left %d runs rows, want 0", count)
	}
}
