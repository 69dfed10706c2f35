package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/xcawolfe-amzn/zax/internal/errkind"
	"github.com/xcawolfe-amzn/zax/internal/store"
	"github.com/xcawolfe-amzn/zax/internal/util"
	"github.com/xcawolfe-amzn/zax/internal/workspace"
)

// Server hosts the backend's RPC surface over localhost TCP, binding to an
// ephemeral port and writing it to portFilePath as plain text, per the
// engine↔backend bring-up handshake.
type Server struct {
	store         *store.Store
	artifactsRoot string
	httpSrv       *http.Server
}

// NewServer wires an RPC server around an already-open Store. artifactsRoot
// is the workspace cache dir's artifacts root, used to bound ingested
// artifact paths.
func NewServer(st *store.Store, artifactsRoot string) *Server {
	s := &Server{store: st, artifactsRoot: artifactsRoot}
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/ingest-manifest", s.handleIngestManifest)
	mux.HandleFunc("/get-delta-summary", s.handleGetDeltaSummary)
	mux.HandleFunc("/get-affected-tests", s.handleGetAffectedTests)
	mux.HandleFunc("/record-dirty-files", s.handleRecordDirtyFiles)
	s.httpSrv = &http.Server{Handler: mux}
	return s
}

// ListenAndServe binds 127.0.0.1:0, writes the bound port to portFilePath,
// and serves until the listener is closed. The port file is written only
// after the listener is bound, so a reader never observes a port nobody is
// listening on yet.
func (s *Server) ListenAndServe(portFilePath string) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("binding backend listener: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	if err := util.AtomicWriteFile(portFilePath, []byte(fmt.Sprintf("%d\n", port)), 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("writing port file %q: %w", portFilePath, err)
	}

	if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving backend RPC: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PingResponse{Version: Version})
}

func (s *Server) handleIngestManifest(w http.ResponseWriter, r *http.Request) {
	var req IngestManifestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.store.IngestManifest(r.Context(), req.Manifest, req.PackageScope, s.artifactsRoot); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, IngestManifestResponse{})
}

func (s *Server) handleGetDeltaSummary(w http.ResponseWriter, r *http.Request) {
	var req GetDeltaSummaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !workspace.ValidID(req.WorkspaceID) {
		writeErr(w, errkind.Wrap(errkind.Validation, "invalid workspace_id %q", req.WorkspaceID))
		return
	}
	summary, err := s.store.GetDeltaSummary(r.Context(), req.WorkspaceID, req.PackageScope)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetAffectedTests(w http.ResponseWriter, r *http.Request) {
	var req GetAffectedTestsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !workspace.ValidID(req.WorkspaceID) {
		writeErr(w, errkind.Wrap(errkind.Validation, "invalid workspace_id %q", req.WorkspaceID))
		return
	}
	affected, err := s.store.GetAffectedTests(r.Context(), req.WorkspaceID, req.ForceFull, req.PackageScope)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, affected)
}

func (s *Server) handleRecordDirtyFiles(w http.ResponseWriter, r *http.Request) {
	var req RecordDirtyFilesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !workspace.ValidID(req.WorkspaceID) {
		writeErr(w, errkind.Wrap(errkind.Validation, "invalid workspace_id %q", req.WorkspaceID))
		return
	}
	if err := s.store.RecordDirtyFiles(r.Context(), req.WorkspaceID, req.Paths); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordDirtyFilesResponse{})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		writeErr(w, errkind.Wrap(errkind.Validation, "missing request body"))
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, errkind.Wrap(errkind.Validation, "decoding request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errkind.StatusFor(err), ErrorResponse{Error: err.Error()})
}
