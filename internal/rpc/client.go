package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xcawolfe-amzn/zax/internal/errkind"
	"github.com/xcawolfe-amzn/zax/internal/store"
)

// Client talks to a backend RPC server over localhost TCP.
type Client struct {
	baseURL     string
	http        *http.Client
	rpcTimeout  time.Duration
	pingTimeout time.Duration
}

// DefaultRPCTimeout is the deadline applied to every backend call except
// Ping, which uses DefaultPingTimeout, unless overridden via config.Config.
const DefaultRPCTimeout = 30 * time.Second

// DefaultPingTimeout is the deadline applied to Ping calls, shorter since
// it's used both for routine version queries and for startup readiness
// polling, unless overridden via config.Config.
const DefaultPingTimeout = 5 * time.Second

// NewClient returns a client targeting the backend listening on port, using
// DefaultRPCTimeout/DefaultPingTimeout.
func NewClient(port int) *Client {
	return NewClientWithTimeouts(port, DefaultRPCTimeout, DefaultPingTimeout)
}

// NewClientWithTimeouts returns a client targeting the backend listening on
// port, with the RPC and Ping deadlines from config.Config (rpcTimeout maps
// to Config.RPCTimeout, pingTimeout to Config.PingTimeout).
func NewClientWithTimeouts(port int, rpcTimeout, pingTimeout time.Duration) *Client {
	return &Client{
		baseURL:     fmt.Sprintf("http://127.0.0.1:%d", port),
		http:        &http.Client{},
		rpcTimeout:  rpcTimeout,
		pingTimeout: pingTimeout,
	}
}

func (c *Client) Ping(ctx context.Context) (PingResponse, error) {
	var resp PingResponse
	err := c.call(ctx, c.pingTimeout, "/ping", nil, &resp)
	return resp, err
}

func (c *Client) IngestManifest(ctx context.Context, manifest store.Manifest, packageScope string) error {
	req := IngestManifestRequest{Manifest: manifest, PackageScope: packageScope}
	var resp IngestManifestResponse
	return c.call(ctx, c.rpcTimeout, "/ingest-manifest", req, &resp)
}

func (c *Client) GetDeltaSummary(ctx context.Context, workspaceID, packageScope string) (store.DeltaSummary, error) {
	req := GetDeltaSummaryRequest{WorkspaceID: workspaceID, PackageScope: packageScope}
	var resp store.DeltaSummary
	err := c.call(ctx, c.rpcTimeout, "/get-delta-summary", req, &resp)
	return resp, err
}

func (c *Client) GetAffectedTests(ctx context.Context, workspaceID string, forceFull bool, packageScope string) (store.AffectedTests, error) {
	req := GetAffectedTestsRequest{WorkspaceID: workspaceID, ForceFull: forceFull, PackageScope: packageScope}
	var resp store.AffectedTests
	err := c.call(ctx, c.rpcTimeout, "/get-affected-tests", req, &resp)
	return resp, err
}

func (c *Client) RecordDirtyFiles(ctx context.Context, workspaceID string, paths []string) error {
	req := RecordDirtyFilesRequest{WorkspaceID: workspaceID, Paths: paths}
	var resp RecordDirtyFilesResponse
	return c.call(ctx, c.rpcTimeout, "/record-dirty-files", req, &resp)
}

func (c *Client) call(ctx context.Context, timeout time.Duration, path string, req any, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body bytes.Buffer
	if req != nil {
		if err := json.NewEncoder(&body).Encode(req); err != nil {
			return fmt.Errorf("encoding request for %s: %w", path, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return errkind.Wrap(errkind.RPCTimeout, "%s: %v", path, err)
		}
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 300 {
		var errResp ErrorResponse
		json.NewDecoder(httpResp.Body).Decode(&errResp)
		return fmt.Errorf("%s: backend returned %d: %s", path, httpResp.StatusCode, errResp.Error)
	}

	if resp == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("decoding response for %s: %w", path, err)
	}
	return nil
}
