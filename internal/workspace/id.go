// Package workspace resolves the workspace root and package scope for a
// check invocation, and derives the stable workspace id used to key the
// per-workspace cache directory.
package workspace

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"

	"golang.org/x/crypto/blake2b"
)

// IDPattern is the exact shape of a valid workspace id: 16 lowercase hex
// characters. The RPC and HTTP layers validate incoming ids against this.
var IDPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// ComputeID derives the stable workspace id for a canonicalized root path.
// The id is a local cache key only — collision resistance beyond keeping
// distinct workspaces in distinct cache directories is not required, so a
// truncated BLAKE2b-256 digest is sufficient.
func ComputeID(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path for %q: %w", root, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %q: %w", abs, err)
	}

	sum := blake2b.Sum256([]byte(filepath.Clean(real)))
	return hex.EncodeToString(sum[:8]), nil
}

// ValidID reports whether s is a syntactically valid workspace id.
func ValidID(s string) bool {
	return IDPattern.MatchString(s)
}
