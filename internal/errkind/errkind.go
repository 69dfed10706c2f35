// Package errkind implements the check runner's typed error taxonomy:
// sentinel-wrapped kinds that the engine's HTTP layer maps mechanically to
// status codes. Callers add one string of context per boundary with
// fmt.Errorf("...: %w", err); errors.Is recovers the kind at the surface.
package errkind

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one taxonomy entry. Kind values are sentinels: wrap them
// with fmt.Errorf("...: %w", kind) and unwrap with errors.Is.
type Kind error

var (
	ConcurrentCheck  Kind = errors.New("CONCURRENT_CHECK")
	DepsNotInstalled Kind = errors.New("DEPS_NOT_INSTALLED")
	VitestNotFound   Kind = errors.New("VITEST_NOT_FOUND")
	VitestTimeout    Kind = errors.New("VITEST_TIMEOUT")
	VitestFailed     Kind = errors.New("VITEST_FAILED")
	ParseError       Kind = errors.New("PARSE_ERROR")
	RPCTimeout       Kind = errors.New("RPC_TIMEOUT")
	Internal         Kind = errors.New("INTERNAL")
	RateLimited      Kind = errors.New("RATE_LIMITED")
	Validation       Kind = errors.New("VALIDATION")
)

// statusByKind maps each kind to its HTTP surface per the taxonomy table.
var statusByKind = map[Kind]int{
	ConcurrentCheck:  http.StatusConflict,
	DepsNotInstalled: http.StatusInternalServerError,
	VitestNotFound:   http.StatusInternalServerError,
	VitestTimeout:    http.StatusGatewayTimeout,
	VitestFailed:     http.StatusInternalServerError,
	ParseError:       http.StatusInternalServerError,
	RPCTimeout:       http.StatusGatewayTimeout,
	Internal:         http.StatusInternalServerError,
	RateLimited:      http.StatusTooManyRequests,
	Validation:       http.StatusBadRequest,
}

// allKinds is iterated by StatusFor to find which sentinel an arbitrary
// wrapped error chain matches.
var allKinds = []Kind{
	ConcurrentCheck, DepsNotInstalled, VitestNotFound, VitestTimeout,
	VitestFailed, ParseError, RPCTimeout, Internal, RateLimited, Validation,
}

// Wrap produces an error that errors.Is(err, kind) recognizes, carrying a
// human-readable message built from format/args.
func Wrap(kind Kind, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{kind}, args...)...)
}

// StatusFor returns the HTTP status code for the first kind in the
// taxonomy that err matches via errors.Is, or 500 if none match.
func StatusFor(err error) int {
	for _, k := range allKinds {
		if errors.Is(err, k) {
			return statusByKind[k]
		}
	}
	return http.StatusInternalServerError
}

// KindOf returns the first taxonomy kind err matches, or nil if none.
func KindOf(err error) Kind {
	for _, k := range allKinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
