package remote

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// The remote store fails in four ways callers care about. Each class
// carries a remediation hint in its message; none are retried here.
var (
	// ErrNotConfigured means credentials are absent or malformed. It is
	// raised before any network call.
	ErrNotConfigured = errors.New("remote store is not configured: set the project id and credentials first")
	// ErrPermissionDenied means the store's access rules rejected the
	// operation; the rules need adjusting, retrying will not help.
	ErrPermissionDenied = errors.New("permission denied by the remote store: adjust the collection access rules")
	// ErrNotFound means the target document does not exist remotely.
	ErrNotFound = errors.New("document not found in the remote store")
	// ErrUnavailable means the store is temporarily unreachable.
	ErrUnavailable = errors.New("remote store temporarily unavailable: try again in a few minutes")
)

// classify maps a raw client error onto the taxonomy, preserving the
// underlying message.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	code := status.Code(err)
	switch code {
	case codes.PermissionDenied:
		return fmt.Errorf("%s: %w: %v", operation, ErrPermissionDenied, err)
	case codes.NotFound:
		return fmt.Errorf("%s: %w: %v", operation, ErrNotFound, err)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w: %v", operation, ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
