package records

import (
	"strings"

	"github.com/google/uuid"
)

// remoteTagPrefix marks an identifier as linked to a remote document.
// A tagged id is terminal with respect to upload: the record is skipped
// on subsequent passes.
const remoteTagPrefix = "remote:"

// TagRemote rewrites a remote document id into the tagged local form.
func TagRemote(remoteID string) string {
	return remoteTagPrefix + remoteID
}

// IsTagged reports whether the identifier references a remote document.
func IsTagged(id string) bool {
	return strings.HasPrefix(id, remoteTagPrefix)
}

// RemoteID extracts the remote document id from a tagged identifier.
// The second return is false for untagged (local-only) identifiers.
func RemoteID(id string) (string, bool) {
	if !IsTagged(id) {
		return "", false
	}
	return id[len(remoteTagPrefix):], true
}

// IDProvider issues identifiers for records created locally.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
