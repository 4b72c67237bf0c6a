package xid

import "github.com/google/uuid"

// New returns a prefixed random id, e.g. "tx-3f0c...".
func New(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}
