package identity

import "github.com/google/uuid"

// New returns an opaque participant identity. Identities are generated
// locally before any server contact and never change for the life of the
// process.
func New() string {
	return uuid.NewString()
}
