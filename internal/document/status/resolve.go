// Package status derives the effective status of a document.
package status

import "docvault/internal/document"

// Resolve returns revoked while an active revocation exists, otherwise the
// document's stored status. Every read of "current status" goes through here.
func Resolve(stored document.Status, revoked bool) document.Status {
	if revoked {
		return document.StatusRevoked
	}
	return stored
}
