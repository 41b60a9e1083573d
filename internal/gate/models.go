// Package gate decides whether a document may be served. Every view or
// download passes through it, whether the caller is staff or a recipient
// following a share link.
package gate

import (
	"docvault/internal/document"
	"docvault/internal/grant"
	"docvault/internal/revocation"
	id "docvault/pkg/domain"
)

// DenialCode classifies a refusal. Messages shown to callers come from
// Decision.DenialReason.
type DenialCode string

const (
	DenialNotFound     DenialCode = "not_found"
	DenialRevoked      DenialCode = "revoked"
	DenialExpired      DenialCode = "expired"
	DenialTokenInvalid DenialCode = "token_invalid"
	DenialInsufficient DenialCode = "insufficient_access"
)

type EnforceRequest struct {
	TenantID   id.TenantID
	DocumentID id.DocumentID
	Action     document.Action
	Actor      id.Actor
}

type TokenAccessRequest struct {
	TenantID id.TenantID
	Token    string
	Action   document.Action
}

// Decision is the gate's answer. Document is set when Allowed.
type Decision struct {
	Allowed      bool
	Document     *document.Document
	Grant        *grant.Grant
	DenialCode   DenialCode
	DenialReason string
	RevocationID *id.RevocationID
	Revocation   revocation.Reason
}
