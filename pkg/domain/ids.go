package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "docvault/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so a DocumentID can never be passed where
// a GrantID is expected.
type (
	TenantID     uuid.UUID
	DocumentID   uuid.UUID
	GrantID      uuid.UUID
	RevocationID uuid.UUID
	EventID      uuid.UUID
	UserID       uuid.UUID
	ApplicantID  uuid.UUID
	EmployeeID   uuid.UUID
)

func (id TenantID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string   { return uuid.UUID(id).String() }
func (id GrantID) String() string      { return uuid.UUID(id).String() }
func (id RevocationID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string      { return uuid.UUID(id).String() }
func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id ApplicantID) String() string  { return uuid.UUID(id).String() }
func (id EmployeeID) String() string   { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id GrantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RevocationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ApplicantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EmployeeID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// NewGrantID, NewRevocationID and NewEventID mint random identifiers for
// records this service owns.
func NewGrantID() GrantID           { return GrantID(uuid.New()) }
func NewRevocationID() RevocationID { return RevocationID(uuid.New()) }
func NewEventID() EventID           { return EventID(uuid.New()) }

func ParseTenantID(s string) (TenantID, error)         { return parse[TenantID]("tenant", s) }
func ParseDocumentID(s string) (DocumentID, error)     { return parse[DocumentID]("document", s) }
func ParseGrantID(s string) (GrantID, error)           { return parse[GrantID]("grant", s) }
func ParseRevocationID(s string) (RevocationID, error) { return parse[RevocationID]("revocation", s) }
func ParseUserID(s string) (UserID, error)             { return parse[UserID]("user", s) }
func ParseApplicantID(s string) (ApplicantID, error)   { return parse[ApplicantID]("applicant", s) }
func ParseEmployeeID(s string) (EmployeeID, error)     { return parse[EmployeeID]("employee", s) }

// parse enforces the shared trust-boundary rules: non-empty, well-formed and
// not the nil UUID.
func parse[T ~[16]byte](kind, s string) (T, error) {
	var zero T
	s = strings.TrimSpace(s)
	if s == "" {
		return zero, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	if len(s) != 36 {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return T(parsed), nil
}
