package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "docvault/pkg/domain-errors"
)

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleHR         Role = "hr"
	RoleManager    Role = "manager"
	RoleEmployee   Role = "employee"
	RoleIntern     Role = "intern"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole normalizes case and rejects unknown roles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleManager, RoleEmployee, RoleIntern, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ActorID identifies whoever performed an action. It is a string so staff
// users, share-link recipients and system jobs can all be attributed.
type ActorID string

// SystemActor attributes work done by background jobs.
const SystemActor ActorID = "system"

func (a ActorID) String() string { return string(a) }

// UserActor attributes an action to an authenticated staff user.
func UserActor(id UserID) ActorID { return ActorID(id.String()) }

// Actor is an authenticated caller: who they are and the role they acted in.
type Actor struct {
	ID   ActorID
	Role Role
}

func (a Actor) IsZero() bool { return a.ID == "" }

// RecipientKind tags which kind of party a Recipient refers to.
type RecipientKind string

const (
	RecipientUser      RecipientKind = "user"
	RecipientApplicant RecipientKind = "applicant"
	RecipientEmployee  RecipientKind = "employee"
)

// Recipient is exactly one of a user, an applicant or an employee. The zero
// value is "no recipient" and is rejected by grant issuance.
type Recipient struct {
	Kind RecipientKind
	ID   uuid.UUID
}

func UserRecipient(id UserID) Recipient {
	return Recipient{Kind: RecipientUser, ID: uuid.UUID(id)}
}

func ApplicantRecipient(id ApplicantID) Recipient {
	return Recipient{Kind: RecipientApplicant, ID: uuid.UUID(id)}
}

func EmployeeRecipient(id EmployeeID) Recipient {
	return Recipient{Kind: RecipientEmployee, ID: uuid.UUID(id)}
}

// ParseRecipient builds a recipient from a kind/id pair taken off the wire.
func ParseRecipient(kind, id string) (Recipient, error) {
	k := RecipientKind(strings.ToLower(strings.TrimSpace(kind)))
	switch k {
	case RecipientUser:
		uid, err := ParseUserID(id)
		if err != nil {
			return Recipient{}, err
		}
		return UserRecipient(uid), nil
	case RecipientApplicant:
		aid, err := ParseApplicantID(id)
		if err != nil {
			return Recipient{}, err
		}
		return ApplicantRecipient(aid), nil
	case RecipientEmployee:
		eid, err := ParseEmployeeID(id)
		if err != nil {
			return Recipient{}, err
		}
		return EmployeeRecipient(eid), nil
	case "":
		return Recipient{}, dErrors.New(dErrors.CodeValidation, "recipient is required")
	default:
		return Recipient{}, dErrors.New(dErrors.CodeValidation, "recipient type must be user, applicant or employee")
	}
}

// IsZero reports whether no recipient is set.
func (r Recipient) IsZero() bool {
	return r.Kind == "" || r.ID == uuid.Nil
}

// Validate rejects the zero recipient and unknown kinds.
func (r Recipient) Validate() error {
	if r.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "at least one recipient must be specified (user, applicant or employee)")
	}
	switch r.Kind {
	case RecipientUser, RecipientApplicant, RecipientEmployee:
		return nil
	}
	return dErrors.New(dErrors.CodeValidation, "unknown recipient type")
}

// Actor attributes an access made through a share link to the recipient.
func (r Recipient) Actor() ActorID {
	return ActorID(string(r.Kind) + ":" + r.ID.String())
}

func (r Recipient) String() string {
	if r.IsZero() {
		return ""
	}
	return string(r.Actor())
}

// Subject maps applicant and employee recipients to the audit subject.
// Staff users are not subjects.
func (r Recipient) Subject() Subject {
	switch r.Kind {
	case RecipientApplicant:
		return Subject{Kind: SubjectApplicant, ID: r.ID}
	case RecipientEmployee:
		return Subject{Kind: SubjectEmployee, ID: r.ID}
	}
	return Subject{}
}

// SubjectKind tags the person a document is about.
type SubjectKind string

const (
	SubjectApplicant SubjectKind = "applicant"
	SubjectEmployee  SubjectKind = "employee"
)

// Subject optionally names the applicant or employee an audit event or
// revocation concerns. At most one is meaningful, so it is a single variant.
type Subject struct {
	Kind SubjectKind
	ID   uuid.UUID
}

func ApplicantSubject(id ApplicantID) Subject {
	return Subject{Kind: SubjectApplicant, ID: uuid.UUID(id)}
}

func EmployeeSubject(id EmployeeID) Subject {
	return Subject{Kind: SubjectEmployee, ID: uuid.UUID(id)}
}

func (s Subject) IsZero() bool { return s.Kind == "" || s.ID == uuid.Nil }

// ApplicantID returns the applicant reference, if this subject is one.
func (s Subject) ApplicantID() (ApplicantID, bool) {
	if s.Kind != SubjectApplicant || s.ID == uuid.Nil {
		return ApplicantID{}, false
	}
	return ApplicantID(s.ID), true
}

// EmployeeID returns the employee reference, if this subject is one.
func (s Subject) EmployeeID() (EmployeeID, bool) {
	if s.Kind != SubjectEmployee || s.ID == uuid.Nil {
		return EmployeeID{}, false
	}
	return EmployeeID(s.ID), true
}
