// Package policy answers "may this role do that" for every privileged
// document operation. Call sites never compare role strings themselves.
package policy

import (
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

// Capability names a privileged operation.
type Capability string

const (
	CapRevoke          Capability = "revoke"
	CapReinstate       Capability = "reinstate"
	CapIssueGrant      Capability = "issue_grant"
	CapDeactivateGrant Capability = "deactivate_grant"
	CapReadAudit       Capability = "read_audit"
	CapReadHistory     Capability = "read_history"
)

var staff = []id.Role{id.RoleHR, id.RoleAdmin, id.RoleSuperAdmin}

var matrix = map[Capability][]id.Role{
	CapRevoke:          staff,
	CapReinstate:       {id.RoleSuperAdmin},
	CapIssueGrant:      staff,
	CapDeactivateGrant: staff,
	CapReadAudit:       staff,
	CapReadHistory:     staff,
}

// Allow reports whether role holds capability. Unknown capabilities deny.
func Allow(role id.Role, capability Capability) bool {
	for _, r := range matrix[capability] {
		if r == role {
			return true
		}
	}
	return false
}

// Require returns a forbidden error naming the capability when role lacks it.
func Require(role id.Role, capability Capability) error {
	if Allow(role, capability) {
		return nil
	}
	if capability == CapReinstate {
		return dErrors.New(dErrors.CodeForbidden, "only super-admin can reinstate revoked documents")
	}
	return dErrors.New(dErrors.CodeForbidden, "role "+string(role)+" may not "+string(capability))
}
