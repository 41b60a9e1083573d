package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

func TestAllow_Matrix(t *testing.T) {
	all := []id.Role{id.RoleAdmin, id.RoleHR, id.RoleManager, id.RoleEmployee, id.RoleIntern, id.RoleSuperAdmin}

	cases := map[Capability][]id.Role{
		CapRevoke:          {id.RoleHR, id.RoleAdmin, id.RoleSuperAdmin},
		CapReinstate:       {id.RoleSuperAdmin},
		CapIssueGrant:      {id.RoleHR, id.RoleAdmin, id.RoleSuperAdmin},
		CapDeactivateGrant: {id.RoleHR, id.RoleAdmin, id.RoleSuperAdmin},
		CapReadAudit:       {id.RoleHR, id.RoleAdmin, id.RoleSuperAdmin},
		CapReadHistory:     {id.RoleHR, id.RoleAdmin, id.RoleSuperAdmin},
	}

	for capability, allowed := range cases {
		for _, role := range all {
			want := false
			for _, r := range allowed {
				want = want || r == role
			}
			assert.Equal(t, want, Allow(role, capability), "%s/%s", role, capability)
		}
	}
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(id.RoleSuperAdmin, CapReinstate))

	err := Require(id.RoleHR, CapReinstate)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	assert.False(t, Allow(id.RoleSuperAdmin, Capability("delete_everything")))
}
