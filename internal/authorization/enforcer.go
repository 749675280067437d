// Package authorization enforces role based access across organizations.
// Roles are casbin groups scoped to an organization domain; membership
// records in the database remain the source of truth and are mirrored into
// the policy store on login and on role changes.
package authorization

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelConf string

// Objects and actions known to the policy engine.
const (
	ObjectOrganization = "organization"
	ObjectTeam         = "team"
	ObjectMember       = "member"
	ObjectInvitation   = "invitation"
	ObjectSettings     = "settings"

	ActionView     = "view"
	ActionManage   = "manage"
	ActionDelete   = "delete"
	ActionTransfer = "transfer"
)

// NewEnforcer builds a synced casbin enforcer persisted through gorm and
// seeds the static role policies.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("authorization: init adapter: %w", err)
	}
	m, err := casbinmodel.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("authorization: parse model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("authorization: init enforcer: %w", err)
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authorization: load policy: %w", err)
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, fmt.Errorf("authorization: seed policies: %w", err)
	}
	return enforcer, nil
}

// seedPolicies installs the per-role grants. Policies carry the wildcard
// domain so a single grant covers every organization; the g rules bind
// users to roles per organization.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:viewer", "*", ObjectOrganization, ActionView},
		{"role:viewer", "*", ObjectTeam, ActionView},
		{"role:viewer", "*", ObjectMember, ActionView},

		{"role:member", "*", ObjectOrganization, ActionView},
		{"role:member", "*", ObjectTeam, ActionView},
		{"role:member", "*", ObjectMember, ActionView},

		{"role:admin", "*", ObjectOrganization, ActionView},
		{"role:admin", "*", ObjectOrganization, ActionManage},
		{"role:admin", "*", ObjectTeam, ActionView},
		{"role:admin", "*", ObjectTeam, ActionManage},
		{"role:admin", "*", ObjectMember, ActionView},
		{"role:admin", "*", ObjectMember, ActionManage},
		{"role:admin", "*", ObjectInvitation, ActionView},
		{"role:admin", "*", ObjectInvitation, ActionManage},
		{"role:admin", "*", ObjectSettings, ActionView},
		{"role:admin", "*", ObjectSettings, ActionManage},

		{"role:owner", "*", ObjectOrganization, ActionView},
		{"role:owner", "*", ObjectOrganization, ActionManage},
		{"role:owner", "*", ObjectOrganization, ActionDelete},
		{"role:owner", "*", ObjectTeam, ActionView},
		{"role:owner", "*", ObjectTeam, ActionManage},
		{"role:owner", "*", ObjectMember, ActionView},
		{"role:owner", "*", ObjectMember, ActionManage},
		{"role:owner", "*", ObjectMember, ActionTransfer},
		{"role:owner", "*", ObjectInvitation, ActionView},
		{"role:owner", "*", ObjectInvitation, ActionManage},
		{"role:owner", "*", ObjectSettings, ActionView},
		{"role:owner", "*", ObjectSettings, ActionManage},
	}
	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2], p[3]); err != nil {
			return err
		}
	}
	return nil
}
