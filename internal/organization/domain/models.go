// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Membership roles, ordered by privilege. Owner and admin are jointly
// admin-capable; member and viewer carry no mutation rights beyond self.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// ValidRole reports whether role is one of the known membership roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	default:
		return false
	}
}

// Organization represents a tenant.
type Organization struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"type:text;not null" json:"name"`
	Slug        string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Description string            `gorm:"type:text" json:"description"`
	LogoURL     *string           `gorm:"type:text" json:"logo_url,omitempty"`
	Website     *string           `gorm:"type:text" json:"website,omitempty"`
	Plan        string            `gorm:"type:text;not null" json:"plan"`
	Settings    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"settings"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// Membership binds one user to one organization with a role. At most one
// membership exists per (user, organization) pair.
type Membership struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_org_user,priority:1" json:"organization_id"`
	UserID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_org_user,priority:2" json:"user_id"`
	Role       string       `gorm:"type:text;not null" json:"role"`
	IsActive   bool         `gorm:"not null;default:true" json:"is_active"`
	JobTitle   string       `gorm:"type:text" json:"job_title"`
	Department string       `gorm:"type:text" json:"department"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "memberships" }

// IsOwner reports whether the membership holds the owner role.
func (m Membership) IsOwner() bool { return m.Role == RoleOwner }

// IsAdmin reports whether the membership is admin-capable.
func (m Membership) IsAdmin() bool { return m.Role == RoleOwner || m.Role == RoleAdmin }

// Settings blob keys stored in Organization.Settings.
const (
	SettingAllowMemberInvites  = "allow_member_invites"
	SettingDefaultMemberRole   = "default_member_role"
	SettingRequire2FA          = "require_2fa"
	SettingAllowedEmailDomains = "allowed_email_domains"
)

// AllowedEmailDomains extracts the domain allow-list from the settings blob.
// An absent or empty list means no restriction.
func (o Organization) AllowedEmailDomains() []string {
	raw, ok := o.Settings[SettingAllowedEmailDomains]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	domains := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			domains = append(domains, s)
		}
	}
	return domains
}
