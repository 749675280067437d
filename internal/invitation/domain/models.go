// Package domain contains the invitation lifecycle models. An invitation
// starts pending and moves exactly once to accepted, declined, expired, or
// revoked; every non-pending status is terminal.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Invitation statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
	StatusExpired  = "expired"
	StatusRevoked  = "revoked"
)

// Invitation invites an email address into an organization with a role.
type Invitation struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID  `gorm:"not null;index" json:"organization_id"`
	Email     string        `gorm:"type:text;not null;index" json:"email"`
	Role      string        `gorm:"type:text;not null" json:"role"`
	Token     string        `gorm:"type:text;not null;uniqueIndex:ux_invitations_token" json:"-"`
	Status    string        `gorm:"type:text;not null;default:pending;index" json:"status"`
	Message   string        `gorm:"type:text" json:"message"`
	InvitedBy *snowflake.ID `gorm:"index" json:"invited_by,omitempty"`
	ExpiresAt time.Time     `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }

// Pending reports whether the invitation can still transition.
func (i Invitation) Pending() bool { return i.Status == StatusPending }

// ExpiredAt reports whether the invitation's deadline has passed at t.
func (i Invitation) ExpiredAt(t time.Time) bool { return !t.Before(i.ExpiresAt) }

// InvitationTeam records a team the invitee joins on acceptance.
type InvitationTeam struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	InvitationID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_invitation_teams,priority:1" json:"invitation_id"`
	TeamID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_invitation_teams,priority:2" json:"team_id"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvitationTeam) TableName() string { return "invitation_teams" }
