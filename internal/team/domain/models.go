// Package domain contains persistence models for teams.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Team is a grouping of members inside one organization. Slugs are unique
// per organization, not globally.
type Team struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_teams_org_slug,priority:1" json:"organization_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Slug        string       `gorm:"type:text;not null;uniqueIndex:ux_teams_org_slug,priority:2" json:"slug"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }

// TeamMember attaches a membership to a team. A membership appears in a
// team at most once.
type TeamMember struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	TeamID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_team_members_team_membership,priority:1" json:"team_id"`
	MembershipID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_team_members_team_membership,priority:2" json:"membership_id"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (TeamMember) TableName() string { return "team_members" }
