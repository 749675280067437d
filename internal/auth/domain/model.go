// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User represents a system user account. Email is the primary identifier.
type User struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID          string       `gorm:"type:text;not null;uniqueIndex" json:"external_id"`
	Email               string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	DisplayName         string       `gorm:"type:text" json:"display_name"`
	PasswordHash        *string      `gorm:"type:text" json:"-"`
	AvatarURL           *string      `gorm:"type:text" json:"avatar_url,omitempty"`
	Bio                 string       `gorm:"type:text" json:"bio"`
	Phone               string       `gorm:"type:text" json:"phone"`
	Timezone            string       `gorm:"type:text;default:UTC" json:"timezone"`
	Locale              string       `gorm:"type:text;default:en" json:"locale"`
	LastPasswordChanged *time.Time   `gorm:"column:last_password_changed" json:"-"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
