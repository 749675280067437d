package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context, userID snowflake.ID) ([]OrganizationWithRole, error)
	Create(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)
	Get(ctx context.Context, userID snowflake.ID, orgID snowflake.ID) (*OrganizationResponse, error)
	Update(ctx context.Context, userID snowflake.ID, orgID snowflake.ID, patch OrganizationPatch) (*OrganizationResponse, error)
	Delete(ctx context.Context, userID snowflake.ID, orgID snowflake.ID) error
	GetSettings(ctx context.Context, userID snowflake.ID, orgID snowflake.ID) (*OrganizationSettings, error)
	UpdateSettings(ctx context.Context, userID snowflake.ID, orgID snowflake.ID, patch SettingsPatch) (*OrganizationSettings, error)
}

type CreateOrganizationRequest struct {
	Name        string
	Slug        string
	Description string
	LogoURL     *string
	Website     *string
}

// OrganizationPatch carries the fields an update supplies. Nil fields are
// left untouched.
type OrganizationPatch struct {
	Name        *string
	Description *string
	LogoURL     *string
	Website     *string
}

// OrganizationSettings is the typed view over the settings blob with
// defaults applied.
type OrganizationSettings struct {
	AllowMemberInvites  bool     `json:"allow_member_invites"`
	DefaultMemberRole   string   `json:"default_member_role"`
	Require2FA          bool     `json:"require_2fa"`
	AllowedEmailDomains []string `json:"allowed_email_domains"`
}

// SettingsPatch merges supplied keys into the settings blob; nil fields are
// left untouched.
type SettingsPatch struct {
	AllowMemberInvites  *bool     `json:"allow_member_invites"`
	DefaultMemberRole   *string   `json:"default_member_role"`
	Require2FA          *bool     `json:"require_2fa"`
	AllowedEmailDomains *[]string `json:"allowed_email_domains"`
}

type OrganizationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	LogoURL     *string   `json:"logo_url,omitempty"`
	Website     *string   `json:"website,omitempty"`
	Plan        string    `json:"plan"`
	MemberCount int64     `json:"member_count"`
	TeamCount   int64     `json:"team_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrganizationWithRole annotates an organization with the caller's role.
type OrganizationWithRole struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	LogoURL     *string `json:"logo_url,omitempty"`
	Plan        string  `json:"plan"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"is_active"`
	MemberCount int64   `json:"member_count"`
	TeamCount   int64   `json:"team_count"`
}

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSlugTaken            = errors.New("organization slug already taken")
	ErrInvalidSlug          = errors.New("invalid organization slug")
	ErrInvalidName          = errors.New("invalid organization name")
	ErrInvalidRoleSetting   = errors.New("invalid default member role")
)
