package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// OrganizationListItem is a caller-scoped list row joined with membership.
type OrganizationListItem struct {
	ID              snowflake.ID
	Name            string
	Slug            string
	Description     string
	LogoURL         *string
	Plan            string
	Role            string
	IsActive        bool
	MemberCreatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateOrganizationFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	DeleteOrganizationCascade(ctx context.Context, id snowflake.ID) error
	// ListByUser returns organizations where the user holds an active
	// membership, most recently joined first.
	ListByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)

	CreateMembership(ctx context.Context, member *Membership) error
	GetMembership(ctx context.Context, orgID, userID snowflake.ID) (*Membership, error)
	CountActiveMembers(ctx context.Context, orgID snowflake.ID) (int64, error)
	CountActiveOwners(ctx context.Context, orgID snowflake.ID) (int64, error)
	CountTeams(ctx context.Context, orgID snowflake.ID) (int64, error)
}
