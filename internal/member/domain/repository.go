package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	orgdomain "github.com/groveworks/grove/internal/organization/domain"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListViews(ctx context.Context, orgID snowflake.ID) ([]MemberView, error)
	GetView(ctx context.Context, orgID, membershipID snowflake.ID) (*MemberView, error)
	GetMembership(ctx context.Context, orgID, membershipID snowflake.ID) (*orgdomain.Membership, error)
	UpdateFields(ctx context.Context, orgID, membershipID snowflake.ID, fields map[string]any) error
	DeleteMembership(ctx context.Context, orgID, membershipID snowflake.ID) error
	CountActiveOwners(ctx context.Context, orgID snowflake.ID) (int64, error)
}
