package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, team *Team) error
	Get(ctx context.Context, orgID, teamID snowflake.ID) (*Team, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]Team, error)
	SlugExists(ctx context.Context, orgID snowflake.ID, slug string) (bool, error)
	UpdateFields(ctx context.Context, orgID, teamID snowflake.ID, fields map[string]any) error
	DeleteCascade(ctx context.Context, orgID, teamID snowflake.ID) error

	AddMember(ctx context.Context, tm *TeamMember) error
	HasMember(ctx context.Context, teamID, membershipID snowflake.ID) (bool, error)
	RemoveMember(ctx context.Context, teamID, membershipID snowflake.ID) error
	ListMembers(ctx context.Context, teamID snowflake.ID) ([]TeamMemberView, error)
	CountMembers(ctx context.Context, teamID snowflake.ID) (int64, error)
}
