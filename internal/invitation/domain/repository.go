package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// InvitationRow joins an invitation with its organization name.
type InvitationRow struct {
	Invitation
	OrgName string
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, inv *Invitation) error
	AddTeams(ctx context.Context, links []InvitationTeam) error
	GetByID(ctx context.Context, orgID, id snowflake.ID) (*Invitation, error)
	GetPendingByToken(ctx context.Context, token string) (*Invitation, error)
	ListPendingByOrg(ctx context.Context, orgID snowflake.ID) ([]InvitationRow, error)
	ListPendingByEmail(ctx context.Context, email string) ([]InvitationRow, error)
	HasPending(ctx context.Context, orgID snowflake.ID, email string) (bool, error)
	IsMember(ctx context.Context, orgID snowflake.ID, email string) (bool, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status string, now time.Time) error
	ExtendExpiry(ctx context.Context, id snowflake.ID, expiresAt, now time.Time) error
	ListTeamIDs(ctx context.Context, invitationID snowflake.ID) ([]snowflake.ID, error)
	CountTeamsInOrg(ctx context.Context, orgID snowflake.ID, teamIDs []snowflake.ID) (int64, error)
}
