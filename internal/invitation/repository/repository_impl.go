package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/groveworks/grove/internal/invitation/domain"
)

type repository struct {
	db *gorm.DB
}

// New creates an invitation repository backed by gorm.
func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, inv *domain.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *repository) AddTeams(ctx context.Context, links []domain.InvitationTeam) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

func (r *repository) GetByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := r.db.WithContext(ctx).
		First(&inv, "id = ? AND org_id = ?", id, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) GetPendingByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := r.db.WithContext(ctx).
		First(&inv, "token = ? AND status = ?", token, domain.StatusPending).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) ListPendingByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.InvitationRow, error) {
	var rows []domain.InvitationRow
	err := r.db.WithContext(ctx).
		Table("invitations AS i").
		Select("i.*, o.name AS org_name").
		Joins("JOIN organizations o ON o.id = i.org_id").
		Where("i.org_id = ? AND i.status = ?", orgID, domain.StatusPending).
		Order("i.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListPendingByEmail(ctx context.Context, email string) ([]domain.InvitationRow, error) {
	var rows []domain.InvitationRow
	err := r.db.WithContext(ctx).
		Table("invitations AS i").
		Select("i.*, o.name AS org_name").
		Joins("JOIN organizations o ON o.id = i.org_id").
		Where("i.email = ? AND i.status = ?", email, domain.StatusPending).
		Order("i.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) HasPending(ctx context.Context, orgID snowflake.ID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("org_id = ? AND email = ? AND status = ?", orgID, email, domain.StatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) IsMember(ctx context.Context, orgID snowflake.ID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("memberships AS m").
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.org_id = ? AND u.email = ?", orgID, email).
		Count(&count).Error
	return count > 0, err
}

// UpdateStatus transitions a pending invitation. The status filter keeps
// terminal states terminal under concurrent transitions.
func (r *repository) UpdateStatus(ctx context.Context, id snowflake.ID, status string, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{"status": status, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotPending
	}
	return nil
}

func (r *repository) ExtendExpiry(ctx context.Context, id snowflake.ID, expiresAt, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{"expires_at": expiresAt, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotPending
	}
	return nil
}

func (r *repository) ListTeamIDs(ctx context.Context, invitationID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).
		Model(&domain.InvitationTeam{}).
		Where("invitation_id = ?", invitationID).
		Pluck("team_id", &ids).Error
	return ids, err
}

func (r *repository) CountTeamsInOrg(ctx context.Context, orgID snowflake.ID, teamIDs []snowflake.ID) (int64, error) {
	if len(teamIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Table("teams").
		Where("org_id = ? AND id IN ?", orgID, teamIDs).
		Count(&count).Error
	return count, err
}
