package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/groveworks/grove/internal/member/domain"
	orgdomain "github.com/groveworks/grove/internal/organization/domain"
)

const viewSelect = "m.id, m.user_id, u.email AS user_email, u.display_name AS user_name, m.role, m.job_title, m.department, m.is_active, m.created_at"

type repository struct {
	db *gorm.DB
}

// New creates a member repository backed by gorm.
func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) ListViews(ctx context.Context, orgID snowflake.ID) ([]domain.MemberView, error) {
	var views []domain.MemberView
	err := r.db.WithContext(ctx).
		Table("memberships AS m").
		Select(viewSelect).
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.org_id = ?", orgID).
		Order("m.created_at ASC").
		Scan(&views).Error
	return views, err
}

func (r *repository) GetView(ctx context.Context, orgID, membershipID snowflake.ID) (*domain.MemberView, error) {
	var view domain.MemberView
	err := r.db.WithContext(ctx).
		Table("memberships AS m").
		Select(viewSelect).
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.org_id = ? AND m.id = ?", orgID, membershipID).
		Scan(&view).Error
	if err != nil {
		return nil, err
	}
	if view.ID == 0 {
		return nil, domain.ErrMemberNotFound
	}
	return &view, nil
}

func (r *repository) GetMembership(ctx context.Context, orgID, membershipID snowflake.ID) (*orgdomain.Membership, error) {
	var member orgdomain.Membership
	err := r.db.WithContext(ctx).
		First(&member, "id = ? AND org_id = ?", membershipID, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *repository) UpdateFields(ctx context.Context, orgID, membershipID snowflake.ID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&orgdomain.Membership{}).
		Where("id = ? AND org_id = ?", membershipID, orgID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

// DeleteMembership removes the membership and its team attachments.
func (r *repository) DeleteMembership(ctx context.Context, orgID, membershipID snowflake.ID) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec("DELETE FROM team_members WHERE membership_id = ?", membershipID).Error; err != nil {
		return err
	}
	res := db.Exec("DELETE FROM memberships WHERE id = ? AND org_id = ?", membershipID, orgID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) CountActiveOwners(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&orgdomain.Membership{}).
		Where("org_id = ? AND role = ? AND is_active = ?", orgID, orgdomain.RoleOwner, true).
		Count(&count).Error
	return count, err
}
