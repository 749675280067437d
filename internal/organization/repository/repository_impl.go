package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/groveworks/grove/internal/organization/domain"
)

type repository struct {
	db *gorm.DB
}

// New creates an organization repository backed by gorm.
func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repository) GetOrganization(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, err
	}
	return &org, nil
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Organization{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UpdateOrganizationFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Organization{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

// DeleteOrganizationCascade removes the organization together with its
// memberships, teams, and invitations. Call inside a transaction.
func (r *repository) DeleteOrganizationCascade(ctx context.Context, id snowflake.ID) error {
	db := r.db.WithContext(ctx)
	stmts := []string{
		"DELETE FROM invitation_teams WHERE invitation_id IN (SELECT id FROM invitations WHERE org_id = ?)",
		"DELETE FROM invitations WHERE org_id = ?",
		"DELETE FROM team_members WHERE team_id IN (SELECT id FROM teams WHERE org_id = ?)",
		"DELETE FROM teams WHERE org_id = ?",
		"DELETE FROM memberships WHERE org_id = ?",
		"DELETE FROM organizations WHERE id = ?",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt, id).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	var items []domain.OrganizationListItem
	err := r.db.WithContext(ctx).
		Table("organizations AS o").
		Select("o.id, o.name, o.slug, o.description, o.logo_url, o.plan, m.role, m.is_active AS is_active, m.created_at AS member_created_at").
		Joins("JOIN memberships m ON m.org_id = o.id").
		Where("m.user_id = ? AND m.is_active = ?", userID, true).
		Order("m.created_at DESC").
		Scan(&items).Error
	return items, err
}

func (r *repository) CreateMembership(ctx context.Context, member *domain.Membership) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) GetMembership(ctx context.Context, orgID, userID snowflake.ID) (*domain.Membership, error) {
	var member domain.Membership
	err := r.db.WithContext(ctx).
		First(&member, "org_id = ? AND user_id = ?", orgID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *repository) CountActiveMembers(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("org_id = ? AND is_active = ?", orgID, true).
		Count(&count).Error
	return count, err
}

func (r *repository) CountActiveOwners(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("org_id = ? AND role = ? AND is_active = ?", orgID, domain.RoleOwner, true).
		Count(&count).Error
	return count, err
}

func (r *repository) CountTeams(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("teams").
		Where("org_id = ?", orgID).
		Count(&count).Error
	return count, err
}
