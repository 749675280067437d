package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/groveworks/grove/internal/team/domain"
)

type repository struct {
	db *gorm.DB
}

// New creates a team repository backed by gorm.
func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, team *domain.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *repository) Get(ctx context.Context, orgID, teamID snowflake.ID) (*domain.Team, error) {
	var team domain.Team
	err := r.db.WithContext(ctx).
		First(&team, "id = ? AND org_id = ?", teamID, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.Team, error) {
	var teams []domain.Team
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&teams).Error
	return teams, err
}

func (r *repository) SlugExists(ctx context.Context, orgID snowflake.ID, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Team{}).
		Where("org_id = ? AND slug = ?", orgID, slug).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UpdateFields(ctx context.Context, orgID, teamID snowflake.ID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Team{}).
		Where("id = ? AND org_id = ?", teamID, orgID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

// DeleteCascade removes the team and its member attachments. Pending
// invitation links to the team are dropped as well.
func (r *repository) DeleteCascade(ctx context.Context, orgID, teamID snowflake.ID) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec("DELETE FROM team_members WHERE team_id = ?", teamID).Error; err != nil {
		return err
	}
	if err := db.Exec("DELETE FROM invitation_teams WHERE team_id = ?", teamID).Error; err != nil {
		return err
	}
	res := db.Exec("DELETE FROM teams WHERE id = ? AND org_id = ?", teamID, orgID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (r *repository) AddMember(ctx context.Context, tm *domain.TeamMember) error {
	return r.db.WithContext(ctx).Create(tm).Error
}

func (r *repository) HasMember(ctx context.Context, teamID, membershipID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.TeamMember{}).
		Where("team_id = ? AND membership_id = ?", teamID, membershipID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) RemoveMember(ctx context.Context, teamID, membershipID snowflake.ID) error {
	res := r.db.WithContext(ctx).
		Where("team_id = ? AND membership_id = ?", teamID, membershipID).
		Delete(&domain.TeamMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) ListMembers(ctx context.Context, teamID snowflake.ID) ([]domain.TeamMemberView, error) {
	var members []domain.TeamMemberView
	err := r.db.WithContext(ctx).
		Table("team_members AS tm").
		Select("m.id AS membership_id, u.id AS user_id, u.email AS user_email, u.display_name AS user_name, m.role, tm.created_at AS joined_at").
		Joins("JOIN memberships m ON m.id = tm.membership_id").
		Joins("JOIN users u ON u.id = m.user_id").
		Where("tm.team_id = ? AND m.is_active = ?", teamID, true).
		Order("tm.created_at ASC").
		Scan(&members).Error
	return members, err
}

func (r *repository) CountMembers(ctx context.Context, teamID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.TeamMember{}).
		Where("team_id = ?", teamID).
		Count(&count).Error
	return count, err
}
