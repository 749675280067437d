package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/groveworks/grove/internal/authorization"
	"github.com/groveworks/grove/internal/clock"
	orgdomain "github.com/groveworks/grove/internal/organization/domain"
	"github.com/groveworks/grove/internal/team/domain"
	"github.com/groveworks/grove/pkg/db"
)

const maxNameLength = 100

type service struct {
	log     *zap.Logger
	db      *gorm.DB
	repo    domain.Repository
	orgRepo orgdomain.Repository
	authz   *authorization.Evaluator
	genID   *snowflake.Node
	clock   clock.Clock
}

func New(
	log *zap.Logger,
	gdb *gorm.DB,
	repo domain.Repository,
	orgRepo orgdomain.Repository,
	authz *authorization.Evaluator,
	genID *snowflake.Node,
	clk clock.Clock,
) domain.Service {
	return &service{
		log:     log.Named("team"),
		db:      gdb,
		repo:    repo,
		orgRepo: orgRepo,
		authz:   authz,
		genID:   genID,
		clock:   clk,
	}
}

func (s *service) List(ctx context.Context, userID, orgID snowflake.ID) ([]domain.TeamResponse, error) {
	if _, err := s.authz.RequireMember(ctx, userID, orgID); err != nil {
		return nil, err
	}
	teams, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TeamResponse, 0, len(teams))
	for _, team := range teams {
		resp, err := s.toResponse(ctx, &team)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, userID, orgID snowflake.ID, req domain.CreateTeamRequest) (*domain.TeamResponse, error) {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}
	teamSlug := strings.TrimSpace(req.Slug)
	if teamSlug == "" {
		teamSlug = slug.Make(name)
	}
	if !slug.IsSlug(teamSlug) {
		return nil, domain.ErrInvalidSlug
	}

	taken, err := s.repo.SlugExists(ctx, orgID, teamSlug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrSlugTaken
	}

	now := s.clock.Now()
	team := &domain.Team{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        name,
		Slug:        teamSlug,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, team); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	s.log.Info("team created",
		zap.String("org_id", orgID.String()),
		zap.String("team_id", team.ID.String()),
		zap.String("slug", team.Slug),
	)
	return s.toResponse(ctx, team)
}

func (s *service) Get(ctx context.Context, userID, orgID, teamID snowflake.ID) (*domain.TeamDetail, error) {
	if _, err := s.authz.RequireMember(ctx, userID, orgID); err != nil {
		return nil, err
	}
	team, err := s.repo.Get(ctx, orgID, teamID)
	if err != nil {
		return nil, err
	}
	resp, err := s.toResponse(ctx, team)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &domain.TeamDetail{TeamResponse: *resp, Members: members}, nil
}

func (s *service) Update(ctx context.Context, userID, orgID, teamID snowflake.ID, patch domain.TeamPatch) (*domain.TeamResponse, error) {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" || len(name) > maxNameLength {
			return nil, domain.ErrInvalidName
		}
		fields["name"] = name
	}
	if patch.Description != nil {
		fields["description"] = strings.TrimSpace(*patch.Description)
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.clock.Now()
		if err := s.repo.UpdateFields(ctx, orgID, teamID, fields); err != nil {
			return nil, err
		}
	}

	team, err := s.repo.Get(ctx, orgID, teamID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, team)
}

func (s *service) Delete(ctx context.Context, userID, orgID, teamID snowflake.ID) error {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteCascade(ctx, orgID, teamID)
	})
	if err != nil {
		return err
	}
	s.log.Info("team deleted",
		zap.String("org_id", orgID.String()),
		zap.String("team_id", teamID.String()),
	)
	return nil
}

// AddMember attaches an organization membership to the team. Adding a
// membership that is already attached is a no-op.
func (s *service) AddMember(ctx context.Context, userID, orgID, teamID, membershipID snowflake.ID) error {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, orgID, teamID); err != nil {
		return err
	}
	if err := s.membershipInOrg(ctx, orgID, membershipID); err != nil {
		return err
	}

	present, err := s.repo.HasMember(ctx, teamID, membershipID)
	if err != nil {
		return err
	}
	if present {
		return nil
	}

	tm := &domain.TeamMember{
		ID:           s.genID.Generate(),
		TeamID:       teamID,
		MembershipID: membershipID,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.AddMember(ctx, tm); err != nil {
		// Concurrent add of the same membership stays a no-op.
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *service) RemoveMember(ctx context.Context, userID, orgID, teamID, membershipID snowflake.ID) error {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, orgID, teamID); err != nil {
		return err
	}
	return s.repo.RemoveMember(ctx, teamID, membershipID)
}

// membershipInOrg checks the membership exists and belongs to the
// organization.
func (s *service) membershipInOrg(ctx context.Context, orgID, membershipID snowflake.ID) error {
	var member orgdomain.Membership
	err := s.db.WithContext(ctx).
		First(&member, "id = ? AND org_id = ?", membershipID, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMemberNotFound
		}
		return err
	}
	return nil
}

func (s *service) toResponse(ctx context.Context, team *domain.Team) (*domain.TeamResponse, error) {
	count, err := s.repo.CountMembers(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	return &domain.TeamResponse{
		ID:          team.ID.String(),
		Name:        team.Name,
		Slug:        team.Slug,
		Description: team.Description,
		MemberCount: count,
		CreatedAt:   team.CreatedAt,
	}, nil
}
