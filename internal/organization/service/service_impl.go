package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/groveworks/grove/internal/authorization"
	"github.com/groveworks/grove/internal/clock"
	"github.com/groveworks/grove/internal/config"
	"github.com/groveworks/grove/internal/organization/domain"
	"github.com/groveworks/grove/pkg/db"
)

const maxNameLength = 100

type service struct {
	log   *zap.Logger
	cfg   config.Config
	db    *gorm.DB
	repo  domain.Repository
	authz *authorization.Evaluator
	genID *snowflake.Node
	clock clock.Clock
}

func New(
	log *zap.Logger,
	cfg config.Config,
	gdb *gorm.DB,
	repo domain.Repository,
	authz *authorization.Evaluator,
	genID *snowflake.Node,
	clk clock.Clock,
) domain.Service {
	return &service{
		log:   log.Named("organization"),
		cfg:   cfg,
		db:    gdb,
		repo:  repo,
		authz: authz,
		genID: genID,
		clock: clk,
	}
}

func (s *service) List(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationWithRole, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OrganizationWithRole, 0, len(items))
	for _, item := range items {
		memberCount, err := s.repo.CountActiveMembers(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		teamCount, err := s.repo.CountTeams(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.OrganizationWithRole{
			ID:          item.ID.String(),
			Name:        item.Name,
			Slug:        item.Slug,
			Description: item.Description,
			LogoURL:     item.LogoURL,
			Plan:        item.Plan,
			Role:        item.Role,
			IsActive:    item.IsActive,
			MemberCount: memberCount,
			TeamCount:   teamCount,
		})
	}
	return out, nil
}

// Create provisions the organization and its owner membership atomically.
// The creator always becomes owner regardless of any default role setting.
func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}

	orgSlug := strings.TrimSpace(req.Slug)
	if orgSlug == "" {
		orgSlug = slug.Make(name)
	}
	if !slug.IsSlug(orgSlug) {
		return nil, domain.ErrInvalidSlug
	}

	taken, err := s.repo.SlugExists(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrSlugTaken
	}

	now := s.clock.Now()
	org := &domain.Organization{
		ID:          s.genID.Generate(),
		Name:        name,
		Slug:        orgSlug,
		Description: strings.TrimSpace(req.Description),
		LogoURL:     req.LogoURL,
		Website:     req.Website,
		Plan:        s.cfg.DefaultOrgPlan,
		Settings:    defaultSettingsBlob(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := &domain.Membership{
		ID:        s.genID.Generate(),
		OrgID:     org.ID,
		UserID:    userID,
		Role:      domain.RoleOwner,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrSlugTaken
			}
			return err
		}
		return repo.CreateMembership(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	if err := s.authz.SyncRole(userID, org.ID, domain.RoleOwner); err != nil {
		s.log.Warn("sync owner role", zap.String("org_id", org.ID.String()), zap.Error(err))
	}

	s.log.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.String("owner_id", userID.String()),
	)
	return s.toResponse(ctx, org)
}

func (s *service) Get(ctx context.Context, userID snowflake.ID, orgID snowflake.ID) (*domain.OrganizationResponse, error) {
	if _, err := s.authz.RequireMember(ctx, userID, orgID); err != nil {
		return nil, err
	}
	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, org)
}

func (s *service) Update(ctx context.Context, userID snowflake.ID, orgID snowflake.ID, patch domain.OrganizationPatch) (*domain.OrganizationResponse, error) {
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
	if patch.LogoURL != nil {
		fields["logo_url"] = *patch.LogoURL
	}
	if patch.Website != nil {
		fields["website"] = *patch.Website
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.clock.Now()
		if err := s.repo.UpdateOrganizationFields(ctx, orgID, fields); err != nil {
			return nil, err
		}
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, org)
}

func (s *service) Delete(ctx context.Context, userID snowflake.ID, orgID snowflake.ID) error {
	if _, err := s.authz.RequireOwner(ctx, userID, orgID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteOrganizationCascade(ctx, orgID)
	})
	if err != nil {
		return err
	}
	if err := s.authz.DropDomain(orgID); err != nil {
		s.log.Warn("drop policy domain", zap.String("org_id", orgID.String()), zap.Error(err))
	}
	s.log.Info("organization deleted",
		zap.String("org_id", orgID.String()),
		zap.String("owner_id", userID.String()),
	)
	return nil
}

func (s *service) GetSettings(ctx context.Context, userID snowflake.ID, orgID snowflake.ID) (*domain.OrganizationSettings, error) {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return nil, err
	}
	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return settingsView(org), nil
}

// UpdateSettings merges the supplied keys into the stored blob. Keys not
// supplied keep their stored values.
func (s *service) UpdateSettings(ctx context.Context, userID snowflake.ID, orgID snowflake.ID, patch domain.SettingsPatch) (*domain.OrganizationSettings, error) {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return nil, err
	}
	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if patch.DefaultMemberRole != nil && !domain.ValidRole(*patch.DefaultMemberRole) {
		return nil, domain.ErrInvalidRoleSetting
	}

	settings := org.Settings
	if settings == nil {
		settings = datatypes.JSONMap{}
	}
	if patch.AllowMemberInvites != nil {
		settings[domain.SettingAllowMemberInvites] = *patch.AllowMemberInvites
	}
	if patch.DefaultMemberRole != nil {
		settings[domain.SettingDefaultMemberRole] = *patch.DefaultMemberRole
	}
	if patch.Require2FA != nil {
		settings[domain.SettingRequire2FA] = *patch.Require2FA
	}
	if patch.AllowedEmailDomains != nil {
		domains := make([]any, 0, len(*patch.AllowedEmailDomains))
		for _, d := range *patch.AllowedEmailDomains {
			domains = append(domains, strings.ToLower(strings.TrimSpace(d)))
		}
		settings[domain.SettingAllowedEmailDomains] = domains
	}

	err = s.repo.UpdateOrganizationFields(ctx, orgID, map[string]any{
		"settings":   settings,
		"updated_at": s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	org.Settings = settings
	return settingsView(org), nil
}

func (s *service) toResponse(ctx context.Context, org *domain.Organization) (*domain.OrganizationResponse, error) {
	memberCount, err := s.repo.CountActiveMembers(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	teamCount, err := s.repo.CountTeams(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	return &domain.OrganizationResponse{
		ID:          org.ID.String(),
		Name:        org.Name,
		Slug:        org.Slug,
		Description: org.Description,
		LogoURL:     org.LogoURL,
		Website:     org.Website,
		Plan:        org.Plan,
		MemberCount: memberCount,
		TeamCount:   teamCount,
		CreatedAt:   org.CreatedAt,
	}, nil
}

func defaultSettingsBlob() datatypes.JSONMap {
	return datatypes.JSONMap{
		domain.SettingAllowMemberInvites:  false,
		domain.SettingDefaultMemberRole:   domain.RoleMember,
		domain.SettingRequire2FA:          false,
		domain.SettingAllowedEmailDomains: []any{},
	}
}

// settingsView projects the stored blob onto the typed settings with
// defaults for absent keys.
func settingsView(org *domain.Organization) *domain.OrganizationSettings {
	view := &domain.OrganizationSettings{
		AllowMemberInvites:  false,
		DefaultMemberRole:   domain.RoleMember,
		Require2FA:          false,
		AllowedEmailDomains: []string{},
	}
	if org.Settings == nil {
		return view
	}
	if v, ok := org.Settings[domain.SettingAllowMemberInvites].(bool); ok {
		view.AllowMemberInvites = v
	}
	if v, ok := org.Settings[domain.SettingDefaultMemberRole].(string); ok && v != "" {
		view.DefaultMemberRole = v
	}
	if v, ok := org.Settings[domain.SettingRequire2FA].(bool); ok {
		view.Require2FA = v
	}
	if domains := org.AllowedEmailDomains(); domains != nil {
		view.AllowedEmailDomains = domains
	}
	return view
}
