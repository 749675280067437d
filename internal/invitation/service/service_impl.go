package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/groveworks/grove/internal/auth/domain"
	"github.com/groveworks/grove/internal/authorization"
	"github.com/groveworks/grove/internal/clock"
	"github.com/groveworks/grove/internal/config"
	"github.com/groveworks/grove/internal/invitation/domain"
	orgdomain "github.com/groveworks/grove/internal/organization/domain"
	"github.com/groveworks/grove/internal/providers/email"
	teamdomain "github.com/groveworks/grove/internal/team/domain"
	"github.com/groveworks/grove/pkg/db"
)

const (
	tokenBytes    = 32
	maxBulkEmails = 50
)

type service struct {
	log     *zap.Logger
	cfg     config.Config
	db      *gorm.DB
	repo    domain.Repository
	orgRepo orgdomain.Repository
	users   authdomain.Repository
	authz   *authorization.Evaluator
	sender  email.Sender
	genID   *snowflake.Node
	clock   clock.Clock
}

func New(
	log *zap.Logger,
	cfg config.Config,
	gdb *gorm.DB,
	repo domain.Repository,
	orgRepo orgdomain.Repository,
	users authdomain.Repository,
	authz *authorization.Evaluator,
	sender email.Sender,
	genID *snowflake.Node,
	clk clock.Clock,
) domain.Service {
	return &service{
		log:     log.Named("invitation"),
		cfg:     cfg,
		db:      gdb,
		repo:    repo,
		orgRepo: orgRepo,
		users:   users,
		authz:   authz,
		sender:  sender,
		genID:   genID,
		clock:   clk,
	}
}

func (s *service) Create(ctx context.Context, userID, orgID snowflake.ID, req domain.CreateInvitationRequest) (*domain.InvitationResponse, error) {
	org, caller, err := s.authorizeInviter(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if !caller.IsAdmin() {
		// Member-initiated invites always carry the configured default role.
		role = defaultMemberRole(org)
	}
	inv, err := s.createOne(ctx, userID, org, req.Email, role, req.Message, req.TeamIDs)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, inv, org.Name, true)
}

// BulkCreate issues up to 50 invitations in one call. Each email is
// processed independently; one failure does not stop the rest.
func (s *service) BulkCreate(ctx context.Context, userID, orgID snowflake.ID, req domain.BulkInvitationRequest) (*domain.BulkInvitationResult, error) {
	if len(req.Emails) == 0 || len(req.Emails) > maxBulkEmails {
		return nil, domain.ErrBulkSize
	}
	org, caller, err := s.authorizeInviter(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if !caller.IsAdmin() {
		role = defaultMemberRole(org)
	}

	result := &domain.BulkInvitationResult{Errors: []string{}}
	for _, addr := range req.Emails {
		if _, err := s.createOne(ctx, userID, org, addr, role, req.Message, req.TeamIDs); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", addr, err))
			continue
		}
		result.Sent++
	}
	return result, nil
}

func (s *service) ListPending(ctx context.Context, userID, orgID snowflake.ID) ([]domain.InvitationResponse, error) {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPendingByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.collectPending(ctx, rows)
}

// ListMine returns pending invitations addressed to the caller's email.
func (s *service) ListMine(ctx context.Context, userID snowflake.ID) ([]domain.InvitationResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPendingByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	return s.collectPending(ctx, rows)
}

// Accept creates the membership and team attachments atomically and marks
// the invitation accepted. A token that matches no pending invitation is
// reported as not found.
func (s *service) Accept(ctx context.Context, userID snowflake.ID, token string) (*domain.AcceptResult, error) {
	inv, err := s.repo.GetPendingByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if inv.ExpiredAt(now) {
		if err := s.repo.UpdateStatus(ctx, inv.ID, domain.StatusExpired, now); err != nil {
			s.log.Warn("expire invitation", zap.String("invitation_id", inv.ID.String()), zap.Error(err))
		}
		return nil, domain.ErrExpired
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, inv.Email) {
		return nil, domain.ErrEmailMismatch
	}

	org, err := s.orgRepo.GetOrganization(ctx, inv.OrgID)
	if err != nil {
		return nil, err
	}
	teamIDs, err := s.repo.ListTeamIDs(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	membership := &orgdomain.Membership{
		ID:        s.genID.Generate(),
		OrgID:     inv.OrgID,
		UserID:    userID,
		Role:      inv.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orgRepo.WithTx(tx).CreateMembership(ctx, membership); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyMember
			}
			return err
		}
		for _, teamID := range teamIDs {
			tm := &teamdomain.TeamMember{
				ID:           s.genID.Generate(),
				TeamID:       teamID,
				MembershipID: membership.ID,
				CreatedAt:    now,
			}
			if err := tx.Create(tm).Error; err != nil {
				return err
			}
		}
		return s.repo.WithTx(tx).UpdateStatus(ctx, inv.ID, domain.StatusAccepted, now)
	})
	if err != nil {
		return nil, err
	}

	if err := s.authz.SyncRole(userID, inv.OrgID, inv.Role); err != nil {
		s.log.Warn("sync invited role", zap.String("org_id", inv.OrgID.String()), zap.Error(err))
	}
	s.log.Info("invitation accepted",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("org_id", inv.OrgID.String()),
		zap.String("user_id", userID.String()),
	)
	return &domain.AcceptResult{
		OrgID:   inv.OrgID.String(),
		OrgName: org.Name,
		Role:    inv.Role,
	}, nil
}

func (s *service) Decline(ctx context.Context, userID snowflake.ID, token string) error {
	inv, err := s.repo.GetPendingByToken(ctx, token)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if inv.ExpiredAt(now) {
		if err := s.repo.UpdateStatus(ctx, inv.ID, domain.StatusExpired, now); err != nil {
			s.log.Warn("expire invitation", zap.String("invitation_id", inv.ID.String()), zap.Error(err))
		}
		return domain.ErrExpired
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(user.Email, inv.Email) {
		return domain.ErrEmailMismatch
	}
	return s.repo.UpdateStatus(ctx, inv.ID, domain.StatusDeclined, now)
}

func (s *service) Revoke(ctx context.Context, userID, orgID, invitationID snowflake.ID) error {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return err
	}
	inv, err := s.repo.GetByID(ctx, orgID, invitationID)
	if err != nil {
		return err
	}
	if !inv.Pending() {
		return domain.ErrNotPending
	}
	return s.repo.UpdateStatus(ctx, inv.ID, domain.StatusRevoked, s.clock.Now())
}

// Resend pushes the expiry window forward from now and re-sends the email.
// The token is not rotated, so links already delivered keep working.
func (s *service) Resend(ctx context.Context, userID, orgID, invitationID snowflake.ID) (*domain.InvitationResponse, error) {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return nil, err
	}
	inv, err := s.repo.GetByID(ctx, orgID, invitationID)
	if err != nil {
		return nil, err
	}
	if !inv.Pending() {
		return nil, domain.ErrNotPending
	}
	org, err := s.orgRepo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	inv.ExpiresAt = now.Add(s.expiry())
	if err := s.repo.ExtendExpiry(ctx, inv.ID, inv.ExpiresAt, now); err != nil {
		return nil, err
	}
	s.sendInvite(ctx, inv, org.Name)
	return s.toResponse(ctx, inv, org.Name, true)
}

// authorizeInviter resolves the organization and checks invite rights.
// Admins always may invite; plain members only when the organization
// enables member invites.
func (s *service) authorizeInviter(ctx context.Context, userID, orgID snowflake.ID) (*orgdomain.Organization, *orgdomain.Membership, error) {
	caller, err := s.authz.RequireMember(ctx, userID, orgID)
	if err != nil {
		return nil, nil, err
	}
	org, err := s.orgRepo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	if !caller.IsAdmin() && !memberInvitesAllowed(org) {
		return nil, nil, authorization.ErrAdminRequired
	}
	return org, caller, nil
}

// createOne validates and persists a single invitation and sends the email
// best effort.
func (s *service) createOne(ctx context.Context, inviterID snowflake.ID, org *orgdomain.Organization, addr, role, message string, teamIDs []snowflake.ID) (*domain.Invitation, error) {
	normalized, err := normalizeEmail(addr)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if role == "" {
		role = defaultMemberRole(org)
	}
	if role == orgdomain.RoleOwner || !orgdomain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}
	// Precondition order is part of the contract: membership, then a
	// pending duplicate, then the domain allow-list.
	isMember, err := s.repo.IsMember(ctx, org.ID, normalized)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, domain.ErrAlreadyMember
	}
	hasPending, err := s.repo.HasPending(ctx, org.ID, normalized)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, domain.ErrAlreadyInvited
	}
	if allowed := org.AllowedEmailDomains(); len(allowed) > 0 {
		if !domainAllowed(normalized, allowed) {
			return nil, fmt.Errorf("%w: allowed domains are %s", domain.ErrEmailNotAllowed, strings.Join(allowed, ", "))
		}
	}

	if len(teamIDs) > 0 {
		count, err := s.repo.CountTeamsInOrg(ctx, org.ID, teamIDs)
		if err != nil {
			return nil, err
		}
		if count != int64(len(teamIDs)) {
			return nil, domain.ErrTeamNotFound
		}
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	inviter := inviterID
	inv := &domain.Invitation{
		ID:        s.genID.Generate(),
		OrgID:     org.ID,
		Email:     normalized,
		Role:      role,
		Token:     token,
		Status:    domain.StatusPending,
		Message:   strings.TrimSpace(message),
		InvitedBy: &inviter,
		ExpiresAt: now.Add(s.expiry()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, inv); err != nil {
			return err
		}
		links := make([]domain.InvitationTeam, 0, len(teamIDs))
		for _, teamID := range teamIDs {
			links = append(links, domain.InvitationTeam{
				ID:           s.genID.Generate(),
				InvitationID: inv.ID,
				TeamID:       teamID,
				CreatedAt:    now,
			})
		}
		return repo.AddTeams(ctx, links)
	})
	if err != nil {
		return nil, err
	}

	s.sendInvite(ctx, inv, org.Name)
	s.log.Info("invitation created",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("org_id", org.ID.String()),
		zap.String("role", inv.Role),
	)
	return inv, nil
}

func (s *service) sendInvite(ctx context.Context, inv *domain.Invitation, orgName string) {
	invite := email.Invite{
		Email:     inv.Email,
		OrgName:   orgName,
		Token:     inv.Token,
		Message:   inv.Message,
		ExpiresAt: inv.ExpiresAt,
	}
	if inv.InvitedBy != nil {
		invite.InviterID = inv.InvitedBy.String()
	}
	if err := s.sender.SendInvite(ctx, invite); err != nil {
		s.log.Warn("send invitation email",
			zap.String("invitation_id", inv.ID.String()),
			zap.Error(err),
		)
	}
}

// collectPending applies lazy expiry. Rows whose deadline passed are
// transitioned to expired and dropped from the result.
func (s *service) collectPending(ctx context.Context, rows []domain.InvitationRow) ([]domain.InvitationResponse, error) {
	now := s.clock.Now()
	out := make([]domain.InvitationResponse, 0, len(rows))
	for _, row := range rows {
		if row.ExpiredAt(now) {
			if err := s.repo.UpdateStatus(ctx, row.ID, domain.StatusExpired, now); err != nil {
				s.log.Warn("expire invitation", zap.String("invitation_id", row.ID.String()), zap.Error(err))
			}
			continue
		}
		resp, err := s.toResponse(ctx, &row.Invitation, row.OrgName, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *service) toResponse(ctx context.Context, inv *domain.Invitation, orgName string, includeToken bool) (*domain.InvitationResponse, error) {
	teamIDs, err := s.repo.ListTeamIDs(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(teamIDs))
	for _, id := range teamIDs {
		ids = append(ids, id.String())
	}
	resp := &domain.InvitationResponse{
		ID:        inv.ID.String(),
		OrgID:     inv.OrgID.String(),
		OrgName:   orgName,
		Email:     inv.Email,
		Role:      inv.Role,
		Status:    inv.Status,
		Message:   inv.Message,
		TeamIDs:   ids,
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
	if inv.InvitedBy != nil {
		inviter := inv.InvitedBy.String()
		resp.InvitedBy = &inviter
	}
	if includeToken {
		resp.Token = inv.Token
	}
	return resp, nil
}

func (s *service) expiry() time.Duration {
	return time.Duration(s.cfg.InvitationExpiryDays) * 24 * time.Hour
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalizeEmail(addr string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(addr))
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Address), nil
}

func domainAllowed(addr string, allowed []string) bool {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return false
	}
	host := addr[at+1:]
	for _, d := range allowed {
		if strings.EqualFold(host, d) {
			return true
		}
	}
	return false
}

func defaultMemberRole(org *orgdomain.Organization) string {
	if v, ok := org.Settings[orgdomain.SettingDefaultMemberRole].(string); ok && orgdomain.ValidRole(v) && v != orgdomain.RoleOwner {
		return v
	}
	return orgdomain.RoleMember
}

func memberInvitesAllowed(org *orgdomain.Organization) bool {
	v, ok := org.Settings[orgdomain.SettingAllowMemberInvites].(bool)
	return ok && v
}
