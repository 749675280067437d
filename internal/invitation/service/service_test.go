package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	authdomain "github.com/groveworks/grove/internal/auth/domain"
	authrepository "github.com/groveworks/grove/internal/auth/repository"
	"github.com/groveworks/grove/internal/authorization"
	"github.com/groveworks/grove/internal/clock"
	"github.com/groveworks/grove/internal/config"
	"github.com/groveworks/grove/internal/invitation/domain"
	"github.com/groveworks/grove/internal/invitation/repository"
	orgdomain "github.com/groveworks/grove/internal/organization/domain"
	orgrepository "github.com/groveworks/grove/internal/organization/repository"
	"github.com/groveworks/grove/internal/providers/email"
	teamdomain "github.com/groveworks/grove/internal/team/domain"
	"github.com/groveworks/grove/pkg/db"
)

// captureSender records sent invites instead of delivering them.
type captureSender struct {
	sent []email.Invite
}

func (c *captureSender) SendInvite(_ context.Context, invite email.Invite) error {
	c.sent = append(c.sent, invite)
	return nil
}

type fixture struct {
	svc    domain.Service
	db     *gorm.DB
	node   *snowflake.Node
	clk    *clock.FakeClock
	sender *captureSender
	org    snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{},
		&orgdomain.Organization{},
		&orgdomain.Membership{},
		&teamdomain.Team{},
		&teamdomain.TeamMember{},
		&domain.Invitation{},
		&domain.InvitationTeam{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	enforcer, err := authorization.NewEnforcer(dbConn)
	if err != nil {
		t.Fatalf("failed to create enforcer: %v", err)
	}
	authz := authorization.NewEvaluator(zap.NewNop(), dbConn, enforcer)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{DefaultOrgPlan: "free", InvitationExpiryDays: 7}
	sender := &captureSender{}

	users, _ := authrepository.New(dbConn)
	f := &fixture{db: dbConn, node: node, clk: clk, sender: sender}
	f.svc = New(zap.NewNop(), cfg, dbConn, repository.New(dbConn), orgrepository.New(dbConn), users, authz, sender, node, clk)

	f.org = node.Generate()
	org := &orgdomain.Organization{ID: f.org, Name: "Acme", Slug: "acme", Plan: "free"}
	if err := dbConn.Create(org).Error; err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}
	return f
}

func (f *fixture) newUser(t *testing.T, addr string) snowflake.ID {
	t.Helper()
	user := &authdomain.User{
		ID:         f.node.Generate(),
		ExternalID: f.node.Generate().String(),
		Email:      addr,
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user.ID
}

func (f *fixture) addMembership(t *testing.T, userID snowflake.ID, role string) snowflake.ID {
	t.Helper()
	membership := &orgdomain.Membership{
		ID:       f.node.Generate(),
		OrgID:    f.org,
		UserID:   userID,
		Role:     role,
		IsActive: true,
	}
	if err := f.db.Create(membership).Error; err != nil {
		t.Fatalf("failed to create membership: %v", err)
	}
	return membership.ID
}

func (f *fixture) setSettings(t *testing.T, settings datatypes.JSONMap) {
	t.Helper()
	err := f.db.Model(&orgdomain.Organization{}).
		Where("id = ?", f.org).
		Update("settings", settings).Error
	if err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}
}

func TestCreateAndAcceptInvitation(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	team := &teamdomain.Team{ID: f.node.Generate(), OrgID: f.org, Name: "Platform", Slug: "platform"}
	if err := f.db.Create(team).Error; err != nil {
		t.Fatalf("failed to create team: %v", err)
	}

	inv, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email:   "New.Hire@Example.com",
		Role:    orgdomain.RoleMember,
		Message: "welcome aboard",
		TeamIDs: []snowflake.ID{team.ID},
	})
	if err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}
	if inv.Email != "new.hire@example.com" {
		t.Fatalf("expected normalized email, got %s", inv.Email)
	}
	if inv.Token == "" {
		t.Fatal("expected token in creator response")
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected one invite email, got %d", len(f.sender.sent))
	}

	invitee := f.newUser(t, "new.hire@example.com")
	result, err := f.svc.Accept(context.Background(), invitee, inv.Token)
	if err != nil {
		t.Fatalf("failed to accept invitation: %v", err)
	}
	if result.Role != orgdomain.RoleMember {
		t.Fatalf("expected member role, got %s", result.Role)
	}
	if result.OrgName != "Acme" {
		t.Fatalf("expected org name, got %s", result.OrgName)
	}

	var membership orgdomain.Membership
	if err := f.db.First(&membership, "org_id = ? AND user_id = ?", f.org, invitee).Error; err != nil {
		t.Fatalf("expected membership created: %v", err)
	}
	var attached int64
	if err := f.db.Model(&teamdomain.TeamMember{}).
		Where("team_id = ? AND membership_id = ?", team.ID, membership.ID).
		Count(&attached).Error; err != nil {
		t.Fatalf("failed to count attachments: %v", err)
	}
	if attached != 1 {
		t.Fatal("expected team attachment created")
	}

	// The token is single-use: the invitation is no longer pending.
	if _, err := f.svc.Accept(context.Background(), invitee, inv.Token); !errors.Is(err, domain.ErrInvitationNotFound) {
		t.Fatalf("expected ErrInvitationNotFound, got %v", err)
	}
}

func TestAcceptEmailMismatch(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	inv, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "invited@example.com",
	})
	if err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}

	stranger := f.newUser(t, "stranger@example.com")
	if _, err := f.svc.Accept(context.Background(), stranger, inv.Token); !errors.Is(err, domain.ErrEmailMismatch) {
		t.Fatalf("expected ErrEmailMismatch, got %v", err)
	}
}

func TestAcceptExpiredInvitation(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	inv, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "invited@example.com",
	})
	if err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}

	f.clk.Advance(8 * 24 * time.Hour)

	invitee := f.newUser(t, "invited@example.com")
	if _, err := f.svc.Accept(context.Background(), invitee, inv.Token); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// Expiry is recorded; the token matches no pending invitation anymore.
	if _, err := f.svc.Accept(context.Background(), invitee, inv.Token); !errors.Is(err, domain.ErrInvitationNotFound) {
		t.Fatalf("expected ErrInvitationNotFound, got %v", err)
	}
}

func TestDeclineInvitation(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	inv, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "invited@example.com",
	})
	if err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}

	invitee := f.newUser(t, "invited@example.com")
	if err := f.svc.Decline(context.Background(), invitee, inv.Token); err != nil {
		t.Fatalf("failed to decline: %v", err)
	}

	mine, err := f.svc.ListMine(context.Background(), invitee)
	if err != nil {
		t.Fatalf("failed to list invitations: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected no pending invitations, got %d", len(mine))
	}
	var membership int64
	if err := f.db.Model(&orgdomain.Membership{}).
		Where("org_id = ? AND user_id = ?", f.org, invitee).
		Count(&membership).Error; err != nil {
		t.Fatalf("failed to count memberships: %v", err)
	}
	if membership != 0 {
		t.Fatal("expected no membership after decline")
	}
}

func TestRevokeInvitationTerminal(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	inv, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "invited@example.com",
	})
	if err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}
	invID, _ := snowflake.ParseString(inv.ID)

	if err := f.svc.Revoke(context.Background(), admin, f.org, invID); err != nil {
		t.Fatalf("failed to revoke: %v", err)
	}
	if err := f.svc.Revoke(context.Background(), admin, f.org, invID); !errors.Is(err, domain.ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if _, err := f.svc.Resend(context.Background(), admin, f.org, invID); !errors.Is(err, domain.ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
}

func TestResendExtendsExpiryKeepsToken(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	inv, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "invited@example.com",
	})
	if err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}
	invID, _ := snowflake.ParseString(inv.ID)

	f.clk.Advance(3 * 24 * time.Hour)
	resent, err := f.svc.Resend(context.Background(), admin, f.org, invID)
	if err != nil {
		t.Fatalf("failed to resend: %v", err)
	}
	if resent.Token != inv.Token {
		t.Fatal("expected token unchanged on resend")
	}
	if !resent.ExpiresAt.After(inv.ExpiresAt) {
		t.Fatalf("expected extended expiry, got %v", resent.ExpiresAt)
	}
	if len(f.sender.sent) != 2 {
		t.Fatalf("expected invite re-sent, got %d emails", len(f.sender.sent))
	}
}

func TestCreateDuplicateInvitation(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	if _, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "invited@example.com",
	}); err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}

	_, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "Invited@Example.com",
	})
	if !errors.Is(err, domain.ErrAlreadyInvited) {
		t.Fatalf("expected ErrAlreadyInvited, got %v", err)
	}
}

func TestCreateForExistingMember(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)
	member := f.newUser(t, "member@example.com")
	f.addMembership(t, member, orgdomain.RoleMember)

	_, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "member@example.com",
	})
	if !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestCreateRejectsOwnerRole(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	_, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "invited@example.com",
		Role:  orgdomain.RoleOwner,
	})
	if !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestAllowedEmailDomains(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)
	f.setSettings(t, datatypes.JSONMap{
		orgdomain.SettingAllowedEmailDomains: []any{"example.com"},
	})

	if _, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "ok@example.com",
	}); err != nil {
		t.Fatalf("expected allowed domain to pass, got %v", err)
	}

	_, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "nope@elsewhere.com",
	})
	if !errors.Is(err, domain.ErrEmailNotAllowed) {
		t.Fatalf("expected ErrEmailNotAllowed, got %v", err)
	}
	if !strings.Contains(err.Error(), "example.com") {
		t.Fatalf("expected allowed domains in message, got %q", err.Error())
	}
}

func TestCreateChecksMembershipBeforeDomain(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)
	member := f.newUser(t, "member@elsewhere.com")
	f.addMembership(t, member, orgdomain.RoleMember)
	f.setSettings(t, datatypes.JSONMap{
		orgdomain.SettingAllowedEmailDomains: []any{"example.com"},
	})

	// An email that is both a member and outside the allow-list reports
	// the membership first.
	_, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "member@elsewhere.com",
	})
	if !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestMemberInviteGate(t *testing.T) {
	f := newFixture(t)
	member := f.newUser(t, "member@example.com")
	f.addMembership(t, member, orgdomain.RoleMember)

	_, err := f.svc.Create(context.Background(), member, f.org, domain.CreateInvitationRequest{
		Email: "friend@example.com",
	})
	if !errors.Is(err, authorization.ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}

	f.setSettings(t, datatypes.JSONMap{
		orgdomain.SettingAllowMemberInvites: true,
		orgdomain.SettingDefaultMemberRole:  orgdomain.RoleViewer,
	})

	// Member-initiated invites carry the configured default role even when
	// the request asks for more.
	inv, err := f.svc.Create(context.Background(), member, f.org, domain.CreateInvitationRequest{
		Email: "friend@example.com",
		Role:  orgdomain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}
	if inv.Role != orgdomain.RoleViewer {
		t.Fatalf("expected default role enforced, got %s", inv.Role)
	}
}

func TestBulkCreateMixedOutcomes(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)
	member := f.newUser(t, "member@example.com")
	f.addMembership(t, member, orgdomain.RoleMember)

	result, err := f.svc.BulkCreate(context.Background(), admin, f.org, domain.BulkInvitationRequest{
		Emails: []string{"fresh@example.com", "member@example.com", "not-an-email"},
		Role:   orgdomain.RoleMember,
	})
	if err != nil {
		t.Fatalf("failed to bulk create: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("expected one sent, got %d", result.Sent)
	}
	if result.Failed != 2 {
		t.Fatalf("expected two failed, got %d", result.Failed)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected two error entries, got %d", len(result.Errors))
	}
	for _, msg := range result.Errors {
		if !strings.Contains(msg, ": ") {
			t.Fatalf("expected email-prefixed error, got %q", msg)
		}
	}
}

func TestBulkCreateSizeLimit(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	if _, err := f.svc.BulkCreate(context.Background(), admin, f.org, domain.BulkInvitationRequest{}); !errors.Is(err, domain.ErrBulkSize) {
		t.Fatalf("expected ErrBulkSize, got %v", err)
	}

	emails := make([]string, 51)
	for i := range emails {
		emails[i] = "user@example.com"
	}
	if _, err := f.svc.BulkCreate(context.Background(), admin, f.org, domain.BulkInvitationRequest{Emails: emails}); !errors.Is(err, domain.ErrBulkSize) {
		t.Fatalf("expected ErrBulkSize, got %v", err)
	}
}

func TestListPendingLazyExpiry(t *testing.T) {
	f := newFixture(t)
	admin := f.newUser(t, "admin@example.com")
	f.addMembership(t, admin, orgdomain.RoleAdmin)

	if _, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "stale@example.com",
	}); err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}

	f.clk.Advance(5 * 24 * time.Hour)
	if _, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateInvitationRequest{
		Email: "fresh@example.com",
	}); err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}

	f.clk.Advance(3 * 24 * time.Hour)
	pending, err := f.svc.ListPending(context.Background(), admin, f.org)
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending invitation, got %d", len(pending))
	}
	if pending[0].Email != "fresh@example.com" {
		t.Fatalf("unexpected invitation %s", pending[0].Email)
	}

	var stale domain.Invitation
	if err := f.db.First(&stale, "email = ?", "stale@example.com").Error; err != nil {
		t.Fatalf("failed to load invitation: %v", err)
	}
	if stale.Status != domain.StatusExpired {
		t.Fatalf("expected expired status recorded, got %s", stale.Status)
	}
}
