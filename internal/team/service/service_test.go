package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/groveworks/grove/internal/auth/domain"
	"github.com/groveworks/grove/internal/authorization"
	"github.com/groveworks/grove/internal/clock"
	invitationdomain "github.com/groveworks/grove/internal/invitation/domain"
	orgdomain "github.com/groveworks/grove/internal/organization/domain"
	orgrepository "github.com/groveworks/grove/internal/organization/repository"
	"github.com/groveworks/grove/internal/team/domain"
	"github.com/groveworks/grove/internal/team/repository"
	"github.com/groveworks/grove/pkg/db"
)

type fixture struct {
	svc  domain.Service
	db   *gorm.DB
	node *snowflake.Node
	org  snowflake.ID
}

func newFixture(t *testing.T) (*fixture, snowflake.ID) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{},
		&orgdomain.Organization{},
		&orgdomain.Membership{},
		&domain.Team{},
		&domain.TeamMember{},
		&invitationdomain.Invitation{},
		&invitationdomain.InvitationTeam{},
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

	f := &fixture{db: dbConn, node: node}
	f.svc = New(zap.NewNop(), dbConn, repository.New(dbConn), orgrepository.New(dbConn), authz, node, clk)

	admin := f.newUser(t, "admin@example.com")
	f.org = node.Generate()
	org := &orgdomain.Organization{ID: f.org, Name: "Acme", Slug: "acme", Plan: "free"}
	if err := dbConn.Create(org).Error; err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}
	f.addMembership(t, admin, orgdomain.RoleAdmin, true)

	return f, admin
}

func (f *fixture) newUser(t *testing.T, email string) snowflake.ID {
	t.Helper()
	user := &authdomain.User{
		ID:         f.node.Generate(),
		ExternalID: f.node.Generate().String(),
		Email:      email,
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user.ID
}

func (f *fixture) addMembership(t *testing.T, userID snowflake.ID, role string, active bool) snowflake.ID {
	t.Helper()
	membership := &orgdomain.Membership{
		ID:       f.node.Generate(),
		OrgID:    f.org,
		UserID:   userID,
		Role:     role,
		IsActive: active,
	}
	if err := f.db.Create(membership).Error; err != nil {
		t.Fatalf("failed to create membership: %v", err)
	}
	return membership.ID
}

func TestCreateTeamGeneratesSlug(t *testing.T) {
	f, admin := newFixture(t)

	team, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateTeamRequest{
		Name: "Platform Engineering",
	})
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	if team.Slug != "platform-engineering" {
		t.Fatalf("expected generated slug, got %s", team.Slug)
	}
	if team.MemberCount != 0 {
		t.Fatalf("expected empty team, got %d members", team.MemberCount)
	}
}

func TestCreateTeamSlugScopedToOrg(t *testing.T) {
	f, admin := newFixture(t)

	if _, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateTeamRequest{
		Name: "Platform",
		Slug: "platform",
	}); err != nil {
		t.Fatalf("failed to create team: %v", err)
	}

	_, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateTeamRequest{
		Name: "Platform Two",
		Slug: "platform",
	})
	if !errors.Is(err, domain.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}

	// The same slug is free in another organization.
	other := &orgdomain.Organization{ID: f.node.Generate(), Name: "Beta", Slug: "beta", Plan: "free"}
	if err := f.db.Create(other).Error; err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}
	membership := &orgdomain.Membership{
		ID:       f.node.Generate(),
		OrgID:    other.ID,
		UserID:   admin,
		Role:     orgdomain.RoleAdmin,
		IsActive: true,
	}
	if err := f.db.Create(membership).Error; err != nil {
		t.Fatalf("failed to create membership: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), admin, other.ID, domain.CreateTeamRequest{
		Name: "Platform",
		Slug: "platform",
	}); err != nil {
		t.Fatalf("expected slug reuse across organizations, got %v", err)
	}
}

func TestCreateTeamMemberForbidden(t *testing.T) {
	f, _ := newFixture(t)
	member := f.newUser(t, "member@example.com")
	f.addMembership(t, member, orgdomain.RoleMember, true)

	_, err := f.svc.Create(context.Background(), member, f.org, domain.CreateTeamRequest{Name: "Rogue"})
	if !errors.Is(err, authorization.ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}
}

func TestAddMemberIdempotent(t *testing.T) {
	f, admin := newFixture(t)
	member := f.newUser(t, "member@example.com")
	membershipID := f.addMembership(t, member, orgdomain.RoleMember, true)

	team, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateTeamRequest{Name: "Platform"})
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	teamID, _ := snowflake.ParseString(team.ID)

	if err := f.svc.AddMember(context.Background(), admin, f.org, teamID, membershipID); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
	if err := f.svc.AddMember(context.Background(), admin, f.org, teamID, membershipID); err != nil {
		t.Fatalf("expected repeated add to be a no-op, got %v", err)
	}

	var count int64
	if err := f.db.Model(&domain.TeamMember{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count team members: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one attachment, got %d", count)
	}
}

func TestAddMemberUnknownMembership(t *testing.T) {
	f, admin := newFixture(t)

	team, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateTeamRequest{Name: "Platform"})
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	teamID, _ := snowflake.ParseString(team.ID)

	err = f.svc.AddMember(context.Background(), admin, f.org, teamID, f.node.Generate())
	if !errors.Is(err, domain.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestRemoveMemberAbsent(t *testing.T) {
	f, admin := newFixture(t)
	member := f.newUser(t, "member@example.com")
	membershipID := f.addMembership(t, member, orgdomain.RoleMember, true)

	team, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateTeamRequest{Name: "Platform"})
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	teamID, _ := snowflake.ParseString(team.ID)

	err = f.svc.RemoveMember(context.Background(), admin, f.org, teamID, membershipID)
	if !errors.Is(err, domain.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestGetTeamDetailListsActiveMembers(t *testing.T) {
	f, admin := newFixture(t)
	active := f.newUser(t, "active@example.com")
	inactive := f.newUser(t, "inactive@example.com")
	activeMembership := f.addMembership(t, active, orgdomain.RoleMember, true)
	inactiveMembership := f.addMembership(t, inactive, orgdomain.RoleMember, false)

	team, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateTeamRequest{Name: "Platform"})
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	teamID, _ := snowflake.ParseString(team.ID)

	if err := f.svc.AddMember(context.Background(), admin, f.org, teamID, activeMembership); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
	if err := f.svc.AddMember(context.Background(), admin, f.org, teamID, inactiveMembership); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}

	detail, err := f.svc.Get(context.Background(), admin, f.org, teamID)
	if err != nil {
		t.Fatalf("failed to get team: %v", err)
	}
	if len(detail.Members) != 1 {
		t.Fatalf("expected only active members listed, got %d", len(detail.Members))
	}
	if detail.Members[0].UserEmail != "active@example.com" {
		t.Fatalf("unexpected member %s", detail.Members[0].UserEmail)
	}
}

func TestDeleteTeamRemovesAttachments(t *testing.T) {
	f, admin := newFixture(t)
	member := f.newUser(t, "member@example.com")
	membershipID := f.addMembership(t, member, orgdomain.RoleMember, true)

	team, err := f.svc.Create(context.Background(), admin, f.org, domain.CreateTeamRequest{Name: "Platform"})
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	teamID, _ := snowflake.ParseString(team.ID)
	if err := f.svc.AddMember(context.Background(), admin, f.org, teamID, membershipID); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}

	if err := f.svc.Delete(context.Background(), admin, f.org, teamID); err != nil {
		t.Fatalf("failed to delete team: %v", err)
	}

	var count int64
	if err := f.db.Model(&domain.TeamMember{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count team members: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected attachments removed, got %d", count)
	}
	if _, err := f.svc.Get(context.Background(), admin, f.org, teamID); !errors.Is(err, domain.ErrTeamNotFound) {
		t.Fatalf("expected ErrTeamNotFound, got %v", err)
	}
}
