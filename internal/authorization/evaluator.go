package authorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	orgdomain "github.com/groveworks/grove/internal/organization/domain"
)

// Evaluator resolves memberships and answers access questions. A user who
// holds no membership in an organization is told the organization does not
// exist, which keeps tenant existence unguessable.
type Evaluator struct {
	log      *zap.Logger
	db       *gorm.DB
	enforcer *casbin.SyncedEnforcer
}

func NewEvaluator(log *zap.Logger, db *gorm.DB, enforcer *casbin.SyncedEnforcer) *Evaluator {
	return &Evaluator{
		log:      log.Named("authorization"),
		db:       db,
		enforcer: enforcer,
	}
}

// ResolveMembership loads the caller's membership in the organization.
// Missing membership and, when requireActive is set, deactivated membership
// both resolve to ErrOrganizationNotFound.
func (e *Evaluator) ResolveMembership(ctx context.Context, userID, orgID snowflake.ID, requireActive bool) (*orgdomain.Membership, error) {
	var member orgdomain.Membership
	err := e.db.WithContext(ctx).
		First(&member, "org_id = ? AND user_id = ?", orgID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orgdomain.ErrOrganizationNotFound
		}
		return nil, err
	}
	if requireActive && !member.IsActive {
		return nil, orgdomain.ErrOrganizationNotFound
	}
	return &member, nil
}

// RequireMember resolves an active membership.
func (e *Evaluator) RequireMember(ctx context.Context, userID, orgID snowflake.ID) (*orgdomain.Membership, error) {
	return e.ResolveMembership(ctx, userID, orgID, true)
}

// RequireAdmin resolves an active membership holding the admin or owner role.
func (e *Evaluator) RequireAdmin(ctx context.Context, userID, orgID snowflake.ID) (*orgdomain.Membership, error) {
	member, err := e.ResolveMembership(ctx, userID, orgID, true)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return member, nil
}

// RequireOwner resolves an active membership holding the owner role.
func (e *Evaluator) RequireOwner(ctx context.Context, userID, orgID snowflake.ID) (*orgdomain.Membership, error) {
	member, err := e.ResolveMembership(ctx, userID, orgID, true)
	if err != nil {
		return nil, err
	}
	if !member.IsOwner() {
		return nil, ErrOwnerRequired
	}
	return member, nil
}

// Authorize asks the policy engine whether the user may perform act on obj
// within the organization. The caller's role grouping must have been synced.
func (e *Evaluator) Authorize(ctx context.Context, userID, orgID snowflake.ID, obj, act string) error {
	if _, err := e.ResolveMembership(ctx, userID, orgID, true); err != nil {
		return err
	}
	ok, err := e.enforcer.Enforce(subject(userID), dom(orgID), obj, act)
	if err != nil {
		return fmt.Errorf("authorization: enforce: %w", err)
	}
	if !ok {
		e.log.Debug("access denied",
			zap.String("user_id", userID.String()),
			zap.String("org_id", orgID.String()),
			zap.String("object", obj),
			zap.String("action", act),
		)
		return ErrForbidden
	}
	return nil
}

// SyncRole mirrors a membership's role into the policy store, replacing any
// previous grouping for the user in that organization.
func (e *Evaluator) SyncRole(userID, orgID snowflake.ID, role string) error {
	sub := subject(userID)
	domain := dom(orgID)
	if _, err := e.enforcer.DeleteRolesForUserInDomain(sub, domain); err != nil {
		return fmt.Errorf("authorization: clear roles: %w", err)
	}
	if role == "" {
		return nil
	}
	if _, err := e.enforcer.AddRoleForUserInDomain(sub, "role:"+role, domain); err != nil {
		return fmt.Errorf("authorization: grant role: %w", err)
	}
	return nil
}

// DropRole removes all role groupings for the user in the organization.
func (e *Evaluator) DropRole(userID, orgID snowflake.ID) error {
	return e.SyncRole(userID, orgID, "")
}

// DropDomain removes every grouping scoped to the organization. Used when
// an organization is deleted.
func (e *Evaluator) DropDomain(orgID snowflake.ID) error {
	if _, err := e.enforcer.DeleteDomains(dom(orgID)); err != nil {
		return fmt.Errorf("authorization: drop domain: %w", err)
	}
	return nil
}

func subject(userID snowflake.ID) string { return "user:" + userID.String() }

func dom(orgID snowflake.ID) string { return "org:" + orgID.String() }
