package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/groveworks/grove/internal/authorization"
	"github.com/groveworks/grove/internal/clock"
	"github.com/groveworks/grove/internal/member/domain"
	orgdomain "github.com/groveworks/grove/internal/organization/domain"
)

type service struct {
	log   *zap.Logger
	db    *gorm.DB
	repo  domain.Repository
	authz *authorization.Evaluator
	clock clock.Clock
}

func New(
	log *zap.Logger,
	gdb *gorm.DB,
	repo domain.Repository,
	authz *authorization.Evaluator,
	clk clock.Clock,
) domain.Service {
	return &service{
		log:   log.Named("member"),
		db:    gdb,
		repo:  repo,
		authz: authz,
		clock: clk,
	}
}

func (s *service) List(ctx context.Context, userID, orgID snowflake.ID) ([]domain.MemberView, error) {
	if _, err := s.authz.RequireMember(ctx, userID, orgID); err != nil {
		return nil, err
	}
	return s.repo.ListViews(ctx, orgID)
}

func (s *service) Get(ctx context.Context, userID, orgID, membershipID snowflake.ID) (*domain.MemberView, error) {
	if _, err := s.authz.RequireMember(ctx, userID, orgID); err != nil {
		return nil, err
	}
	return s.repo.GetView(ctx, orgID, membershipID)
}

// Update applies role and profile changes to a membership. Touching an
// owner's role is reserved to owners, and the last active owner can be
// neither demoted nor deactivated.
func (s *service) Update(ctx context.Context, userID, orgID, membershipID snowflake.ID, patch domain.MemberPatch) (*domain.MemberView, error) {
	caller, err := s.authz.RequireAdmin(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.GetMembership(ctx, orgID, membershipID)
	if err != nil {
		return nil, err
	}

	if patch.Role != nil && !orgdomain.ValidRole(*patch.Role) {
		return nil, domain.ErrInvalidRole
	}
	if patch.Role != nil && *patch.Role != target.Role && target.IsOwner() && !caller.IsOwner() {
		return nil, domain.ErrOwnerRoleChange
	}

	losesOwner := target.IsOwner() && target.IsActive &&
		((patch.Role != nil && *patch.Role != orgdomain.RoleOwner) ||
			(patch.IsActive != nil && !*patch.IsActive))
	if losesOwner {
		owners, err := s.repo.CountActiveOwners(ctx, orgID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, domain.ErrLastOwnerDemote
		}
	}

	fields := map[string]any{}
	if patch.Role != nil {
		fields["role"] = *patch.Role
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}
	if patch.JobTitle != nil {
		fields["job_title"] = *patch.JobTitle
	}
	if patch.Department != nil {
		fields["department"] = *patch.Department
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.clock.Now()
		if err := s.repo.UpdateFields(ctx, orgID, membershipID, fields); err != nil {
			return nil, err
		}
	}

	if patch.Role != nil || patch.IsActive != nil {
		role := target.Role
		if patch.Role != nil {
			role = *patch.Role
		}
		active := target.IsActive
		if patch.IsActive != nil {
			active = *patch.IsActive
		}
		if !active {
			role = ""
		}
		if err := s.authz.SyncRole(target.UserID, orgID, role); err != nil {
			s.log.Warn("sync member role", zap.String("org_id", orgID.String()), zap.Error(err))
		}
	}

	return s.repo.GetView(ctx, orgID, membershipID)
}

// Remove deletes another member's membership. Owners cannot be removed and
// self-removal goes through Leave.
func (s *service) Remove(ctx context.Context, userID, orgID, membershipID snowflake.ID) error {
	if _, err := s.authz.RequireAdmin(ctx, userID, orgID); err != nil {
		return err
	}
	target, err := s.repo.GetMembership(ctx, orgID, membershipID)
	if err != nil {
		return err
	}
	if target.IsOwner() {
		return domain.ErrCannotRemoveOwner
	}
	if target.UserID == userID {
		return domain.ErrRemoveSelf
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteMembership(ctx, orgID, membershipID)
	})
	if err != nil {
		return err
	}
	if err := s.authz.DropRole(target.UserID, orgID); err != nil {
		s.log.Warn("drop member role", zap.String("org_id", orgID.String()), zap.Error(err))
	}
	s.log.Info("member removed",
		zap.String("org_id", orgID.String()),
		zap.String("membership_id", membershipID.String()),
	)
	return nil
}

// Leave removes the caller's own active membership. The only active owner
// cannot leave; ownership must be transferred or the organization deleted
// first. The owner count check and the delete run in one transaction.
func (s *service) Leave(ctx context.Context, userID, orgID snowflake.ID) error {
	member, err := s.authz.RequireMember(ctx, userID, orgID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if member.IsOwner() {
			owners, err := repo.CountActiveOwners(ctx, orgID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return domain.ErrLastOwnerLeave
			}
		}
		return repo.DeleteMembership(ctx, orgID, member.ID)
	})
	if err != nil {
		return err
	}
	if err := s.authz.DropRole(userID, orgID); err != nil {
		s.log.Warn("drop member role", zap.String("org_id", orgID.String()), zap.Error(err))
	}
	s.log.Info("member left",
		zap.String("org_id", orgID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

// TransferOwnership promotes the target membership to owner and demotes the
// caller to admin in one transaction.
func (s *service) TransferOwnership(ctx context.Context, userID, orgID, membershipID snowflake.ID) error {
	caller, err := s.authz.RequireOwner(ctx, userID, orgID)
	if err != nil {
		return err
	}
	target, err := s.repo.GetMembership(ctx, orgID, membershipID)
	if err != nil {
		return err
	}
	if target.ID == caller.ID {
		return domain.ErrTransferToSelf
	}
	if !target.IsActive {
		return domain.ErrTransferInactive
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateFields(ctx, orgID, target.ID, map[string]any{
			"role":       orgdomain.RoleOwner,
			"updated_at": now,
		}); err != nil {
			return err
		}
		return repo.UpdateFields(ctx, orgID, caller.ID, map[string]any{
			"role":       orgdomain.RoleAdmin,
			"updated_at": now,
		})
	})
	if err != nil {
		return err
	}

	if err := s.authz.SyncRole(target.UserID, orgID, orgdomain.RoleOwner); err != nil {
		s.log.Warn("sync owner role", zap.String("org_id", orgID.String()), zap.Error(err))
	}
	if err := s.authz.SyncRole(userID, orgID, orgdomain.RoleAdmin); err != nil {
		s.log.Warn("sync admin role", zap.String("org_id", orgID.String()), zap.Error(err))
	}
	s.log.Info("ownership transferred",
		zap.String("org_id", orgID.String()),
		zap.String("from_user_id", userID.String()),
		zap.String("to_user_id", target.UserID.String()),
	)
	return nil
}
