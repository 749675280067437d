// Package domain defines member roster operations. Memberships are stored
// by the organization service; this package adds the user-facing views and
// the role transition rules.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context, userID, orgID snowflake.ID) ([]MemberView, error)
	Get(ctx context.Context, userID, orgID, membershipID snowflake.ID) (*MemberView, error)
	Update(ctx context.Context, userID, orgID, membershipID snowflake.ID, patch MemberPatch) (*MemberView, error)
	Remove(ctx context.Context, userID, orgID, membershipID snowflake.ID) error
	Leave(ctx context.Context, userID, orgID snowflake.ID) error
	TransferOwnership(ctx context.Context, userID, orgID, membershipID snowflake.ID) error
}

// MemberView is a roster row joined with the user record.
type MemberView struct {
	ID         snowflake.ID `json:"id,string"`
	UserID     snowflake.ID `json:"user_id,string"`
	UserEmail  string       `json:"user_email"`
	UserName   string       `json:"user_name"`
	Role       string       `json:"role"`
	JobTitle   string       `json:"job_title"`
	Department string       `json:"department"`
	IsActive   bool         `json:"is_active"`
	CreatedAt  time.Time    `json:"created_at"`
}

// MemberPatch carries the fields an update supplies. Nil fields are left
// untouched.
type MemberPatch struct {
	Role       *string
	IsActive   *bool
	JobTitle   *string
	Department *string
}

var (
	ErrMemberNotFound    = errors.New("member not found")
	ErrInvalidRole       = errors.New("invalid role")
	ErrOwnerRoleChange   = errors.New("only owners can change another owner's role")
	ErrLastOwnerDemote   = errors.New("cannot demote or deactivate the only active owner")
	ErrCannotRemoveOwner = errors.New("cannot remove organization owner")
	ErrRemoveSelf        = errors.New("cannot remove yourself: use the leave endpoint instead")
	ErrLastOwnerLeave    = errors.New("cannot leave as the only owner: transfer ownership first or delete the organization")
	ErrTransferToSelf    = errors.New("cannot transfer ownership to yourself")
	ErrTransferInactive  = errors.New("cannot transfer ownership to a deactivated member")
)
