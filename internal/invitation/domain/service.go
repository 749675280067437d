package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, userID, orgID snowflake.ID, req CreateInvitationRequest) (*InvitationResponse, error)
	BulkCreate(ctx context.Context, userID, orgID snowflake.ID, req BulkInvitationRequest) (*BulkInvitationResult, error)
	ListPending(ctx context.Context, userID, orgID snowflake.ID) ([]InvitationResponse, error)
	ListMine(ctx context.Context, userID snowflake.ID) ([]InvitationResponse, error)
	Accept(ctx context.Context, userID snowflake.ID, token string) (*AcceptResult, error)
	Decline(ctx context.Context, userID snowflake.ID, token string) error
	Revoke(ctx context.Context, userID, orgID, invitationID snowflake.ID) error
	Resend(ctx context.Context, userID, orgID, invitationID snowflake.ID) (*InvitationResponse, error)
}

type CreateInvitationRequest struct {
	Email   string
	Role    string
	Message string
	TeamIDs []snowflake.ID
}

type BulkInvitationRequest struct {
	Emails  []string
	Role    string
	Message string
	TeamIDs []snowflake.ID
}

// BulkInvitationResult reports per-email outcomes. Failures carry the form
// "<email>: <reason>".
type BulkInvitationResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

type InvitationResponse struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"organization_id"`
	OrgName   string    `json:"organization_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	InvitedBy *string   `json:"invited_by,omitempty"`
	Token     string    `json:"token,omitempty"`
	TeamIDs   []string  `json:"team_ids,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AcceptResult describes the membership created by accepting.
type AcceptResult struct {
	OrgID   string `json:"organization_id"`
	OrgName string `json:"organization_name"`
	Role    string `json:"role"`
}

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrAlreadyMember      = errors.New("user is already a member")
	ErrAlreadyInvited     = errors.New("invitation already pending for this email")
	ErrEmailNotAllowed    = errors.New("email domain not allowed")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidRole        = errors.New("invalid invitation role")
	ErrExpired            = errors.New("invitation has expired")
	ErrEmailMismatch      = errors.New("invitation is for a different email")
	ErrNotPending         = errors.New("only pending invitations can be modified")
	ErrBulkSize           = errors.New("between 1 and 50 emails required")
	ErrTeamNotFound       = errors.New("team not found in this organization")
)
