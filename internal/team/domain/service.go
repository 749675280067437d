package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context, userID, orgID snowflake.ID) ([]TeamResponse, error)
	Create(ctx context.Context, userID, orgID snowflake.ID, req CreateTeamRequest) (*TeamResponse, error)
	Get(ctx context.Context, userID, orgID, teamID snowflake.ID) (*TeamDetail, error)
	Update(ctx context.Context, userID, orgID, teamID snowflake.ID, patch TeamPatch) (*TeamResponse, error)
	Delete(ctx context.Context, userID, orgID, teamID snowflake.ID) error
	AddMember(ctx context.Context, userID, orgID, teamID, membershipID snowflake.ID) error
	RemoveMember(ctx context.Context, userID, orgID, teamID, membershipID snowflake.ID) error
}

type CreateTeamRequest struct {
	Name        string
	Slug        string
	Description string
}

// TeamPatch carries the fields an update supplies. Nil fields are left
// untouched.
type TeamPatch struct {
	Name        *string
	Description *string
}

type TeamResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	MemberCount int64     `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// TeamMemberView is a team roster row joined with membership and user.
type TeamMemberView struct {
	MembershipID snowflake.ID `json:"membership_id,string"`
	UserID       snowflake.ID `json:"user_id,string"`
	UserEmail    string       `json:"user_email"`
	UserName     string       `json:"user_name"`
	Role         string       `json:"role"`
	JoinedAt     time.Time    `json:"joined_at"`
}

type TeamDetail struct {
	TeamResponse
	Members []TeamMemberView `json:"members"`
}

var (
	ErrTeamNotFound   = errors.New("team not found")
	ErrSlugTaken      = errors.New("team slug already taken in this organization")
	ErrInvalidSlug    = errors.New("invalid team slug")
	ErrInvalidName    = errors.New("invalid team name")
	ErrMemberNotFound = errors.New("member not found")
)
