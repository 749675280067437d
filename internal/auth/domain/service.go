package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	Refresh(ctx context.Context, rawToken string) (*LoginResult, error)
	GetUser(ctx context.Context, userID snowflake.ID) (*User, error)
	UpdateProfile(ctx context.Context, userID snowflake.ID, patch ProfilePatch) (*User, error)
	ChangePassword(ctx context.Context, userID snowflake.ID, currentPassword, newPassword string) error
}

type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}

// ProfilePatch carries the fields a profile update supplies. Nil fields are
// left untouched.
type ProfilePatch struct {
	DisplayName *string
	AvatarURL   *string
	Bio         *string
	Phone       *string
	Timezone    *string
	Locale      *string
}
