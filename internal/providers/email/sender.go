// Package email defines the outbound mail hook. The default sender only
// logs; deployments plug a real provider in through fx.
package email

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Invite is the payload for an invitation email.
type Invite struct {
	Email     string
	OrgName   string
	InviterID string
	Token     string
	Message   string
	ExpiresAt time.Time
}

// Sender delivers transactional email. Delivery is best effort; callers do
// not fail their operation when sending fails.
type Sender interface {
	SendInvite(ctx context.Context, invite Invite) error
}

type logSender struct {
	log *zap.Logger
}

// NewLogSender returns a sender that records the invite instead of
// delivering it.
func NewLogSender(log *zap.Logger) Sender {
	return &logSender{log: log.Named("email")}
}

func (s *logSender) SendInvite(_ context.Context, invite Invite) error {
	s.log.Info("invitation email",
		zap.String("to", invite.Email),
		zap.String("org", invite.OrgName),
		zap.Time("expires_at", invite.ExpiresAt),
	)
	return nil
}
