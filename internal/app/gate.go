package app

import (
	"context"
	"log/slog"

	"anxiety-quiz-bot/internal/telemetry"
)

// Membership is the subscription status reported by the messaging platform.
type Membership int

const (
	MembershipUnknown Membership = iota
	MembershipMember
	MembershipNotMember
)

func (m Membership) String() string {
	switch m {
	case MembershipMember:
		return "member"
	case MembershipNotMember:
		return "not_member"
	default:
		return "unknown"
	}
}

// SubscriptionOracle answers whether a user belongs to a channel.
type SubscriptionOracle interface {
	Membership(ctx context.Context, channel string, userID int64) (Membership, error)
}

// Gate releases bonus content to channel members only.
type Gate struct {
	oracle  SubscriptionOracle
	channel string
	log     *slog.Logger
}

func NewGate(oracle SubscriptionOracle, channel string, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{oracle: oracle, channel: channel, log: log}
}

// Channel is the channel the gate checks against.
func (g *Gate) Channel() string {
	return g.channel
}

// Allowed fails closed: lookup errors and unknown statuses count as not subscribed.
// The error cause is logged, never returned.
func (g *Gate) Allowed(ctx context.Context, userID int64) bool {
	membership, err := g.oracle.Membership(ctx, g.channel, userID)
	if err != nil {
		telemetry.SubscriptionChecks.WithLabelValues("error").Inc()
		g.log.ErrorContext(ctx, "gate: subscription check failed",
			"user_id", userID,
			"channel", g.channel,
			"error", err,
		)
		return false
	}

	telemetry.SubscriptionChecks.WithLabelValues(membership.String()).Inc()
	return membership == MembershipMember
}
