package telegram

import (
	"context"

	"anxiety-quiz-bot/internal/app"
)

// MembershipOracle answers subscription checks with getChatMember.
type MembershipOracle struct {
	client *Client
}

func NewMembershipOracle(client *Client) *MembershipOracle {
	return &MembershipOracle{client: client}
}

func (o *MembershipOracle) Membership(ctx context.Context, channel string, userID int64) (app.Membership, error) {
	member, err := o.client.GetChatMember(ctx, channel, userID)
	if err != nil {
		return app.MembershipUnknown, err
	}
	return membershipFromStatus(member), nil
}

func membershipFromStatus(member ChatMember) app.Membership {
	switch member.Status {
	case "creator", "administrator", "member":
		return app.MembershipMember
	case "restricted":
		if member.IsMember {
			return app.MembershipMember
		}
		return app.MembershipNotMember
	case "left", "kicked":
		return app.MembershipNotMember
	default:
		return app.MembershipUnknown
	}
}
