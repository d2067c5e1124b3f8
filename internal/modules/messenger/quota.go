package messenger

import (
	"fmt"
	"time"

	"github.com/yungbote/companion-backend/internal/data/repos"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
)

type Limits struct {
	UserMessageLimit      int64
	AssistantMessageLimit int64
	DailyPhotoLimit       int64
}

func DefaultLimits() Limits {
	return Limits{
		UserMessageLimit:      15,
		AssistantMessageLimit: 10,
		DailyPhotoLimit:       4,
	}
}

// DailyWindow returns the UTC bounds of the local calendar day containing now
// for a user offsetHours away from UTC. from is inclusive, to exclusive.
func DailyWindow(now time.Time, offsetHours int) (from, to time.Time) {
	loc := time.FixedZone("", offsetHours*3600)
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.UTC(), midnight.Add(24 * time.Hour).UTC()
}

// QuotaGate holds no state of its own; every decision is a count read
// through the repositories.
type QuotaGate struct {
	limits    Limits
	messages  repos.MessageRepo
	assistant repos.AssistantMessageRepo
	now       func() time.Time
}

func NewQuotaGate(limits Limits, messages repos.MessageRepo, assistant repos.AssistantMessageRepo) *QuotaGate {
	return &QuotaGate{limits: limits, messages: messages, assistant: assistant, now: time.Now}
}

// CheckAvatarSend returns ErrBlocked when an unsubscribed user already sent
// the allowed number of messages to the avatar.
func (g *QuotaGate) CheckAvatarSend(dbc dbctx.Context, u *types.User, avatarID int64) error {
	if u.IsSubscribed(g.now()) {
		return nil
	}
	n, err := g.messages.Count(dbc, types.Pair{UserID: u.ID, AvatarID: avatarID}, repos.MessageFilter{Role: types.RoleUser})
	if err != nil {
		return fmt.Errorf("quota: %w", err)
	}
	if n >= g.limits.UserMessageLimit {
		return ErrBlocked
	}
	return nil
}

func (g *QuotaGate) CheckAssistantSend(dbc dbctx.Context, u *types.User) error {
	if u.IsSubscribed(g.now()) {
		return nil
	}
	n, err := g.assistant.CountFromUser(dbc, u.ID)
	if err != nil {
		return fmt.Errorf("quota: %w", err)
	}
	if n >= g.limits.AssistantMessageLimit {
		return ErrBlocked
	}
	return nil
}

// DailyPhotoLimitReached counts the avatar's photo messages to the user in
// the user's current local day. Subscribers are counted too.
func (g *QuotaGate) DailyPhotoLimitReached(dbc dbctx.Context, u *types.User, avatarID int64) (bool, int64, error) {
	from, to := DailyWindow(g.now(), u.Timezone)
	n, err := g.messages.Count(dbc, types.Pair{UserID: u.ID, AvatarID: avatarID}, repos.MessageFilter{
		Role:      types.RoleAssistant,
		WithPhoto: true,
		From:      from,
		To:        to,
	})
	if err != nil {
		return false, 0, fmt.Errorf("daily photo count: %w", err)
	}
	return n >= g.limits.DailyPhotoLimit, n, nil
}
