package messenger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/data/repos"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/intent"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/realtime/bus"
)

type Config struct {
	Limits   Limits
	Pipeline PipelineConfig
	// PresenceTTL turns an avatar offline again once it has been quiet this
	// long. Zero keeps avatars online forever.
	PresenceTTL   time.Duration
	MaxTextLength int
}

func DefaultConfig() Config {
	return Config{
		Limits:        DefaultLimits(),
		Pipeline:      DefaultPipelineConfig(),
		PresenceTTL:   30 * time.Minute,
		MaxTextLength: 4000,
	}
}

type ServiceDeps struct {
	Log *logger.Logger

	Users     repos.UserRepo
	Avatars   repos.AvatarRepo
	Messages  repos.MessageRepo
	Assistant repos.AssistantMessageRepo
	Presence  repos.PresenceRepo

	Bus        bus.Bus
	Completion openai.Client
	Classifier intent.Classifier
	Dispatcher *Dispatcher
	// Tx wraps the quota check and the write it guards. Nil runs them
	// without a transaction.
	Tx      dbctx.TxRunner
	Phrases *Phrases
	Metrics Metrics

	Config Config
}

type Service interface {
	// SendToAvatar stores the user's message and returns it at once; the
	// avatar's reply arrives later over the user's channel.
	SendToAvatar(ctx context.Context, userID, avatarID int64, text string) (*realtime.MessagePayload, error)
	// ListMessages returns newest first. An empty conversation is opened with
	// the avatar's hello messages.
	ListMessages(ctx context.Context, userID, avatarID int64, offset, limit int) ([]realtime.MessagePayload, error)
	MarkRead(ctx context.Context, userID, avatarID int64) error
	Dialogs(ctx context.Context, userID int64, offset, limit int) ([]Dialog, error)
	// SendToAssistant waits for the assistant's reply and returns it.
	SendToAssistant(ctx context.Context, userID int64, text string) (*types.AssistantMessage, error)
	AssistantHistory(ctx context.Context, userID int64, offset, limit int) ([]*types.AssistantMessage, error)
}

type service struct {
	log      *logger.Logger
	deps     ServiceDeps
	quota    *QuotaGate
	pipeline *pipeline
	now      func() time.Time
}

func NewService(deps ServiceDeps) (Service, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("messenger: logger required")
	}
	if deps.Users == nil || deps.Avatars == nil || deps.Messages == nil || deps.Assistant == nil || deps.Presence == nil {
		return nil, fmt.Errorf("messenger: repositories required")
	}
	if deps.Bus == nil || deps.Completion == nil || deps.Classifier == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("messenger: bus, completion, classifier and dispatcher required")
	}
	if deps.Phrases == nil {
		deps.Phrases = DefaultPhrases(deps.Log)
	}
	if deps.Tx == nil {
		deps.Tx = dbctx.NoTx{}
	}
	if deps.Config.MaxTextLength <= 0 {
		deps.Config.MaxTextLength = DefaultConfig().MaxTextLength
	}
	if deps.Config.Limits == (Limits{}) {
		deps.Config.Limits = DefaultLimits()
	}

	quota := NewQuotaGate(deps.Config.Limits, deps.Messages, deps.Assistant)
	return &service{
		log:   deps.Log.With("service", "MessengerService"),
		deps:  deps,
		quota: quota,
		pipeline: newPipeline(deps.Log, deps.Config.Pipeline, deps.Messages, deps.Presence,
			deps.Bus, deps.Completion, deps.Classifier, quota, deps.Phrases, deps.Metrics),
		now: time.Now,
	}, nil
}

func (s *service) SendToAvatar(ctx context.Context, userID, avatarID int64, text string) (*realtime.MessagePayload, error) {
	text, err := s.cleanText(text)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.user(dbc, userID)
	if err != nil {
		return nil, err
	}
	a, err := s.avatar(dbc, avatarID)
	if err != nil {
		return nil, err
	}

	var m *types.Message
	err = s.deps.Tx.InTx(ctx, func(dbc dbctx.Context) error {
		if err := s.quota.CheckAvatarSend(dbc, u, a.ID); err != nil {
			return err
		}
		var err error
		m, err = s.deps.Messages.Create(dbc, types.UserParticipant(u.ID), types.AvatarParticipant(a.ID),
			repos.NewMessage{Text: text, Unread: false})
		return err
	})
	if err != nil {
		return nil, err
	}

	in := inbound{User: u, Avatar: a, Text: text}
	if err := s.deps.Dispatcher.Go(ctx, in.pair(),
		func(ctx context.Context) error { return s.pipeline.announce(ctx, in) },
		func(ctx context.Context) error { return s.pipeline.respond(ctx, in) },
	); err != nil {
		s.log.Warn("reply not scheduled", "pair", in.pair().String(), "error", err)
	}

	out := messagePayload(m, userSender(u), false)
	return &out, nil
}

func (s *service) ListMessages(ctx context.Context, userID, avatarID int64, offset, limit int) ([]realtime.MessagePayload, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.user(dbc, userID)
	if err != nil {
		return nil, err
	}
	a, err := s.avatar(dbc, avatarID)
	if err != nil {
		return nil, err
	}
	pair := types.Pair{UserID: u.ID, AvatarID: a.ID}

	if err := s.deps.Tx.InTx(ctx, func(dbc dbctx.Context) error {
		return s.openConversation(dbc, u, a)
	}); err != nil {
		return nil, err
	}

	rows, err := s.deps.Messages.List(dbc, pair, offset, limit)
	if err != nil {
		return nil, err
	}
	me, them := userSender(u), avatarSender(a, false)
	out := make([]realtime.MessagePayload, 0, len(rows))
	for _, m := range rows {
		from := them
		if m.Role == types.RoleUser {
			from = me
		}
		out = append(out, messagePayload(m, from, false))
	}
	return out, nil
}

// openConversation sends the avatar's hello messages into an empty
// conversation.
func (s *service) openConversation(dbc dbctx.Context, u *types.User, a *types.Avatar) error {
	pair := types.Pair{UserID: u.ID, AvatarID: a.ID}
	total, err := s.deps.Messages.Count(dbc, pair, repos.MessageFilter{})
	if err != nil || total > 0 {
		return err
	}
	for _, hello := range a.HelloMessages {
		if _, err := s.deps.Messages.Create(dbc, types.AvatarParticipant(a.ID), types.UserParticipant(u.ID),
			repos.NewMessage{Text: hello.Text, Unread: true}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) MarkRead(ctx context.Context, userID, avatarID int64) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.avatar(dbc, avatarID); err != nil {
		return err
	}
	return s.deps.Messages.MarkRead(dbc, types.Pair{UserID: userID, AvatarID: avatarID})
}

func (s *service) Dialogs(ctx context.Context, userID int64, offset, limit int) ([]Dialog, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.user(dbc, userID)
	if err != nil {
		return nil, err
	}
	if ttl := s.deps.Config.PresenceTTL; ttl > 0 {
		if n, err := s.deps.Presence.ExpireOnline(dbc, u.ID, s.now().Add(-ttl)); err != nil {
			s.log.Warn("expire presence failed", "user_id", u.ID, "error", err)
		} else if n > 0 {
			s.log.Debug("avatars went offline", "user_id", u.ID, "count", n)
		}
	}

	rows, err := s.deps.Messages.ListDialogs(dbc, u.ID, offset, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Message.AvatarID)
	}
	avatars, err := s.deps.Avatars.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*types.Avatar, len(avatars))
	for _, a := range avatars {
		byID[a.ID] = a
	}

	me := userSender(u)
	out := make([]Dialog, 0, len(rows))
	for _, r := range rows {
		a, ok := byID[r.Message.AvatarID]
		if !ok {
			continue
		}
		chat := avatarSender(a, r.IsOnline)
		from := chat
		if r.Message.Role == types.RoleUser {
			from = me
		}
		out = append(out, Dialog{
			UnreadCount: r.UnreadCount,
			Chat:        chat,
			TopMessage:  messagePayload(r.Message, from, false),
		})
	}
	return out, nil
}

func (s *service) SendToAssistant(ctx context.Context, userID int64, text string) (*types.AssistantMessage, error) {
	text, err := s.cleanText(text)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.user(dbc, userID)
	if err != nil {
		return nil, err
	}
	if err := s.quota.CheckAssistantSend(dbc, u); err != nil {
		return nil, err
	}
	if _, err := s.deps.Assistant.Create(dbc, u.ID, types.RoleUser, text); err != nil {
		return nil, err
	}

	history, err := s.deps.Assistant.List(dbc, u.ID, 0, s.pipeline.cfg.HistoryTurns)
	if err != nil {
		return nil, err
	}
	replyText, err := s.deps.Completion.Complete(ctx, assistantTranscript(history))
	if err != nil {
		return nil, completionError(err)
	}
	if strings.TrimSpace(replyText) == "" {
		return nil, completionFailed()
	}
	return s.deps.Assistant.Create(dbc, u.ID, types.RoleAssistant, replyText)
}

func (s *service) AssistantHistory(ctx context.Context, userID int64, offset, limit int) ([]*types.AssistantMessage, error) {
	return s.deps.Assistant.List(dbctx.Context{Ctx: ctx}, userID, offset, limit)
}

func (s *service) cleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(text) > s.deps.Config.MaxTextLength {
		return "", ErrTextTooLong
	}
	return text, nil
}

func (s *service) user(dbc dbctx.Context, id int64) (*types.User, error) {
	u, err := s.deps.Users.GetByID(dbc, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *service) avatar(dbc dbctx.Context, id int64) (*types.Avatar, error) {
	a, err := s.deps.Avatars.GetByID(dbc, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAvatarNotFound
	}
	return a, err
}
