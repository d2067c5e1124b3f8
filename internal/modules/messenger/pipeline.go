package messenger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/companion-backend/internal/data/repos"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/pkg/httpx"
	"github.com/yungbote/companion-backend/internal/platform/intent"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/realtime/bus"
)

type PipelineConfig struct {
	// HistoryTurns is how many recent messages feed a chat completion.
	HistoryTurns int
	SendTeaser   bool
	TeaserDelay  time.Duration
	PhotoDelay   time.Duration
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		HistoryTurns: 5,
		SendTeaser:   true,
		TeaserDelay:  2 * time.Second,
		PhotoDelay:   3 * time.Second,
	}
}

// inbound is one user message handed to the reply pipeline.
type inbound struct {
	User   *types.User
	Avatar *types.Avatar
	Text   string
}

func (in inbound) pair() types.Pair { return types.Pair{UserID: in.User.ID, AvatarID: in.Avatar.ID} }

type branch string

const (
	branchChat     branch = "chat"
	branchPhoto    branch = "photo"
	branchFarewell branch = "farewell"
)

// reply is what a branch produced; limitDailyImage is only set by farewell.
type reply struct {
	branch          branch
	message         *types.Message
	limitDailyImage bool
}

type pipeline struct {
	log        *logger.Logger
	cfg        PipelineConfig
	messages   repos.MessageRepo
	presence   repos.PresenceRepo
	bus        bus.Bus
	completion openai.Client
	classifier intent.Classifier
	quota      *QuotaGate
	phrases    *Phrases
	metrics    Metrics

	pick  func(n int) int
	sleep func(ctx context.Context, d time.Duration) error
}

func newPipeline(
	log *logger.Logger,
	cfg PipelineConfig,
	messages repos.MessageRepo,
	presence repos.PresenceRepo,
	b bus.Bus,
	completion openai.Client,
	classifier intent.Classifier,
	quota *QuotaGate,
	phrases *Phrases,
	metrics Metrics,
) *pipeline {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 5
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &pipeline{
		log:        log.With("component", "ReplyPipeline"),
		cfg:        cfg,
		messages:   messages,
		presence:   presence,
		bus:        b,
		completion: completion,
		classifier: classifier,
		quota:      quota,
		phrases:    phrases,
		metrics:    metrics,
		pick:       rand.IntN,
		sleep:      httpx.Sleep,
	}
}

// announce tells the user the avatar is typing. It runs as soon as the
// message is accepted, ahead of any reply still queued for the conversation.
func (p *pipeline) announce(ctx context.Context, in inbound) error {
	return p.publish(ctx, in.User.ID, realtime.EventTyping, realtime.TypingPayload{AvatarID: in.Avatar.ID})
}

// respond produces and publishes the avatar's reply to one inbound message.
func (p *pipeline) respond(ctx context.Context, in inbound) error {
	pair := in.pair()
	dbc := dbctx.Context{Ctx: ctx}

	limited, photos, err := p.quota.DailyPhotoLimitReached(dbc, in.User, in.Avatar.ID)
	if err != nil {
		return err
	}

	var out reply
	if limited {
		p.log.Debug("daily photo limit reached", "pair", pair.String(), "photos_today", photos, "reason", ErrDailyLimitReached)
		out, err = p.farewell(ctx, in)
	} else {
		var labels []string
		labels, err = p.classify(ctx, in.Text)
		if err != nil {
			return err
		}
		if intent.Top(labels) == intent.GetImage && len(in.Avatar.MessagePhotos) > 0 {
			out, err = p.photo(ctx, in)
		} else {
			out, err = p.chat(ctx, in)
		}
	}
	if err != nil {
		return err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("messenger.branch", string(out.branch)))
	p.metrics.ObserveReply(string(out.branch))

	if err := p.presence.SetOnline(dbc, pair); err != nil {
		return err
	}
	return p.emit(ctx, in, out.message, out.limitDailyImage)
}

func (p *pipeline) classify(ctx context.Context, text string) ([]string, error) {
	labels, err := p.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("classify: %w: %w", ErrTransportUnreachable, err)
	}
	return labels, nil
}

func (p *pipeline) farewell(ctx context.Context, in inbound) (reply, error) {
	text := p.farewellLine(in.Avatar)
	m, err := p.messages.Create(dbctx.Context{Ctx: ctx},
		types.AvatarParticipant(in.Avatar.ID), types.UserParticipant(in.User.ID),
		repos.NewMessage{Text: text, Unread: true})
	if err != nil {
		return reply{}, err
	}

	// The reply is already stored; a failed classification only loses the flag.
	limit := false
	labels, err := p.classifier.Classify(ctx, in.Text)
	if err != nil {
		p.log.Warn("classify after farewell failed", "pair", in.pair().String(), "error", err)
	} else {
		limit = intent.Top(labels) == intent.GetImage
	}
	return reply{branch: branchFarewell, message: m, limitDailyImage: limit}, nil
}

func (p *pipeline) farewellLine(a *types.Avatar) string {
	if n := len(a.FarewellMessages); n > 0 {
		return a.FarewellMessages[p.pick(n)].Text
	}
	pool := p.phrases.Farewells
	if len(pool) == 0 {
		pool = fallbackFarewells
	}
	return pool[p.pick(len(pool))]
}

func (p *pipeline) photo(ctx context.Context, in inbound) (reply, error) {
	dbc := dbctx.Context{Ctx: ctx}
	avatarP, userP := types.AvatarParticipant(in.Avatar.ID), types.UserParticipant(in.User.ID)

	// Read before the teaser is stored so the teaser cannot shadow it.
	last, err := p.messages.LastWithPhoto(dbc, in.pair())
	if err != nil {
		return reply{}, err
	}

	if p.cfg.SendTeaser && len(p.phrases.Teasers) > 0 {
		if err := p.sleep(ctx, p.cfg.TeaserDelay); err != nil {
			return reply{}, err
		}
		teaser := p.phrases.Teasers[p.pick(len(p.phrases.Teasers))]
		m, err := p.messages.Create(dbc, avatarP, userP, repos.NewMessage{Text: teaser, Unread: true})
		if err != nil {
			return reply{}, err
		}
		if err := p.emit(ctx, in, m, false); err != nil {
			return reply{}, err
		}
	}

	if err := p.sleep(ctx, p.cfg.PhotoDelay); err != nil {
		return reply{}, err
	}
	chosen := in.Avatar.MessagePhotos[nextPhotoIndex(in.Avatar.MessagePhotos, last)]
	mediaID := chosen.MediaID
	m, err := p.messages.Create(dbc, avatarP, userP, repos.NewMessage{PhotoID: &mediaID, Unread: true})
	if err != nil {
		return reply{}, err
	}
	m.Photo = chosen.Media
	return reply{branch: branchPhoto, message: m}, nil
}

// nextPhotoIndex picks the pool entry after the one last sent. A missing
// previous photo, or one no longer in the pool, restarts at 0.
func nextPhotoIndex(pool []types.AvatarMessagePhoto, last *types.Message) int {
	prev := -1
	if last != nil && last.PhotoID != nil {
		for i, ph := range pool {
			if ph.MediaID == *last.PhotoID {
				prev = i
				break
			}
		}
	}
	return rotate(prev, len(pool))
}

// rotate returns (prev+1) mod n, with prev < 0 meaning nothing was sent yet.
func rotate(prev, n int) int {
	if prev < 0 || n <= 0 {
		return 0
	}
	return (prev + 1) % n
}

func (p *pipeline) chat(ctx context.Context, in inbound) (reply, error) {
	dbc := dbctx.Context{Ctx: ctx}
	history, err := p.messages.List(dbc, in.pair(), 0, p.cfg.HistoryTurns)
	if err != nil {
		return reply{}, err
	}

	text, err := p.completion.Complete(ctx, transcript(avatarSystemTurn(in.Avatar), history))
	if err != nil {
		return reply{}, completionError(err)
	}
	if strings.TrimSpace(text) == "" {
		return reply{}, completionFailed()
	}

	m, err := p.messages.Create(dbc,
		types.AvatarParticipant(in.Avatar.ID), types.UserParticipant(in.User.ID),
		repos.NewMessage{Text: text, Unread: true})
	if err != nil {
		return reply{}, err
	}
	return reply{branch: branchChat, message: m}, nil
}

func completionError(err error) error {
	var ue *openai.UnreachableError
	if errors.As(err, &ue) {
		return fmt.Errorf("completion: %w: %w", ErrTransportUnreachable, err)
	}
	return fmt.Errorf("completion: %w", err)
}

// emit publishes m as a message frame from the avatar, who is online by now.
func (p *pipeline) emit(ctx context.Context, in inbound, m *types.Message, limitDailyImage bool) error {
	return p.publish(ctx, in.User.ID, realtime.EventMessage, messagePayload(m, avatarSender(in.Avatar, true), limitDailyImage))
}

func (p *pipeline) publish(ctx context.Context, userID int64, t realtime.EventType, content any) error {
	raw, err := realtime.Encode(t, content)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t, err)
	}
	if err := p.bus.Publish(ctx, realtime.UserChannel(userID), raw); err != nil {
		return fmt.Errorf("publish %s: %w: %w", t, ErrTransportUnreachable, err)
	}
	return nil
}
