package messenger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/data/repos/testutil"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/realtime/bus"
)

type fakeCompletion struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]openai.Turn
	// gate, when set, holds every call until it is closed.
	gate chan struct{}
}

func (f *fakeCompletion) Complete(ctx context.Context, turns []openai.Turn) (string, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]openai.Turn(nil), turns...))
	return f.reply, f.err
}

func (f *fakeCompletion) Calls() [][]openai.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]openai.Turn(nil), f.calls...)
}

type fakeClassifier struct {
	labels []string
	err    error
}

func (f *fakeClassifier) Classify(context.Context, string) ([]string, error) {
	return f.labels, f.err
}

type testEnv struct {
	db         *gorm.DB
	bus        *bus.MemoryBus
	completion *fakeCompletion
	classifier *fakeClassifier
	messages   repos.MessageRepo
	presence   repos.PresenceRepo
	assistant  repos.AssistantMessageRepo
	users      repos.UserRepo
	avatars    repos.AvatarRepo
	phrases    *Phrases
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	b := bus.NewMemoryBus()
	t.Cleanup(func() { _ = b.Close() })
	return &testEnv{
		db:         db,
		bus:        b,
		completion: &fakeCompletion{reply: "hello from the avatar"},
		classifier: &fakeClassifier{labels: []string{"chat"}},
		messages:   repos.NewMessageRepo(db, log),
		presence:   repos.NewPresenceRepo(db, log),
		assistant:  repos.NewAssistantMessageRepo(db, log),
		users:      repos.NewUserRepo(db, log),
		avatars:    repos.NewAvatarRepo(db, log),
		phrases: &Phrases{
			Teasers:   []string{"one sec"},
			Farewells: []string{"bye for today"},
		},
	}
}

// pipeline builds a pipeline with no delays and a deterministic pick.
func (e *testEnv) pipeline(t *testing.T, cfg PipelineConfig) *pipeline {
	t.Helper()
	p := newPipeline(testutil.Logger(t), cfg, e.messages, e.presence, e.bus, e.completion, e.classifier,
		NewQuotaGate(DefaultLimits(), e.messages, e.assistant), e.phrases, nil)
	p.pick = func(int) int { return 0 }
	p.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return p
}

// run is what the dispatcher does for one message: announce, then respond.
func (p *pipeline) run(ctx context.Context, in inbound) error {
	if err := p.announce(ctx, in); err != nil {
		return err
	}
	return p.respond(ctx, in)
}

func (e *testEnv) service(t *testing.T, d *Dispatcher) Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Pipeline.SendTeaser = false
	cfg.Pipeline.TeaserDelay = 0
	cfg.Pipeline.PhotoDelay = 0
	svc, err := NewService(ServiceDeps{
		Log:        testutil.Logger(t),
		Users:      e.users,
		Avatars:    e.avatars,
		Messages:   e.messages,
		Assistant:  e.assistant,
		Presence:   e.presence,
		Bus:        e.bus,
		Completion: e.completion,
		Classifier: e.classifier,
		Dispatcher: d,
		Tx:         dbctx.NewGormTxRunner(e.db),
		Phrases:    e.phrases,
		Config:     cfg,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

// inbound loads the avatar the way the service does.
func (e *testEnv) inbound(t *testing.T, u *types.User, avatarID int64, text string) inbound {
	t.Helper()
	a, err := e.avatars.GetByID(dbctx.Background(), avatarID)
	if err != nil {
		t.Fatalf("load avatar: %v", err)
	}
	return inbound{User: u, Avatar: a, Text: text}
}

func (e *testEnv) subscribe(t *testing.T, userID int64) bus.Subscription {
	t.Helper()
	sub, err := e.bus.Subscribe(context.Background(), realtime.UserChannel(userID))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

type frame struct {
	Type    realtime.EventType `json:"type"`
	Content json.RawMessage    `json:"content"`
}

// drain returns every frame already buffered on sub.
func drain(t *testing.T, sub bus.Subscription) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case raw, ok := <-sub.Messages():
			if !ok {
				return out
			}
			var f frame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			out = append(out, f)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func messageFrames(t *testing.T, frames []frame) []realtime.MessagePayload {
	t.Helper()
	var out []realtime.MessagePayload
	for _, f := range frames {
		if f.Type != realtime.EventMessage {
			continue
		}
		var p realtime.MessagePayload
		if err := json.Unmarshal(f.Content, &p); err != nil {
			t.Fatalf("decode message payload: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func seedText(t *testing.T, e *testEnv, from, to types.Participant, text string) *types.Message {
	t.Helper()
	m, err := e.messages.Create(dbctx.Background(), from, to, repos.NewMessage{Text: text})
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return m
}

func seedPhoto(t *testing.T, e *testEnv, userID, avatarID, mediaID int64) *types.Message {
	t.Helper()
	id := mediaID
	m, err := e.messages.Create(dbctx.Background(), types.AvatarParticipant(avatarID), types.UserParticipant(userID),
		repos.NewMessage{PhotoID: &id, Unread: true})
	if err != nil {
		t.Fatalf("seed photo message: %v", err)
	}
	return m
}
