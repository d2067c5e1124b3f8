package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/data/repos/testutil"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/intent"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime"
)

func TestRotate(t *testing.T) {
	cases := []struct {
		prev, n, want int
	}{
		{prev: -1, n: 3, want: 0},
		{prev: 0, n: 3, want: 1},
		{prev: 1, n: 3, want: 2},
		{prev: 2, n: 3, want: 0},
		{prev: 0, n: 1, want: 0},
		{prev: 4, n: 0, want: 0},
	}
	for _, tc := range cases {
		if got := rotate(tc.prev, tc.n); got != tc.want {
			t.Fatalf("rotate(%d, %d): want=%d got=%d", tc.prev, tc.n, tc.want, got)
		}
	}
}

func TestNextPhotoIndex(t *testing.T) {
	pool := []types.AvatarMessagePhoto{{MediaID: 10}, {MediaID: 11}, {MediaID: 12}}
	id := func(v int64) *int64 { return &v }

	cases := []struct {
		name string
		last *types.Message
		want int
	}{
		{name: "never_sent", last: nil, want: 0},
		{name: "text_only", last: &types.Message{}, want: 0},
		{name: "first", last: &types.Message{PhotoID: id(10)}, want: 1},
		{name: "wraps", last: &types.Message{PhotoID: id(12)}, want: 0},
		{name: "removed_from_pool", last: &types.Message{PhotoID: id(99)}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextPhotoIndex(pool, tc.last); got != tc.want {
				t.Fatalf("want=%d got=%d", tc.want, got)
			}
		})
	}
}

func TestPipelinePublishesTypingFirst(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, e.db, "typing")
	a := testutil.SeedAvatar(t, ctx, e.db, "mia", 0)
	sub := e.subscribe(t, u.ID)

	if err := e.pipeline(t, DefaultPipelineConfig()).run(ctx, e.inbound(t, u, a.ID, "hey")); err != nil {
		t.Fatalf("run: %v", err)
	}

	frames := drain(t, sub)
	if len(frames) != 2 {
		t.Fatalf("frames: want=2 got=%d", len(frames))
	}
	if frames[0].Type != realtime.EventTyping {
		t.Fatalf("first frame: want typing got %s", frames[0].Type)
	}
	var typing realtime.TypingPayload
	if err := json.Unmarshal(frames[0].Content, &typing); err != nil || typing.AvatarID != a.ID {
		t.Fatalf("typing payload: got %s err=%v", frames[0].Content, err)
	}
	if frames[1].Type != realtime.EventMessage {
		t.Fatalf("second frame: want message got %s", frames[1].Type)
	}
}

func TestPipelineChatUsesRecentTextHistory(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, e.db, "chatter")
	a := testutil.SeedAvatar(t, ctx, e.db, "nora", 1)
	me, her := types.UserParticipant(u.ID), types.AvatarParticipant(a.ID)

	seedText(t, e, me, her, "too old")
	seedText(t, e, me, her, "u1")
	seedText(t, e, her, me, "a1")
	seedPhoto(t, e, u.ID, a.ID, 1)
	seedText(t, e, me, her, "u2")
	seedText(t, e, me, her, "u3")
	sub := e.subscribe(t, u.ID)

	if err := e.pipeline(t, DefaultPipelineConfig()).run(ctx, e.inbound(t, u, a.ID, "u3")); err != nil {
		t.Fatalf("run: %v", err)
	}

	calls := e.completion.Calls()
	if len(calls) != 1 {
		t.Fatalf("completion calls: want=1 got=%d", len(calls))
	}
	turns := calls[0]
	if turns[0].Role != openai.RoleSystem || !strings.Contains(turns[0].Content, "nora") ||
		!strings.Contains(turns[0].Content, "Intimate topics: no") {
		t.Fatalf("system turn: %+v", turns[0])
	}
	want := []openai.Turn{
		{Role: openai.RoleUser, Content: "u1"},
		{Role: openai.RoleAssistant, Content: "a1"},
		{Role: openai.RoleUser, Content: "u2"},
		{Role: openai.RoleUser, Content: "u3"},
	}
	if len(turns)-1 != len(want) {
		t.Fatalf("turns: want=%d got=%d (%+v)", len(want), len(turns)-1, turns)
	}
	for i, w := range want {
		if turns[i+1] != w {
			t.Fatalf("turn %d: want=%+v got=%+v", i, w, turns[i+1])
		}
	}

	msgs := messageFrames(t, drain(t, sub))
	if len(msgs) != 1 || msgs[0].Text == nil || *msgs[0].Text != "hello from the avatar" {
		t.Fatalf("published reply: %+v", msgs)
	}
	if !msgs[0].FromUser.IsAvatar || !msgs[0].FromUser.IsOnline || msgs[0].FromUser.ID != a.ID {
		t.Fatalf("reply sender: %+v", msgs[0].FromUser)
	}
	online, err := e.presence.IsOnline(dbctx.Background(), types.Pair{UserID: u.ID, AvatarID: a.ID})
	if err != nil || !online {
		t.Fatalf("presence: online=%v err=%v", online, err)
	}
}

func TestPipelineEmptyCompletionIsGenerationFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, e.db, "silent")
	a := testutil.SeedAvatar(t, ctx, e.db, "ivy", 0)
	e.completion.reply = "   "
	sub := e.subscribe(t, u.ID)

	err := e.pipeline(t, DefaultPipelineConfig()).run(ctx, e.inbound(t, u, a.ID, "hi"))
	var gf *GenerationFailure
	if !errors.As(err, &gf) {
		t.Fatalf("want GenerationFailure got %v", err)
	}

	n, err := e.messages.Count(dbctx.Background(), types.Pair{UserID: u.ID, AvatarID: a.ID}, repos.MessageFilter{})
	if err != nil || n != 0 {
		t.Fatalf("persisted: want 0 got %d err=%v", n, err)
	}
	if msgs := messageFrames(t, drain(t, sub)); len(msgs) != 0 {
		t.Fatalf("published: want none got %+v", msgs)
	}
}

func TestPipelineClassifierDown(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, e.db, "nodns")
	a := testutil.SeedAvatar(t, ctx, e.db, "zoe", 2)
	e.classifier.err = errors.New("dial tcp: connection refused")
	sub := e.subscribe(t, u.ID)

	err := e.pipeline(t, DefaultPipelineConfig()).run(ctx, e.inbound(t, u, a.ID, "photo please"))
	if !errors.Is(err, ErrTransportUnreachable) {
		t.Fatalf("want ErrTransportUnreachable got %v", err)
	}
	if calls := e.completion.Calls(); len(calls) != 0 {
		t.Fatalf("completion called %d times", len(calls))
	}
	// a failed run leaves typing as the last frame
	frames := drain(t, sub)
	if len(frames) != 1 || frames[0].Type != realtime.EventTyping {
		t.Fatalf("frames after failure: %+v", frames)
	}
}

func TestPipelinePhotoRotation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, e.db, "fan")
	a := testutil.SeedAvatar(t, ctx, e.db, "lia", 3)
	e.classifier.labels = []string{intent.GetImage, intent.Chat}
	cfg := DefaultPipelineConfig()
	cfg.SendTeaser = false
	p := e.pipeline(t, cfg)
	in := e.inbound(t, u, a.ID, "send a pic")

	var got []int64
	for i := 0; i < 4; i++ {
		if err := p.run(ctx, in); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		last, err := e.messages.LastWithPhoto(dbctx.Background(), in.pair())
		if err != nil || last == nil {
			t.Fatalf("run %d: last photo=%v err=%v", i, last, err)
		}
		got = append(got, *last.PhotoID)
	}

	pool := in.Avatar.MessagePhotos
	want := []int64{pool[0].MediaID, pool[1].MediaID, pool[2].MediaID, pool[0].MediaID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sent photos: want=%v got=%v", want, got)
		}
	}
	if calls := e.completion.Calls(); len(calls) != 0 {
		t.Fatalf("completion called on photo branch")
	}
}

func TestPipelineTeaserPrecedesPhoto(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, e.db, "eager")
	a := testutil.SeedAvatar(t, ctx, e.db, "kim", 2)
	e.classifier.labels = []string{intent.GetImage}
	in := e.inbound(t, u, a.ID, "pic?")

	// a previous photo: the teaser must not reset the rotation
	seedPhoto(t, e, u.ID, a.ID, in.Avatar.MessagePhotos[0].MediaID)
	sub := e.subscribe(t, u.ID)

	if err := e.pipeline(t, DefaultPipelineConfig()).run(ctx, in); err != nil {
		t.Fatalf("run: %v", err)
	}

	msgs := messageFrames(t, drain(t, sub))
	if len(msgs) != 2 {
		t.Fatalf("messages: want teaser and photo got %+v", msgs)
	}
	if msgs[0].Text == nil || *msgs[0].Text != "one sec" || msgs[0].Photo != nil {
		t.Fatalf("teaser: %+v", msgs[0])
	}
	if msgs[1].Photo == nil || msgs[1].Photo.ID != in.Avatar.MessagePhotos[1].MediaID {
		t.Fatalf("photo: want media %d got %+v", in.Avatar.MessagePhotos[1].MediaID, msgs[1].Photo)
	}
}

func TestPipelineDailyPhotoLimitFarewell(t *testing.T) {
	cases := []struct {
		name      string
		labels    []string
		wantLimit bool
	}{
		{name: "image_intent", labels: []string{intent.GetImage}, wantLimit: true},
		{name: "chat_intent", labels: []string{intent.Chat}, wantLimit: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			ctx := context.Background()
			u := testutil.SeedUser(t, ctx, e.db, "greedy-"+tc.name)
			a := testutil.SeedAvatar(t, ctx, e.db, "eva", 2, "see you tomorrow")
			e.classifier.labels = tc.labels
			in := e.inbound(t, u, a.ID, "one more")
			for i := 0; i < 4; i++ {
				seedPhoto(t, e, u.ID, a.ID, in.Avatar.MessagePhotos[i%2].MediaID)
			}
			sub := e.subscribe(t, u.ID)

			if err := e.pipeline(t, DefaultPipelineConfig()).run(ctx, in); err != nil {
				t.Fatalf("run: %v", err)
			}

			msgs := messageFrames(t, drain(t, sub))
			if len(msgs) != 1 {
				t.Fatalf("messages: want 1 got %+v", msgs)
			}
			if msgs[0].Photo != nil || msgs[0].Text == nil || *msgs[0].Text != "see you tomorrow" {
				t.Fatalf("farewell: %+v", msgs[0])
			}
			if msgs[0].LimitDailyImage != tc.wantLimit {
				t.Fatalf("limit_daily_image: want=%v got=%v", tc.wantLimit, msgs[0].LimitDailyImage)
			}
			n, err := e.messages.Count(dbctx.Background(), in.pair(), repos.MessageFilter{WithPhoto: true})
			if err != nil || n != 4 {
				t.Fatalf("photo messages: want 4 got %d err=%v", n, err)
			}
		})
	}
}

func TestPipelineFarewellFallsBackToDefaultPool(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, e.db, "late")
	a := testutil.SeedAvatar(t, ctx, e.db, "ada", 1)
	in := e.inbound(t, u, a.ID, "hi")
	for i := 0; i < 4; i++ {
		seedPhoto(t, e, u.ID, a.ID, in.Avatar.MessagePhotos[0].MediaID)
	}

	if err := e.pipeline(t, DefaultPipelineConfig()).run(ctx, in); err != nil {
		t.Fatalf("run: %v", err)
	}
	rows, err := e.messages.List(dbctx.Background(), in.pair(), 0, 1)
	if err != nil || len(rows) != 1 {
		t.Fatalf("list: rows=%d err=%v", len(rows), err)
	}
	if rows[0].TextValue() != "bye for today" {
		t.Fatalf("farewell: want default pool line got %q", rows[0].TextValue())
	}
}
