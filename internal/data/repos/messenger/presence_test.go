package messenger

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/companion-backend/internal/data/repos/testutil"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
)

func TestPresenceRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewPresenceRepo(db, testutil.Logger(t))
	pair := types.Pair{UserID: 7, AvatarID: 3}

	online, err := repo.IsOnline(dbc, pair)
	if err != nil || online {
		t.Fatalf("IsOnline before: want false got %v (%v)", online, err)
	}

	// twice: the second call must hit the upsert path
	for i := 0; i < 2; i++ {
		if err := repo.SetOnline(dbc, pair); err != nil {
			t.Fatalf("SetOnline #%d: %v", i, err)
		}
	}
	online, err = repo.IsOnline(dbc, pair)
	if err != nil || !online {
		t.Fatalf("IsOnline after: want true got %v (%v)", online, err)
	}

	n, err := repo.ExpireOnline(dbc, pair.UserID, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("ExpireOnline recent: want 0 got %d (%v)", n, err)
	}
	n, err = repo.ExpireOnline(dbc, pair.UserID, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("ExpireOnline stale: want 1 got %d (%v)", n, err)
	}
	online, _ = repo.IsOnline(dbc, pair)
	if online {
		t.Fatalf("IsOnline after expire: want false")
	}
}

func TestAssistantMessageRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewAssistantMessageRepo(db, testutil.Logger(t))
	if _, err := repo.Create(dbc, 5, types.RoleUser, "how do I start?"); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	if _, err := repo.Create(dbc, 5, types.RoleAssistant, "say hi"); err != nil {
		t.Fatalf("Create assistant: %v", err)
	}
	if _, err := repo.Create(dbc, 5, types.RoleUser, ""); err != ErrEmptyMessage {
		t.Fatalf("Create empty: want ErrEmptyMessage got %v", err)
	}

	n, err := repo.CountFromUser(dbc, 5)
	if err != nil || n != 1 {
		t.Fatalf("CountFromUser: want 1 got %d (%v)", n, err)
	}
	list, err := repo.List(dbc, 5, 0, 10)
	if err != nil || len(list) != 2 || list[0].Role != types.RoleAssistant {
		t.Fatalf("List: %+v (%v)", list, err)
	}
}
