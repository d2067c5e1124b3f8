package messenger

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/pkg/pointers"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

var ErrEmptyMessage = errors.New("message needs text or a photo")

// NewMessage is the payload of MessageRepo.Create.
type NewMessage struct {
	Text    string
	PhotoID *int64
	Unread  bool
}

// MessageFilter narrows Count. Zero values match everything.
type MessageFilter struct {
	Role      types.Role
	WithPhoto bool
	From      time.Time // inclusive
	To        time.Time // exclusive
}

// DialogRow is the newest message of one conversation plus its counters.
type DialogRow struct {
	Message     *types.Message
	UnreadCount int64
	IsOnline    bool
}

type MessageRepo interface {
	Create(dbc dbctx.Context, sender, recipient types.Participant, in NewMessage) (*types.Message, error)
	Count(dbc dbctx.Context, pair types.Pair, f MessageFilter) (int64, error)
	// List returns newest first.
	List(dbc dbctx.Context, pair types.Pair, offset, limit int) ([]*types.Message, error)
	// LastWithPhoto returns nil when the conversation has no photo message.
	LastWithPhoto(dbc dbctx.Context, pair types.Pair) (*types.Message, error)
	MarkRead(dbc dbctx.Context, pair types.Pair) error
	ListDialogs(dbc dbctx.Context, userID int64, offset, limit int) ([]DialogRow, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, sender, recipient types.Participant, in NewMessage) (*types.Message, error) {
	pair, role := types.Direction(sender, recipient)
	if in.Text == "" && in.PhotoID == nil {
		return nil, ErrEmptyMessage
	}
	row := &types.Message{
		Role:       role,
		UserID:     pair.UserID,
		AvatarID:   pair.AvatarID,
		Text:       pointers.NonEmpty(in.Text),
		PhotoID:    in.PhotoID,
		UnreadMark: in.Unread,
		CreatedAt:  time.Now().UTC(),
	}
	if err := dbc.DB(r.db).Omit("Photo").Create(row).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return row, nil
}

func (r *messageRepo) Count(dbc dbctx.Context, pair types.Pair, f MessageFilter) (int64, error) {
	q := dbc.DB(r.db).
		Model(&types.Message{}).
		Where("user_id = ? AND avatar_id = ?", pair.UserID, pair.AvatarID)
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.WithPhoto {
		q = q.Where("photo_id IS NOT NULL")
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To.UTC())
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (r *messageRepo) List(dbc dbctx.Context, pair types.Pair, offset, limit int) ([]*types.Message, error) {
	if offset < 0 {
		offset = 0
	}
	q := dbc.DB(r.db).
		Preload("Photo").
		Where("user_id = ? AND avatar_id = ?", pair.UserID, pair.AvatarID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Message
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

func (r *messageRepo) LastWithPhoto(dbc dbctx.Context, pair types.Pair) (*types.Message, error) {
	var out []*types.Message
	if err := dbc.DB(r.db).
		Where("user_id = ? AND avatar_id = ? AND photo_id IS NOT NULL", pair.UserID, pair.AvatarID).
		Order("id DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("last photo message: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *messageRepo) MarkRead(dbc dbctx.Context, pair types.Pair) error {
	return dbc.DB(r.db).
		Model(&types.Message{}).
		Where("user_id = ? AND avatar_id = ? AND unread_mark = ?", pair.UserID, pair.AvatarID, true).
		Update("unread_mark", false).Error
}

func (r *messageRepo) ListDialogs(dbc dbctx.Context, userID int64, offset, limit int) ([]DialogRow, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txx := dbc.DB(r.db)

	latest := txx.Session(&gorm.Session{NewDB: true}).
		Model(&types.Message{}).
		Select("MAX(id)").
		Where("user_id = ?", userID).
		Group("avatar_id")

	var tops []*types.Message
	if err := txx.
		Preload("Photo").
		Where("id IN (?)", latest).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&tops).Error; err != nil {
		return nil, fmt.Errorf("list dialogs: %w", err)
	}
	if len(tops) == 0 {
		return []DialogRow{}, nil
	}

	avatarIDs := make([]int64, 0, len(tops))
	for _, m := range tops {
		avatarIDs = append(avatarIDs, m.AvatarID)
	}

	type unreadRow struct {
		AvatarID int64
		N        int64
	}
	var unread []unreadRow
	if err := txx.Session(&gorm.Session{NewDB: true}).
		Model(&types.Message{}).
		Select("avatar_id, COUNT(id) AS n").
		Where("user_id = ? AND avatar_id IN ? AND unread_mark = ?", userID, avatarIDs, true).
		Group("avatar_id").
		Scan(&unread).Error; err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	unreadBy := make(map[int64]int64, len(unread))
	for _, u := range unread {
		unreadBy[u.AvatarID] = u.N
	}

	var online []types.AvatarOnline
	if err := txx.Session(&gorm.Session{NewDB: true}).
		Where("user_id = ? AND avatar_id IN ?", userID, avatarIDs).
		Find(&online).Error; err != nil {
		return nil, fmt.Errorf("load presence: %w", err)
	}
	onlineBy := make(map[int64]bool, len(online))
	for _, o := range online {
		onlineBy[o.AvatarID] = o.IsOnline
	}

	out := make([]DialogRow, 0, len(tops))
	for _, m := range tops {
		out = append(out, DialogRow{
			Message:     m,
			UnreadCount: unreadBy[m.AvatarID],
			IsOnline:    onlineBy[m.AvatarID],
		})
	}
	return out, nil
}
