package messenger

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type AssistantMessageRepo interface {
	Create(dbc dbctx.Context, userID int64, role types.Role, text string) (*types.AssistantMessage, error)
	CountFromUser(dbc dbctx.Context, userID int64) (int64, error)
	// List returns newest first.
	List(dbc dbctx.Context, userID int64, offset, limit int) ([]*types.AssistantMessage, error)
}

type assistantMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssistantMessageRepo(db *gorm.DB, log *logger.Logger) AssistantMessageRepo {
	return &assistantMessageRepo{db: db, log: log.With("repo", "AssistantMessageRepo")}
}

func (r *assistantMessageRepo) Create(dbc dbctx.Context, userID int64, role types.Role, text string) (*types.AssistantMessage, error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}
	row := &types.AssistantMessage{Role: role, UserID: userID, Text: text}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, fmt.Errorf("create assistant message: %w", err)
	}
	return row, nil
}

func (r *assistantMessageRepo) CountFromUser(dbc dbctx.Context, userID int64) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.AssistantMessage{}).
		Where("user_id = ? AND role = ?", userID, types.RoleUser).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count assistant messages: %w", err)
	}
	return n, nil
}

func (r *assistantMessageRepo) List(dbc dbctx.Context, userID int64, offset, limit int) ([]*types.AssistantMessage, error) {
	if offset < 0 {
		offset = 0
	}
	q := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.AssistantMessage
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list assistant messages: %w", err)
	}
	return out, nil
}
