package messenger

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type PresenceRepo interface {
	SetOnline(dbc dbctx.Context, pair types.Pair) error
	IsOnline(dbc dbctx.Context, pair types.Pair) (bool, error)
	// ExpireOnline flips every avatar of userID that has been quiet since before
	// the cutoff back to offline.
	ExpireOnline(dbc dbctx.Context, userID int64, before time.Time) (int64, error)
}

type presenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPresenceRepo(db *gorm.DB, log *logger.Logger) PresenceRepo {
	return &presenceRepo{db: db, log: log.With("repo", "PresenceRepo")}
}

func (r *presenceRepo) SetOnline(dbc dbctx.Context, pair types.Pair) error {
	row := &types.AvatarOnline{
		UserID:    pair.UserID,
		AvatarID:  pair.AvatarID,
		IsOnline:  true,
		UpdatedAt: time.Now().UTC(),
	}
	err := dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "avatar_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("set online %s: %w", pair, err)
	}
	return nil
}

func (r *presenceRepo) IsOnline(dbc dbctx.Context, pair types.Pair) (bool, error) {
	var rows []types.AvatarOnline
	if err := dbc.DB(r.db).
		Where("user_id = ? AND avatar_id = ?", pair.UserID, pair.AvatarID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return false, fmt.Errorf("load presence %s: %w", pair, err)
	}
	return len(rows) == 1 && rows[0].IsOnline, nil
}

func (r *presenceRepo) ExpireOnline(dbc dbctx.Context, userID int64, before time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.AvatarOnline{}).
		Where("user_id = ? AND is_online = ? AND updated_at < ?", userID, true, before.UTC()).
		Updates(map[string]interface{}{"is_online": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("expire presence: %w", res.Error)
	}
	return res.RowsAffected, nil
}
