package avatar

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type AvatarRepo interface {
	// Create inserts the avatar with its photo, farewell and hello associations.
	Create(dbc dbctx.Context, a *types.Avatar) (*types.Avatar, error)
	// GetByID loads the avatar with every pool preloaded in position order.
	GetByID(dbc dbctx.Context, id int64) (*types.Avatar, error)
	// GetByIDs loads avatars with their profile photos only.
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Avatar, error)
}

type avatarRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAvatarRepo(db *gorm.DB, baseLog *logger.Logger) AvatarRepo {
	return &avatarRepo{db: db, log: baseLog.With("repo", "AvatarRepo")}
}

func (r *avatarRepo) Create(dbc dbctx.Context, a *types.Avatar) (*types.Avatar, error) {
	if a == nil {
		return nil, fmt.Errorf("create avatar: nil avatar")
	}
	if err := dbc.DB(r.db).Create(a).Error; err != nil {
		return nil, fmt.Errorf("create avatar: %w", err)
	}
	return a, nil
}

func (r *avatarRepo) GetByID(dbc dbctx.Context, id int64) (*types.Avatar, error) {
	byPosition := func(db *gorm.DB) *gorm.DB { return db.Order("position ASC").Order("id ASC") }

	var a types.Avatar
	err := dbc.DB(r.db).
		Preload("Photos", byPosition).
		Preload("Photos.Media").
		Preload("MessagePhotos", byPosition).
		Preload("MessagePhotos.Media").
		Preload("FarewellMessages").
		Preload("HelloMessages", byPosition).
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, fmt.Errorf("get avatar %d: %w", id, err)
	}
	return &a, nil
}

func (r *avatarRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Avatar, error) {
	if len(ids) == 0 {
		return []*types.Avatar{}, nil
	}
	var out []*types.Avatar
	err := dbc.DB(r.db).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC").Order("id ASC") }).
		Preload("Photos.Media").
		Where("id IN ?", ids).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("get avatars: %w", err)
	}
	return out, nil
}
