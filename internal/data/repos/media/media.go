package media

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type MediaRepo interface {
	Create(dbc dbctx.Context, rows []*types.Media) ([]*types.Media, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Media, error)
}

type mediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	return &mediaRepo{db: db, log: baseLog.With("repo", "MediaRepo")}
}

func (r *mediaRepo) Create(dbc dbctx.Context, rows []*types.Media) ([]*types.Media, error) {
	if len(rows) == 0 {
		return []*types.Media{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("create media: %w", err)
	}
	return rows, nil
}

func (r *mediaRepo) GetByID(dbc dbctx.Context, id int64) (*types.Media, error) {
	var m types.Media
	if err := dbc.DB(r.db).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, fmt.Errorf("get media %d: %w", id, err)
	}
	return &m, nil
}
