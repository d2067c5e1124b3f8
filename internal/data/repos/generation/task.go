package generation

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type GenerationTaskRepo interface {
	Create(dbc dbctx.Context, t *types.GenerationTask) (*types.GenerationTask, error)
	GetByID(dbc dbctx.Context, id int64) (*types.GenerationTask, error)
	UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error
}

type generationTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationTaskRepo(db *gorm.DB, baseLog *logger.Logger) GenerationTaskRepo {
	return &generationTaskRepo{db: db, log: baseLog.With("repo", "GenerationTaskRepo")}
}

func (r *generationTaskRepo) Create(dbc dbctx.Context, t *types.GenerationTask) (*types.GenerationTask, error) {
	if t.Status == "" {
		t.Status = types.TaskStatusQueued
	}
	if err := dbc.DB(r.db).Create(t).Error; err != nil {
		return nil, fmt.Errorf("create generation task: %w", err)
	}
	return t, nil
}

func (r *generationTaskRepo) GetByID(dbc dbctx.Context, id int64) (*types.GenerationTask, error) {
	var t types.GenerationTask
	if err := dbc.DB(r.db).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, fmt.Errorf("get generation task %d: %w", id, err)
	}
	return &t, nil
}

func (r *generationTaskRepo) UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.GenerationTask{}).
		Where("id = ?", id).
		Updates(updates).Error
}
