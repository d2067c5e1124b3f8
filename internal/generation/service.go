package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/companion-backend/internal/data/repos"
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

var ErrInvalidRequest = errors.New("invalid generation request")

const MaxImagesPerJob = 4

type Request struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	Gender      string `json:"gender"`
	Age         string `json:"age"`
	ImagesCount int    `json:"images_count"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Model) == "" || strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: model and prompt are required", ErrInvalidRequest)
	}
	if r.ImagesCount < 1 || r.ImagesCount > MaxImagesPerJob {
		return fmt.Errorf("%w: images_count must be between 1 and %d", ErrInvalidRequest, MaxImagesPerJob)
	}
	return nil
}

type Service interface {
	// Generate persists a task, submits it and waits in the caller's
	// goroutine for the worker's images.
	Generate(ctx context.Context, userID int64, req Request) ([]*types.Media, error)
}

type service struct {
	log          *logger.Logger
	tasks        repos.GenerationTaskRepo
	media        repos.MediaRepo
	correlator   *Correlator
	mediaBaseURL string
	timeout      time.Duration
}

func NewService(
	log *logger.Logger,
	tasks repos.GenerationTaskRepo,
	media repos.MediaRepo,
	correlator *Correlator,
	mediaBaseURL string,
	timeout time.Duration,
) Service {
	return &service{
		log:          log.With("service", "GenerationService"),
		tasks:        tasks,
		media:        media,
		correlator:   correlator,
		mediaBaseURL: mediaBaseURL,
		timeout:      timeout,
	}
}

func (s *service) Generate(ctx context.Context, userID int64, req Request) ([]*types.Media, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}

	task, err := s.tasks.Create(dbc, &types.GenerationTask{
		UserID:      userID,
		Model:       req.Model,
		Prompt:      req.Prompt,
		Gender:      req.Gender,
		Age:         req.Age,
		ImagesCount: req.ImagesCount,
		Status:      types.TaskStatusQueued,
	})
	if err != nil {
		return nil, err
	}

	taskID, err := s.correlator.Submit(ctx, Job{
		ID:          task.ID,
		Model:       task.Model,
		Prompt:      task.Prompt,
		Gender:      task.Gender,
		Age:         task.Age,
		ImagesCount: task.ImagesCount,
	})
	if err != nil {
		s.finish(task.ID, types.TaskStatusFailed, nil, err)
		return nil, err
	}

	images, err := s.correlator.AwaitResult(ctx, taskID, s.timeout)
	switch {
	case err == nil:
	case errors.Is(err, ErrGenerationTimeout):
		s.finish(task.ID, types.TaskStatusTimedOut, nil, err)
		return nil, err
	default:
		s.finish(task.ID, types.TaskStatusFailed, nil, err)
		return nil, err
	}

	rows := make([]*types.Media, 0, len(images))
	for _, img := range images {
		rows = append(rows, &types.Media{
			Name: path.Base(img),
			URL:  s.mediaBaseURL + img,
		})
	}
	stored, err := s.media.Create(dbc, rows)
	if err != nil {
		s.finish(task.ID, types.TaskStatusFailed, images, err)
		return nil, err
	}
	s.finish(task.ID, types.TaskStatusSucceeded, images, nil)
	return stored, nil
}

// finish records the outcome on a context detached from the request so a
// cancelled caller still leaves an accurate task row.
func (s *service) finish(taskID int64, status string, images []string, cause error) {
	updates := map[string]interface{}{"status": status}
	if images != nil {
		raw, _ := json.Marshal(images)
		updates["images"] = datatypes.JSON(raw)
	}
	if cause != nil {
		updates["error"] = cause.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tasks.UpdateFields(dbctx.Context{Ctx: ctx}, taskID, updates); err != nil {
		s.log.Error("update generation task", "task_id", taskID, "status", status, "error", err)
	}
}
