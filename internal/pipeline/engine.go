package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shortforge-backend/internal/models"
)

// Engine drives one idea through the stage graph. It is built once at
// startup and shared by the trigger.
type Engine struct {
	projects    ProjectStore
	scripts     ScriptGenerator
	media       MediaGenerator
	publish     PublishStep
	events      EventPublisher
	log         logrus.FieldLogger
	callTimeout time.Duration
	newRunID    func(projectID int64) string
}

func NewEngine(
	projects ProjectStore,
	scripts ScriptGenerator,
	media MediaGenerator,
	publish PublishStep,
	events EventPublisher,
	log logrus.FieldLogger,
	callTimeout time.Duration,
) *Engine {
	if publish == nil {
		publish = NewPausedPublishing(log)
	}
	return &Engine{
		projects:    projects,
		scripts:     scripts,
		media:       media,
		publish:     publish,
		events:      events,
		log:         log,
		callTimeout: callTimeout,
		newRunID:    newRunID,
	}
}

func newRunID(projectID int64) string {
	return fmt.Sprintf("%d_%s", projectID, uuid.NewString()[:8])
}

// Run executes the pipeline for s until it ends and returns s. It never
// panics and never returns early: failures are recorded in s.Error.
func (e *Engine) Run(ctx context.Context, s *State) *State {
	stage := StageStartProject
	for stage != StageEnd {
		e.runStage(ctx, stage, s)
		stage = Next(stage, s)
	}
	return s
}

// runStage is the error boundary around a single stage: returned errors and
// panics both end up in s.Error.
func (e *Engine) runStage(ctx context.Context, stage Stage, s *State) {
	log := e.log.WithFields(logrus.Fields{"stage": stage, "project_id": s.ProjectID})

	if stage == StageHandleError {
		e.handleError(ctx, s, log)
		return
	}
	if s.HasError() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Stage panicked")
			s.Fail(fmt.Sprintf("%s: panic: %v", stage, r))
		}
	}()

	var err error
	switch stage {
	case StageStartProject:
		err = e.startProject(ctx, s)
	case StageGenerateContent:
		err = e.generateContent(ctx, s)
	case StageGenerateMultimedia:
		err = e.generateMultimedia(ctx, s)
	case StagePublishVideo:
		err = e.publishVideo(ctx, s)
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}

	if err != nil {
		log.WithError(err).Warn("Stage failed")
		s.Fail(fmt.Sprintf("%s: %v", stage, err))
		return
	}
	log.Debug("Stage finished")
}

func (e *Engine) startProject(ctx context.Context, s *State) error {
	id, err := e.projects.Create(ctx, s.Idea)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	s.ProjectID = id
	e.emit(ctx, s, StageStartProject, models.ProjectStarting)

	e.log.WithField("project_id", id).Info("New project started")
	return nil
}

func (e *Engine) generateContent(ctx context.Context, s *State) error {
	if err := e.setStatus(ctx, s, StageGenerateContent, models.ProjectGeneratingContent); err != nil {
		return err
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	result, err := e.scripts.GenerateScript(callCtx, s.Idea)
	if err != nil {
		return fmt.Errorf("script generation failed: %w", err)
	}
	if result == nil {
		return errors.New("script generation returned no result")
	}
	if result.Error != "" {
		return errors.New(result.Error)
	}
	if result.Script == nil {
		return errors.New("script generation returned no script")
	}

	s.Script = result.Script
	if err := e.projects.SaveScript(ctx, s.ProjectID, result.Script); err != nil {
		return fmt.Errorf("failed to save script: %w", err)
	}
	return nil
}

func (e *Engine) generateMultimedia(ctx context.Context, s *State) error {
	if err := e.setStatus(ctx, s, StageGenerateMultimedia, models.ProjectGeneratingMultimedia); err != nil {
		return err
	}

	s.RunID = e.newRunID(s.ProjectID)

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	result, err := e.media.Generate(callCtx, s.Script, s.RunID)
	if err != nil {
		return fmt.Errorf("multimedia generation failed: %w", err)
	}
	if result == nil || len(result.Images) == 0 || len(result.Videos) == 0 {
		return errors.New("multimedia generation failed: no images or videos were produced")
	}

	s.ImagePaths = result.Images
	s.VideoPaths = result.Videos
	s.AudioPath = result.Audio

	assets := models.Assets{
		"images": result.Images,
		"videos": result.Videos,
	}
	if result.Audio != "" {
		assets["audio"] = []string{result.Audio}
	}

	if err := e.projects.SaveMultimedia(ctx, s.ProjectID, assets, result.Videos[0], s.RunID); err != nil {
		return fmt.Errorf("failed to save multimedia: %w", err)
	}
	e.emit(ctx, s, StageGenerateMultimedia, models.ProjectMultimediaCompleted)
	return nil
}

func (e *Engine) publishVideo(ctx context.Context, s *State) error {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	urls, finalURL, err := e.publish.Publish(callCtx, s)
	if err != nil {
		return err
	}
	s.PublishedURLs = urls

	if err := e.projects.Complete(ctx, s.ProjectID, urls, finalURL); err != nil {
		return fmt.Errorf("failed to complete project: %w", err)
	}
	e.emit(ctx, s, StagePublishVideo, models.ProjectCompleted)

	e.log.WithFields(logrus.Fields{"project_id": s.ProjectID, "run_id": s.RunID}).Info("Project completed")
	return nil
}

// handleError marks the project failed. Nothing here is allowed to escape:
// store failures and panics are logged only.
func (e *Engine) handleError(ctx context.Context, s *State, log logrus.FieldLogger) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Error handler panicked")
		}
	}()

	msg := s.ErrorText()
	log.WithField("error", msg).Error("Pipeline run failed")

	if s.ProjectID == 0 {
		return
	}
	if err := e.projects.MarkFailed(ctx, s.ProjectID, msg); err != nil {
		log.WithError(err).Error("Failed to mark project as failed")
		return
	}
	e.emit(ctx, s, StageHandleError, models.ProjectFailed)
}

func (e *Engine) setStatus(ctx context.Context, s *State, stage Stage, status string) error {
	if err := e.projects.UpdateStatus(ctx, s.ProjectID, status); err != nil {
		return fmt.Errorf("failed to set status %s: %w", status, err)
	}
	e.emit(ctx, s, stage, status)
	return nil
}

func (e *Engine) emit(ctx context.Context, s *State, stage Stage, status string) {
	if e.events == nil {
		return
	}
	event := models.StageEvent{
		ProjectID: s.ProjectID,
		RunID:     s.RunID,
		Stage:     string(stage),
		Status:    status,
		At:        time.Now().UTC(),
	}
	if status == models.ProjectFailed {
		event.Error = s.ErrorText()
	}
	e.events.PublishStage(ctx, event)
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.callTimeout)
}
