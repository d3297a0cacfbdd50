package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"shortforge-backend/internal/models"
)

type Runner interface {
	Run(ctx context.Context, s *State) *State
}

// Trigger claims at most one idea per tick and runs it through the engine.
type Trigger struct {
	ideas    IdeaStore
	engine   Runner
	interval time.Duration
	log      logrus.FieldLogger

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewTrigger(ideas IdeaStore, engine Runner, interval time.Duration, log logrus.FieldLogger) *Trigger {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Trigger{
		ideas:    ideas,
		engine:   engine,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Tick processes the oldest pending idea, if any. It reports whether an idea
// was run. Claim failures are logged and treated as an empty queue.
func (t *Trigger) Tick(ctx context.Context) bool {
	idea, err := t.ideas.ClaimNextPending(ctx)
	if err != nil {
		t.log.WithError(err).Error("Failed to claim next idea")
		return false
	}
	if idea == nil {
		t.log.Debug("No pending ideas")
		return false
	}

	log := t.log.WithField("idea_id", idea.ID)
	log.WithField("idea", idea.Text).Info("Processing idea")

	state := t.engine.Run(ctx, NewState(idea.Text))

	status, errMsg := models.IdeaCompleted, ""
	if state.HasError() {
		status, errMsg = models.IdeaFailed, state.ErrorText()
	}
	if err := t.ideas.UpdateStatus(ctx, idea.ID, status, errMsg); err != nil {
		log.WithError(err).Errorf("Failed to mark idea %s", status)
	}

	log.WithFields(logrus.Fields{"project_id": state.ProjectID, "status": status}).Info("Idea finished")
	return true
}

func (t *Trigger) Start() {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	go t.loop()
	t.log.WithField("interval", t.interval.String()).Info("Pipeline trigger started")
}

// Stop ends the loop and waits for an in-flight run to finish. Runs are not
// interrupted.
func (t *Trigger) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
	if t.started.Load() {
		<-t.done
	}
}

func (t *Trigger) loop() {
	defer close(t.done)

	// Run on startup as well as by interval.
	t.Tick(context.Background())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			select {
			case <-t.stopChan:
				return
			default:
			}
			t.Tick(context.Background())
		}
	}
}
