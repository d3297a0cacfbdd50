package pipeline

import (
	"context"
	"errors"
	"sync"

	"shortforge-backend/internal/models"
)

type fakeProject struct {
	status    string
	script    *models.ScriptStructure
	assets    models.Assets
	videoPath string
	runID     string
	published map[string]string
	finalURL  string
	errMsg    string
}

type fakeProjects struct {
	mu         sync.Mutex
	nextID     int64
	projects   map[int64]*fakeProject
	history    []string
	createErr  error
	failErr    error
	failCalls  int
	invalidHop bool
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{projects: map[int64]*fakeProject{}}
}

func (f *fakeProjects) Create(ctx context.Context, ideaPrompt string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.projects[f.nextID] = &fakeProject{status: models.ProjectStarting}
	f.history = append(f.history, models.ProjectStarting)
	return f.nextID, nil
}

func (f *fakeProjects) setStatus(id int64, status string) error {
	p, ok := f.projects[id]
	if !ok {
		return errors.New("project not found")
	}
	if !models.CanAdvance(p.status, status) {
		f.invalidHop = true
	}
	p.status = status
	f.history = append(f.history, status)
	return nil
}

func (f *fakeProjects) UpdateStatus(ctx context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setStatus(id, status)
}

func (f *fakeProjects) SaveScript(ctx context.Context, id int64, script *models.ScriptStructure) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return errors.New("project not found")
	}
	p.script = script
	return nil
}

func (f *fakeProjects) SaveMultimedia(ctx context.Context, id int64, assets models.Assets, videoPath, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.setStatus(id, models.ProjectMultimediaCompleted); err != nil {
		return err
	}
	p := f.projects[id]
	p.assets = assets
	p.videoPath = videoPath
	p.runID = runID
	return nil
}

func (f *fakeProjects) Complete(ctx context.Context, id int64, publishedURLs map[string]string, finalURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.setStatus(id, models.ProjectCompleted); err != nil {
		return err
	}
	f.projects[id].published = publishedURLs
	f.projects[id].finalURL = finalURL
	return nil
}

func (f *fakeProjects) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCalls++
	if f.failErr != nil {
		return f.failErr
	}
	if err := f.setStatus(id, models.ProjectFailed); err != nil {
		return err
	}
	f.projects[id].errMsg = errMsg
	return nil
}

func (f *fakeProjects) get(id int64) *fakeProject {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects[id]
}

type fakeScripts struct {
	result *models.ScriptResult
	err    error
	panics bool
	calls  int
	ctxHad bool
}

func (f *fakeScripts) GenerateScript(ctx context.Context, idea string) (*models.ScriptResult, error) {
	f.calls++
	_, f.ctxHad = ctx.Deadline()
	if f.panics {
		panic("script service exploded")
	}
	return f.result, f.err
}

type fakeMedia struct {
	result *models.MultimediaResult
	err    error
	calls  int
	runID  string
}

func (f *fakeMedia) Generate(ctx context.Context, script *models.ScriptStructure, runID string) (*models.MultimediaResult, error) {
	f.calls++
	f.runID = runID
	return f.result, f.err
}

type fakeEvents struct {
	mu     sync.Mutex
	events []models.StageEvent
}

func (f *fakeEvents) PublishStage(ctx context.Context, event models.StageEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type fakePublishStep struct {
	urls  map[string]string
	final string
	err   error
	calls int
}

func (f *fakePublishStep) Publish(ctx context.Context, s *State) (map[string]string, string, error) {
	f.calls++
	return f.urls, f.final, f.err
}

type ideaUpdate struct {
	id     int64
	status string
	errMsg string
}

type fakeIdeas struct {
	mu       sync.Mutex
	pending  []*models.Idea
	claimErr error
	updates  []ideaUpdate
}

func (f *fakeIdeas) ClaimNextPending(ctx context.Context) (*models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.pending) == 0 {
		return nil, nil
	}
	idea := f.pending[0]
	f.pending = f.pending[1:]
	idea.Status = models.IdeaProcessing
	return idea, nil
}

func (f *fakeIdeas) UpdateStatus(ctx context.Context, id int64, status, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, ideaUpdate{id: id, status: status, errMsg: errMsg})
	return nil
}

func (f *fakeIdeas) updateList() []ideaUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ideaUpdate(nil), f.updates...)
}

func threeSceneScript() *models.ScriptResult {
	return &models.ScriptResult{Script: &models.ScriptStructure{
		Scenes: []models.Scene{
			{SceneDescription: "The cat studies the vault", ImagePrompt: "cat detective at a vault", VideoPrompt: "slow push in"},
			{SceneDescription: "The cat follows paw prints", ImagePrompt: "paw prints on marble", VideoPrompt: "tracking shot"},
			{SceneDescription: "The cat unmasks the thief", ImagePrompt: "cat pulling off a mask", VideoPrompt: "whip pan"},
		},
		EnvironmentPrompt: "noir museum at night",
		AudioPrompt:       "jazzy suspense",
		Hashtags:          []string{"#cat", "#heist"},
	}}
}

func threeOfEach() *models.MultimediaResult {
	return &models.MultimediaResult{
		Images: []string{"images/r_scene_1.png", "images/r_scene_2.png", "images/r_scene_3.png"},
		Videos: []string{"videos/r_1_final.mp4", "videos/r_2_final.mp4", "videos/r_3_final.mp4"},
	}
}
