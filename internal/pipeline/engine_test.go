package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"shortforge-backend/internal/logger"
	"shortforge-backend/internal/models"
)

type engineFixture struct {
	projects *fakeProjects
	scripts  *fakeScripts
	media    *fakeMedia
	events   *fakeEvents
	engine   *Engine
}

func newEngineFixture(publish PublishStep) *engineFixture {
	f := &engineFixture{
		projects: newFakeProjects(),
		scripts:  &fakeScripts{result: threeSceneScript()},
		media:    &fakeMedia{result: threeOfEach()},
		events:   &fakeEvents{},
	}
	f.engine = NewEngine(f.projects, f.scripts, f.media, publish, f.events, logger.Discard(), time.Minute)
	return f
}

func TestEngine_HappyPathStatusOrder(t *testing.T) {
	f := newEngineFixture(nil)

	s := f.engine.Run(context.Background(), NewState("A detective cat solves a heist"))

	if s.HasError() {
		t.Fatalf("Expected no error, got %q", s.ErrorText())
	}
	expected := []string{
		models.ProjectStarting,
		models.ProjectGeneratingContent,
		models.ProjectGeneratingMultimedia,
		models.ProjectMultimediaCompleted,
		models.ProjectCompleted,
	}
	if !reflect.DeepEqual(f.projects.history, expected) {
		t.Errorf("Expected status order %v, got %v", expected, f.projects.history)
	}
	if f.projects.invalidHop {
		t.Error("A status moved backwards")
	}

	p := f.projects.get(s.ProjectID)
	if p.script == nil || len(p.script.Scenes) != 3 {
		t.Errorf("Expected 3-scene script on project, got %+v", p.script)
	}
	if len(p.assets["images"]) != 3 || len(p.assets["videos"]) != 3 {
		t.Errorf("Expected 3 images and 3 videos, got %v", p.assets)
	}
	if _, ok := p.assets["audio"]; ok {
		t.Error("Audio should not be recorded when none was produced")
	}
	if p.videoPath != "videos/r_1_final.mp4" {
		t.Errorf("Expected first video as video_path, got %q", p.videoPath)
	}
	if p.published["status"] != "paused" {
		t.Errorf("Expected paused publishing marker, got %v", p.published)
	}
	if p.runID == "" || p.runID != s.RunID || p.runID != f.media.runID {
		t.Errorf("Run id not threaded through: project=%q state=%q media=%q", p.runID, s.RunID, f.media.runID)
	}
	if !strings.HasPrefix(s.RunID, "1_") || len(s.RunID) != len("1_")+8 {
		t.Errorf("Unexpected run id format %q", s.RunID)
	}

	var statuses []string
	for _, ev := range f.events.events {
		statuses = append(statuses, ev.Status)
	}
	if !reflect.DeepEqual(statuses, expected) {
		t.Errorf("Expected one event per status write %v, got %v", expected, statuses)
	}
}

func TestEngine_ContentErrorMarkerSkipsMultimedia(t *testing.T) {
	f := newEngineFixture(nil)
	f.scripts.result = &models.ScriptResult{Error: "model refused the prompt"}
	publish := &fakePublishStep{}
	f.engine.publish = publish

	s := f.engine.Run(context.Background(), NewState("A detective cat solves a heist"))

	if !s.HasError() || !strings.Contains(s.ErrorText(), "model refused the prompt") {
		t.Fatalf("Expected content error, got %v", s.Error)
	}
	if f.media.calls != 0 {
		t.Errorf("Multimedia should not run, got %d calls", f.media.calls)
	}
	if publish.calls != 0 {
		t.Errorf("Publish should not run, got %d calls", publish.calls)
	}

	p := f.projects.get(s.ProjectID)
	if p.status != models.ProjectFailed {
		t.Errorf("Expected failed project, got %q", p.status)
	}
	if p.assets != nil {
		t.Errorf("Assets should stay unset, got %v", p.assets)
	}
	if !strings.Contains(p.errMsg, "model refused the prompt") {
		t.Errorf("Expected error message on project, got %q", p.errMsg)
	}

	last := f.events.events[len(f.events.events)-1]
	if last.Status != models.ProjectFailed || last.Error == "" {
		t.Errorf("Expected a failed event with error text, got %+v", last)
	}
}

func TestEngine_ContentFailures(t *testing.T) {
	tests := []struct {
		name   string
		result *models.ScriptResult
		err    error
		want   string
	}{
		{"transport error", nil, errors.New("connection reset"), "connection reset"},
		{"nil result", nil, nil, "no result"},
		{"missing script", &models.ScriptResult{}, nil, "no script"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(nil)
			f.scripts.result = tc.result
			f.scripts.err = tc.err

			s := f.engine.Run(context.Background(), NewState("idea"))

			if !strings.Contains(s.ErrorText(), tc.want) {
				t.Errorf("Expected error containing %q, got %q", tc.want, s.ErrorText())
			}
			if f.media.calls != 0 {
				t.Error("Multimedia should not run")
			}
			if f.projects.get(s.ProjectID).status != models.ProjectFailed {
				t.Error("Expected failed project")
			}
		})
	}
}

func TestEngine_EmptyMultimediaIsFailure(t *testing.T) {
	tests := []struct {
		name   string
		result *models.MultimediaResult
	}{
		{"no images", &models.MultimediaResult{Videos: []string{"videos/a.mp4"}}},
		{"no videos", &models.MultimediaResult{Images: []string{"a.png", "b.png", "c.png"}}},
		{"nil result", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(nil)
			f.media.result = tc.result

			s := f.engine.Run(context.Background(), NewState("A detective cat solves a heist"))

			if !s.HasError() || !strings.Contains(s.ErrorText(), "multimedia") {
				t.Fatalf("Expected multimedia failure, got %v", s.Error)
			}
			p := f.projects.get(s.ProjectID)
			if p.status != models.ProjectFailed {
				t.Errorf("Expected failed project, got %q", p.status)
			}
			if !strings.Contains(p.errMsg, "multimedia") {
				t.Errorf("Expected error_message to mention multimedia, got %q", p.errMsg)
			}
			if p.assets != nil {
				t.Error("Assets should not be saved for a failed multimedia stage")
			}
		})
	}
}

func TestEngine_StartFailureNeverTouchesProject(t *testing.T) {
	f := newEngineFixture(nil)
	f.projects.createErr = errors.New("db down")

	s := f.engine.Run(context.Background(), NewState("idea"))

	if !strings.Contains(s.ErrorText(), "db down") {
		t.Fatalf("Expected start failure, got %q", s.ErrorText())
	}
	if s.ProjectID != 0 {
		t.Errorf("Expected no project id, got %d", s.ProjectID)
	}
	if f.projects.failCalls != 0 {
		t.Error("handle_error should not mark a project that was never created")
	}
	if f.scripts.calls != 0 {
		t.Error("No content generation after a failed start")
	}
}

func TestEngine_PanicIsCaptured(t *testing.T) {
	f := newEngineFixture(nil)
	f.scripts.panics = true

	s := f.engine.Run(context.Background(), NewState("idea"))

	if !strings.Contains(s.ErrorText(), "panic") {
		t.Fatalf("Expected panic to be recorded, got %q", s.ErrorText())
	}
	if f.projects.get(s.ProjectID).status != models.ProjectFailed {
		t.Error("Expected failed project after panic")
	}
}

func TestEngine_HandleErrorStoreFailureIsSwallowed(t *testing.T) {
	f := newEngineFixture(nil)
	f.scripts.err = errors.New("boom")
	f.projects.failErr = errors.New("db down")

	s := f.engine.Run(context.Background(), NewState("idea"))

	if !strings.Contains(s.ErrorText(), "boom") {
		t.Errorf("Original error should be kept, got %q", s.ErrorText())
	}
	if f.projects.failCalls != 1 {
		t.Errorf("Expected one MarkFailed attempt, got %d", f.projects.failCalls)
	}
}

func TestEngine_PublishErrorRoutesToHandleError(t *testing.T) {
	publish := &fakePublishStep{err: errors.New("every platform failed")}
	f := newEngineFixture(publish)

	s := f.engine.Run(context.Background(), NewState("idea"))

	if !strings.Contains(s.ErrorText(), "every platform failed") {
		t.Fatalf("Expected publish error, got %q", s.ErrorText())
	}
	p := f.projects.get(s.ProjectID)
	if p.status != models.ProjectFailed {
		t.Errorf("Expected failed project, got %q", p.status)
	}
	if len(p.assets["videos"]) != 3 {
		t.Error("Assets from the multimedia stage should be kept")
	}
}

func TestEngine_PlatformPublishingSetsFinalURL(t *testing.T) {
	publish := &fakePublishStep{
		urls:  map[string]string{"youtube": "https://youtube.com/shorts/abc"},
		final: "https://youtube.com/shorts/abc",
	}
	f := newEngineFixture(publish)

	s := f.engine.Run(context.Background(), NewState("idea"))

	if s.HasError() {
		t.Fatalf("Unexpected error %q", s.ErrorText())
	}
	p := f.projects.get(s.ProjectID)
	if p.finalURL != "https://youtube.com/shorts/abc" || p.published["youtube"] == "" {
		t.Errorf("Publishing outcome not stored: %+v", p)
	}
	if s.PublishedURLs["youtube"] == "" {
		t.Error("State should carry the published urls")
	}
}

func TestEngine_ExternalCallsAreBounded(t *testing.T) {
	f := newEngineFixture(nil)

	f.engine.Run(context.Background(), NewState("idea"))

	if !f.scripts.ctxHad {
		t.Error("Expected the script call to carry a deadline")
	}
}

func TestEngine_PreexistingErrorSkipsWork(t *testing.T) {
	f := newEngineFixture(nil)
	s := NewState("idea")
	s.Fail("")

	f.engine.Run(context.Background(), s)

	if len(f.projects.history) != 0 || f.scripts.calls != 0 {
		t.Error("No stage should do work once an error is set")
	}
	if s.ErrorText() != "unknown error" {
		t.Errorf("Expected default error text, got %q", s.ErrorText())
	}
}
