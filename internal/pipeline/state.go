package pipeline

import "shortforge-backend/internal/models"

const unknownError = "unknown error"

// State is the working data threaded through one pipeline run.
type State struct {
	Idea          string
	ProjectID     int64
	Script        *models.ScriptStructure
	ImagePaths    []string
	VideoPaths    []string
	AudioPath     string
	RunID         string
	PublishedURLs map[string]string

	// Error is nil until a stage fails. Once set, no stage does external work.
	Error *string

	// Retries is reserved for a retry policy and is never incremented.
	Retries int
}

func NewState(idea string) *State {
	return &State{Idea: idea}
}

func (s *State) HasError() bool {
	return s.Error != nil
}

// Fail records msg unless an earlier error is already present.
func (s *State) Fail(msg string) {
	if s.Error != nil {
		return
	}
	s.Error = &msg
}

// ErrorText returns the recorded error, or "unknown error" when the error
// is set but blank.
func (s *State) ErrorText() string {
	if s.Error == nil || *s.Error == "" {
		return unknownError
	}
	return *s.Error
}
