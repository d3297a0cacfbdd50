package models

import (
	"encoding/json"
	"time"
)

const (
	ProjectStarting             = "starting"
	ProjectGeneratingContent    = "generating_content"
	ProjectGeneratingMultimedia = "generating_multimedia"
	ProjectMultimediaCompleted  = "multimedia_completed"
	ProjectCompleted            = "completed"
	ProjectFailed               = "failed"
)

// projectStatusRank orders the forward statuses. failed is reachable from any
// non-terminal status and has no rank.
var projectStatusRank = map[string]int{
	ProjectStarting:             0,
	ProjectGeneratingContent:    1,
	ProjectGeneratingMultimedia: 2,
	ProjectMultimediaCompleted:  3,
	ProjectCompleted:            4,
}

// CanAdvance reports whether a project may move from one status to another.
func CanAdvance(from, to string) bool {
	if from == ProjectCompleted || from == ProjectFailed {
		return false
	}
	if to == ProjectFailed {
		return true
	}
	fromRank, ok := projectStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := projectStatusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Assets maps an asset kind ("images", "videos", "audio") to its ordered
// locations.
type Assets map[string][]string

type VideoProject struct {
	ID            int64            `json:"id"`
	IdeaPrompt    string           `json:"idea_prompt"`
	Script        *ScriptStructure `json:"script"`
	Status        string           `json:"status"`
	Assets        Assets           `json:"assets"`
	VideoPath     *string          `json:"video_path"`
	FinalVideoURL *string          `json:"final_video_url"`
	PublishedURLs json.RawMessage  `json:"published_urls"`
	ErrorMessage  *string          `json:"error_message"`
	RunID         *string          `json:"run_id"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
