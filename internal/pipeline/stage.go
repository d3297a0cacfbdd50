package pipeline

type Stage string

const (
	StageStartProject       Stage = "start_project"
	StageGenerateContent    Stage = "generate_content"
	StageGenerateMultimedia Stage = "generate_multimedia"
	StagePublishVideo       Stage = "publish_video"
	StageHandleError        Stage = "handle_error"
	StageEnd                Stage = "end"
)

// workSuccessor is the next stage after a work stage finishes cleanly.
var workSuccessor = map[Stage]Stage{
	StageStartProject:       StageGenerateContent,
	StageGenerateContent:    StageGenerateMultimedia,
	StageGenerateMultimedia: StagePublishVideo,
	StagePublishVideo:       StageEnd,
}

// Next decides which stage follows stage given the current state. It is the
// only place routing happens and it never mutates s.
func Next(stage Stage, s *State) Stage {
	switch stage {
	case StageHandleError, StageEnd:
		return StageEnd
	}

	successor, ok := workSuccessor[stage]
	if !ok {
		return StageHandleError
	}
	if s.HasError() {
		return StageHandleError
	}
	return successor
}
