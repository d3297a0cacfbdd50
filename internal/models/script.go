package models

type Scene struct {
	SceneDescription string `json:"scene_description" validate:"required"`
	ImagePrompt      string `json:"image_prompt"`
	VideoPrompt      string `json:"video_prompt"`
}

type ScriptStructure struct {
	Scenes            []Scene  `json:"scenes" validate:"required,min=1,dive"`
	EnvironmentPrompt string   `json:"environment_prompt"`
	AudioPrompt       string   `json:"audio_prompt"`
	Hashtags          []string `json:"hashtags"`
}

// ScriptResult is what a script generator hands back: either a script or an
// error marker, never both.
type ScriptResult struct {
	Script *ScriptStructure `json:"script,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type MultimediaResult struct {
	Images []string `json:"images"`
	Videos []string `json:"videos"`
	Audio  string   `json:"audio,omitempty"`
}

type PublishMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}
