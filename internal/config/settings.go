package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultScriptPrompt = `Create a script for a short viral POV video about: {{idea}}.
The video has exactly {{scenes}} scenes. Write it in first person, with a strong hook in the
first scene and a twist in the last one. For each scene give a scene description, an image
prompt for a vertical 9:16 still frame and a video prompt describing the camera motion for
that frame. Also give one environment prompt shared by every scene, an audio prompt for the
background track and a list of hashtags.`

// Settings holds pipeline tuning that does not belong in the environment.
type Settings struct {
	Script    ScriptSettings    `yaml:"script"`
	YouTube   YouTubeSettings   `yaml:"youtube"`
	Instagram InstagramSettings `yaml:"instagram"`
}

type ScriptSettings struct {
	PromptTemplate string  `yaml:"prompt_template"`
	Temperature    float32 `yaml:"temperature"`
	TopP           float32 `yaml:"top_p"`
}

type YouTubeSettings struct {
	PrivacyStatus string `yaml:"privacy_status"`
	CategoryID    string `yaml:"category_id"`
	PollInterval  string `yaml:"poll_interval"`
	PollAttempts  int    `yaml:"poll_attempts"`
}

type InstagramSettings struct {
	APIVersion   string `yaml:"api_version"`
	PollInterval string `yaml:"poll_interval"`
	PollAttempts int    `yaml:"poll_attempts"`
}

func DefaultSettings() *Settings {
	return &Settings{
		Script: ScriptSettings{
			PromptTemplate: defaultScriptPrompt,
			Temperature:    0.9,
			TopP:           0.95,
		},
		YouTube: YouTubeSettings{
			PrivacyStatus: "private",
			CategoryID:    "24",
			PollInterval:  "10s",
			PollAttempts:  30,
		},
		Instagram: InstagramSettings{
			APIVersion:   "v23.0",
			PollInterval: "5s",
			PollAttempts: 20,
		},
	}
}

// LoadSettings reads the YAML settings file at path. A missing file yields
// the defaults; fields absent from the file keep their default values.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	return s, nil
}
