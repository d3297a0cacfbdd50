package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"shortforge-backend/internal/logger"
)

type stubModel struct {
	text   string
	err    error
	prompt string
}

func (m *stubModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if len(parts) > 0 {
		if t, ok := parts[0].(genai.Text); ok {
			m.prompt = string(t)
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(m.text)}},
		}},
	}, nil
}

const threeSceneJSON = `{
  "scenes": [
    {"scene_description": "The cat studies the vault", "image_prompt": "cat detective at a vault", "video_prompt": "slow push in"},
    {"scene_description": "The cat follows paw prints", "image_prompt": "paw prints on marble", "video_prompt": "tracking shot"},
    {"scene_description": "The cat unmasks the thief", "image_prompt": "cat pulling off a mask", "video_prompt": "whip pan"}
  ],
  "environment_prompt": "noir museum at night",
  "audio_prompt": "jazzy suspense",
  "hashtags": ["#cat", "#heist"]
}`

func TestParseScript(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		scenes  int
		wantErr bool
	}{
		{"plain json", threeSceneJSON, 3, false},
		{"fenced json", "```json\n" + threeSceneJSON + "\n```", 3, false},
		{"prose around json", "Here you go:\n" + threeSceneJSON + "\nEnjoy!", 3, false},
		{"empty", "   ", 0, true},
		{"not json", "I cannot help with that.", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			script, err := parseScript(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error %v", err)
			}
			if len(script.Scenes) != tc.scenes {
				t.Errorf("Expected %d scenes, got %d", tc.scenes, len(script.Scenes))
			}
		})
	}
}

func TestBuildScriptPrompt(t *testing.T) {
	prompt := buildScriptPrompt("Idea: {{idea}}. Scenes: {{scenes}}.", "A detective cat solves a heist", 3)

	if !strings.Contains(prompt, "Idea: A detective cat solves a heist. Scenes: 3.") {
		t.Errorf("Placeholders not substituted: %q", prompt)
	}
	if !strings.Contains(prompt, `"hashtags"`) {
		t.Error("Expected JSON instructions in prompt")
	}
}

func TestGenerateScript_Success(t *testing.T) {
	model := &stubModel{text: threeSceneJSON}
	svc := newScriptService(model, "POV: {{idea}} in {{scenes}} scenes", 1, 3, logger.Discard())

	result, err := svc.GenerateScript(context.Background(), "A detective cat solves a heist")
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if result.Error != "" || result.Script == nil {
		t.Fatalf("Expected script, got %+v", result)
	}
	if len(result.Script.Scenes) != 3 || result.Script.Hashtags[1] != "#heist" {
		t.Errorf("Unexpected script %+v", result.Script)
	}
	if !strings.Contains(model.prompt, "POV: A detective cat solves a heist in 3 scenes") {
		t.Errorf("Prompt not built from template: %q", model.prompt)
	}
}

func TestGenerateScript_Failures(t *testing.T) {
	tests := []struct {
		name       string
		model      *stubModel
		wantErr    bool
		wantMarker bool
	}{
		{"api error", &stubModel{err: errors.New("quota exceeded")}, true, false},
		{"garbage", &stubModel{text: "no json here"}, false, true},
		{"no scenes", &stubModel{text: `{"scenes": [], "hashtags": []}`}, false, true},
		{"scene without description", &stubModel{text: `{"scenes": [{"image_prompt": "x"}]}`}, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newScriptService(tc.model, "{{idea}}", 1, 3, logger.Discard())

			result, err := svc.GenerateScript(context.Background(), "idea")
			if tc.wantErr {
				if err == nil {
					t.Error("Expected transport error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error %v", err)
			}
			if tc.wantMarker && (result.Error == "" || result.Script != nil) {
				t.Errorf("Expected error marker, got %+v", result)
			}
		})
	}
}

func TestGenerateScript_RateSlotHonoursContext(t *testing.T) {
	svc := newScriptService(&stubModel{text: threeSceneJSON}, "{{idea}}", 1, 3, logger.Discard())
	<-svc.rateChan // occupy the only slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.GenerateScript(ctx, "idea"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
