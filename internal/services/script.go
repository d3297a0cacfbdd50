package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"shortforge-backend/internal/config"
	"shortforge-backend/internal/models"
)

type textModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// ScriptService turns an idea into a scene-by-scene script with Gemini.
type ScriptService struct {
	client    *genai.Client
	model     textModel
	template  string
	numScenes int
	validate  *validator.Validate
	log       logrus.FieldLogger
	rateChan  chan struct{} // Token bucket
}

func NewScriptService(
	ctx context.Context,
	apiKey string,
	modelName string,
	concurrentReqs int,
	numScenes int,
	settings config.ScriptSettings,
	log logrus.FieldLogger,
) (*ScriptService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(settings.Temperature)
	model.SetTopP(settings.TopP)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = scriptSchema()

	s := newScriptService(model, settings.PromptTemplate, concurrentReqs, numScenes, log)
	s.client = client
	return s, nil
}

func newScriptService(model textModel, template string, concurrentReqs, numScenes int, log logrus.FieldLogger) *ScriptService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &ScriptService{
		model:     model,
		template:  template,
		numScenes: numScenes,
		validate:  validator.New(),
		log:       log,
		rateChan:  rateChan,
	}
}

func (s *ScriptService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// acquireRate blocks until a rate slot is available
func (s *ScriptService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return errors.New("timeout waiting for Gemini rate slot")
	}
}

func (s *ScriptService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GenerateScript asks the model for a script. Transport failures are
// returned as errors; an unusable answer comes back as a result carrying an
// error marker.
func (s *ScriptService) GenerateScript(ctx context.Context, idea string) (*models.ScriptResult, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildScriptPrompt(s.template, idea, s.numScenes)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	if resp != nil {
		for i, cand := range resp.Candidates {
			if cand.FinishReason != genai.FinishReasonStop {
				s.log.WithFields(logrus.Fields{"candidate": i, "finish_reason": cand.FinishReason.String()}).
					Warn("Gemini stopped early")
			}
		}
	}

	script, err := parseScript(extractText(resp))
	if err != nil {
		return &models.ScriptResult{Error: fmt.Sprintf("script generation error: %v", err)}, nil
	}
	if err := s.validate.Struct(script); err != nil {
		return &models.ScriptResult{Error: fmt.Sprintf("script generation error: invalid script: %v", err)}, nil
	}
	if len(script.Scenes) != s.numScenes {
		s.log.WithFields(logrus.Fields{"expected": s.numScenes, "got": len(script.Scenes)}).
			Warn("Script scene count differs from configuration")
	}

	return &models.ScriptResult{Script: script}, nil
}

func buildScriptPrompt(template, idea string, numScenes int) string {
	var b strings.Builder

	p := strings.ReplaceAll(template, "{{idea}}", idea)
	p = strings.ReplaceAll(p, "{{scenes}}", strconv.Itoa(numScenes))
	b.WriteString(p)

	b.WriteString("\n\nRespond with a single JSON object with the keys ")
	b.WriteString(`"scenes" (array of objects with "scene_description", "image_prompt", "video_prompt"), `)
	b.WriteString(`"environment_prompt", "audio_prompt" and "hashtags" (array of strings starting with #). `)
	b.WriteString("Write the image and video prompts in English.")
	return b.String()
}

func parseScript(raw string) (*models.ScriptStructure, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty response")
	}

	var script models.ScriptStructure
	if err := json.Unmarshal([]byte(text), &script); err != nil {
		// Try to extract the JSON object
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("response is not JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &script); err != nil {
			return nil, fmt.Errorf("response is not JSON: %w", err)
		}
	}
	return &script, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func scriptSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"scenes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"scene_description": str,
						"image_prompt":      str,
						"video_prompt":      str,
					},
					Required: []string{"scene_description", "image_prompt", "video_prompt"},
				},
			},
			"environment_prompt": str,
			"audio_prompt":       str,
			"hashtags":           {Type: genai.TypeArray, Items: str},
		},
		Required: []string{"scenes", "environment_prompt", "audio_prompt", "hashtags"},
	}
}
