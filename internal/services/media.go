package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"shortforge-backend/internal/models"
	"shortforge-backend/internal/storage"
)

const (
	verticalImageSize = "1440x2560"
	videoResolution   = "720p"
)

var ErrVideoTimeout = errors.New("video generation did not finish in time")

// GenerationAPI is the slice of the Ark runtime the media service needs.
type GenerationAPI interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
	CreateVideoTask(ctx context.Context, prompt, imageURL string) (string, error)
	GetVideoTask(ctx context.Context, taskID string) (status, videoURL string, err error)
}

type arkGeneration struct {
	client     *arkruntime.Client
	imageModel string
	videoModel string
}

func NewArkGeneration(apiKey, baseURL, imageModel, videoModel string) GenerationAPI {
	return &arkGeneration{
		client:     arkruntime.NewClientWithApiKey(apiKey, arkruntime.WithBaseUrl(baseURL)),
		imageModel: imageModel,
		videoModel: videoModel,
	}
}

func (a *arkGeneration) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.GenerateImages(ctx, model.GenerateImagesRequest{
		Model:          a.imageModel,
		Prompt:         prompt,
		Size:           volcengine.String(verticalImageSize),
		ResponseFormat: volcengine.String(model.GenerateImagesResponseFormatURL),
		Watermark:      volcengine.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("image generation request failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("image generation failed: %s - %s", resp.Error.Code, resp.Error.Message)
	}
	for _, image := range resp.Data {
		if image.Url != nil && *image.Url != "" {
			return *image.Url, nil
		}
	}
	return "", errors.New("image generation returned no url")
}

func (a *arkGeneration) CreateVideoTask(ctx context.Context, prompt, imageURL string) (string, error) {
	resp, err := a.client.CreateContentGenerationTask(ctx, model.CreateContentGenerationTaskRequest{
		Model: a.videoModel,
		Content: []*model.CreateContentGenerationContentItem{
			{
				Type: model.ContentGenerationContentItemTypeText,
				Text: volcengine.String(prompt + " --resolution " + videoResolution),
			},
			{
				Type:     model.ContentGenerationContentItemTypeImage,
				ImageURL: &model.ImageURL{URL: imageURL},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("video task creation failed: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("video task creation returned no id")
	}
	return resp.ID, nil
}

func (a *arkGeneration) GetVideoTask(ctx context.Context, taskID string) (string, string, error) {
	req := model.GetContentGenerationTaskRequest{}
	req.ID = taskID

	resp, err := a.client.GetContentGenerationTask(ctx, req)
	if err != nil {
		return "", "", fmt.Errorf("video task lookup failed: %w", err)
	}
	status := strings.ToLower(string(resp.Status))
	if status != "succeeded" {
		return status, "", nil
	}
	return status, resp.Content.VideoURL, nil
}

// MediaService generates one image per scene and one short clip per image,
// storing both in the asset store. Audio is not generated.
type MediaService struct {
	api          GenerationAPI
	store        storage.AssetStore
	http         *http.Client
	pollInterval time.Duration
	pollAttempts int
	log          logrus.FieldLogger
}

func NewMediaService(api GenerationAPI, store storage.AssetStore, pollInterval time.Duration, pollAttempts int, log logrus.FieldLogger) *MediaService {
	if pollAttempts < 1 {
		pollAttempts = 1
	}
	return &MediaService{
		api:          api,
		store:        store,
		http:         &http.Client{Timeout: 5 * time.Minute},
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
		log:          log,
	}
}

type sceneImage struct {
	scene     int
	location  string
	remoteURL string
	prompt    string
}

// Generate returns empty lists when no image could be produced; any failure
// while producing a clip fails the whole call.
func (m *MediaService) Generate(ctx context.Context, script *models.ScriptStructure, runID string) (*models.MultimediaResult, error) {
	result := &models.MultimediaResult{Images: []string{}, Videos: []string{}}
	log := m.log.WithField("run_id", runID)

	if script == nil || len(script.Scenes) == 0 {
		log.Warn("Script has no scenes, nothing to generate")
		return result, nil
	}

	images := m.generateImages(ctx, script, runID, log)
	if len(images) == 0 {
		log.Warn("No images were generated, skipping video generation")
		return result, nil
	}
	for _, img := range images {
		result.Images = append(result.Images, img.location)
	}

	for i, img := range images {
		location, err := m.generateVideo(ctx, img, fmt.Sprintf("videos/%s_%d_final.mp4", runID, i+1))
		if err != nil {
			return nil, fmt.Errorf("video for scene %d: %w", img.scene, err)
		}
		result.Videos = append(result.Videos, location)
		log.WithField("video", location).Infof("Video %d/%d generated", i+1, len(images))
	}

	if script.AudioPrompt != "" {
		log.WithField("audio_prompt", script.AudioPrompt).Warn("Ambient audio generation is not implemented")
	}
	return result, nil
}

func (m *MediaService) generateImages(ctx context.Context, script *models.ScriptStructure, runID string, log logrus.FieldLogger) []sceneImage {
	var images []sceneImage

	for i, scene := range script.Scenes {
		n := i + 1
		sceneLog := log.WithField("scene", n)

		if strings.TrimSpace(scene.ImagePrompt) == "" {
			sceneLog.Warn("Scene has no image prompt, skipping")
			continue
		}

		prompt := scene.ImagePrompt
		if script.EnvironmentPrompt != "" {
			prompt += ". Setting: " + script.EnvironmentPrompt
		}

		url, err := m.api.GenerateImage(ctx, prompt)
		if err != nil {
			sceneLog.WithError(err).Warn("Image generation failed, skipping scene")
			continue
		}

		location, err := m.download(ctx, url, fmt.Sprintf("images/%s_scene_%d.png", runID, n))
		if err != nil {
			sceneLog.WithError(err).Warn("Image download failed, skipping scene")
			continue
		}

		sceneLog.WithField("image", location).Infof("Image %d/%d generated", n, len(script.Scenes))
		images = append(images, sceneImage{scene: n, location: location, remoteURL: url, prompt: scene.VideoPrompt})
	}
	return images
}

func (m *MediaService) generateVideo(ctx context.Context, img sceneImage, key string) (string, error) {
	prompt := img.prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = "Subtle cinematic camera motion"
	}

	taskID, err := m.api.CreateVideoTask(ctx, prompt, img.remoteURL)
	if err != nil {
		return "", err
	}

	videoURL, err := m.waitForVideo(ctx, taskID)
	if err != nil {
		return "", err
	}
	return m.download(ctx, videoURL, key)
}

// waitForVideo polls a video task until it succeeds, fails or runs out of
// attempts.
func (m *MediaService) waitForVideo(ctx context.Context, taskID string) (string, error) {
	for attempt := 1; attempt <= m.pollAttempts; attempt++ {
		status, videoURL, err := m.api.GetVideoTask(ctx, taskID)
		if err != nil {
			return "", err
		}

		switch status {
		case "succeeded":
			if videoURL == "" {
				return "", fmt.Errorf("task %s succeeded without a video url", taskID)
			}
			return videoURL, nil
		case "failed", "cancelled", "expired":
			return "", fmt.Errorf("task %s ended with status %s", taskID, status)
		}

		if attempt == m.pollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
	return "", fmt.Errorf("task %s: %w", taskID, ErrVideoTimeout)
}

func (m *MediaService) download(ctx context.Context, url, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid download url: %w", err)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return m.store.Save(ctx, key, resp.Body, resp.ContentLength)
}
