package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"shortforge-backend/internal/models"
)

// Publisher uploads one finished video to a single platform and returns its
// public URL.
type Publisher interface {
	Platform() string
	Publish(ctx context.Context, videoPath string, meta models.PublishMetadata) (string, error)
}

// PausedPublishing is the default publish step: it reports what would be
// published and calls nothing.
type PausedPublishing struct {
	log logrus.FieldLogger
}

func NewPausedPublishing(log logrus.FieldLogger) *PausedPublishing {
	return &PausedPublishing{log: log}
}

func (p *PausedPublishing) Publish(ctx context.Context, s *State) (map[string]string, string, error) {
	log := p.log.WithFields(logrus.Fields{"project_id": s.ProjectID, "run_id": s.RunID})
	if len(s.VideoPaths) == 0 {
		log.Info("No videos to publish")
	} else {
		log.WithField("videos", s.VideoPaths).Infof("%d videos ready to publish", len(s.VideoPaths))
	}
	log.Info("Automatic publishing is paused, skipping")

	return map[string]string{"status": "paused"}, "", nil
}

// PlatformPublishing uploads the first video to every configured platform.
// A platform failure is logged and the others still run; the step fails
// only when no platform succeeded.
type PlatformPublishing struct {
	publishers []Publisher
	log        logrus.FieldLogger
}

func NewPlatformPublishing(log logrus.FieldLogger, publishers ...Publisher) *PlatformPublishing {
	return &PlatformPublishing{publishers: publishers, log: log}
}

func (p *PlatformPublishing) Publish(ctx context.Context, s *State) (map[string]string, string, error) {
	if len(s.VideoPaths) == 0 {
		return nil, "", errors.New("no videos to publish")
	}
	if len(p.publishers) == 0 {
		return nil, "", errors.New("no publishers configured")
	}

	meta := MetadataFor(s)
	urls := make(map[string]string, len(p.publishers))
	var finalURL string
	var failures []string

	for _, pub := range p.publishers {
		log := p.log.WithFields(logrus.Fields{"project_id": s.ProjectID, "platform": pub.Platform()})

		url, err := pub.Publish(ctx, s.VideoPaths[0], meta)
		if err != nil {
			log.WithError(err).Warn("Publishing failed")
			failures = append(failures, fmt.Sprintf("%s: %v", pub.Platform(), err))
			continue
		}

		log.WithField("url", url).Info("Video published")
		urls[pub.Platform()] = url
		if finalURL == "" {
			finalURL = url
		}
	}

	if len(urls) == 0 {
		return nil, "", fmt.Errorf("publishing failed on every platform: %s", strings.Join(failures, "; "))
	}
	return urls, finalURL, nil
}

// MetadataFor builds title, description and tags from the idea and script.
func MetadataFor(s *State) models.PublishMetadata {
	title := strings.TrimSpace(s.Idea)
	if r := []rune(title); len(r) > 100 {
		title = string(r[:97]) + "..."
	}

	meta := models.PublishMetadata{Title: title, Description: s.Idea}
	if s.Script == nil {
		return meta
	}

	for _, h := range s.Script.Hashtags {
		if tag := strings.TrimPrefix(strings.TrimSpace(h), "#"); tag != "" {
			meta.Tags = append(meta.Tags, tag)
		}
	}
	if len(s.Script.Hashtags) > 0 {
		meta.Description = s.Idea + "\n\n" + strings.Join(s.Script.Hashtags, " ")
	}
	return meta
}
