package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shortforge-backend/internal/config"
	"shortforge-backend/internal/models"
	"shortforge-backend/internal/storage"
)

// YouTubePublisher uploads a video as a Short through the Data API v3.
type YouTubePublisher struct {
	svc          *youtube.Service
	store        storage.AssetStore
	privacy      string
	categoryID   string
	pollInterval time.Duration
	pollAttempts int
	log          logrus.FieldLogger
}

func NewYouTubePublisher(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
	store storage.AssetStore,
	settings config.YouTubeSettings,
	log logrus.FieldLogger,
) (*YouTubePublisher, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, errors.New("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN must be set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	svc, err := youtube.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &YouTubePublisher{
		svc:          svc,
		store:        store,
		privacy:      settings.PrivacyStatus,
		categoryID:   settings.CategoryID,
		pollInterval: parseInterval(settings.PollInterval, 10*time.Second),
		pollAttempts: settings.PollAttempts,
		log:          log,
	}, nil
}

func (p *YouTubePublisher) Platform() string {
	return "youtube"
}

func (p *YouTubePublisher) Publish(ctx context.Context, videoPath string, meta models.PublishMetadata) (string, error) {
	rc, size, err := p.store.Open(ctx, videoPath)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	p.log.WithFields(logrus.Fields{"video": videoPath, "size_mb": float64(size) / 1024 / 1024}).
		Infof("Uploading %q to YouTube", meta.Title)

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description + "\n\n#Shorts",
			Tags:        meta.Tags,
			CategoryId:  p.categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           p.privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	uploaded, err := p.svc.Videos.Insert([]string{"snippet", "status"}, video).Media(rc).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}

	err = pollUntilReady(ctx, p.pollInterval, p.pollAttempts, func(ctx context.Context) error {
		resp, err := p.svc.Videos.List([]string{"processingDetails"}).Id(uploaded.Id).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("youtube status: %w", err)
		}
		if len(resp.Items) == 0 {
			return ErrNotReady
		}
		return processingOutcome(resp.Items[0].ProcessingDetails)
	})
	if err != nil {
		return "", fmt.Errorf("youtube video %s: %w", uploaded.Id, err)
	}

	return "https://youtube.com/shorts/" + uploaded.Id, nil
}

// processingOutcome maps YouTube processing details onto the polling
// contract.
func processingOutcome(details *youtube.VideoProcessingDetails) error {
	if details == nil {
		return ErrNotReady
	}
	switch details.ProcessingStatus {
	case "succeeded":
		return nil
	case "failed", "terminated":
		reason := details.ProcessingFailureReason
		if reason == "" {
			reason = details.ProcessingStatus
		}
		return fmt.Errorf("youtube processing failed: %s", reason)
	}
	return ErrNotReady
}
