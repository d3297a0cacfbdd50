package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"shortforge-backend/internal/config"
	"shortforge-backend/internal/models"
	"shortforge-backend/internal/storage"
)

const graphHost = "https://graph.facebook.com/"

// InstagramPublisher posts a video as a Reel through the Graph API. The
// video must be reachable by Instagram at a public URL.
type InstagramPublisher struct {
	accountID    string
	accessToken  string
	baseURL      string
	store        storage.AssetStore
	client       *http.Client
	pollInterval time.Duration
	pollAttempts int
	log          logrus.FieldLogger
}

func NewInstagramPublisher(
	accountID, accessToken string,
	store storage.AssetStore,
	settings config.InstagramSettings,
	log logrus.FieldLogger,
) (*InstagramPublisher, error) {
	if accountID == "" || accessToken == "" {
		return nil, errors.New("INSTAGRAM_ACCOUNT_ID and INSTAGRAM_ACCESS_TOKEN must be set")
	}

	return &InstagramPublisher{
		accountID:    accountID,
		accessToken:  accessToken,
		baseURL:      graphHost + settings.APIVersion,
		store:        store,
		client:       &http.Client{Timeout: 60 * time.Second},
		pollInterval: parseInterval(settings.PollInterval, 5*time.Second),
		pollAttempts: settings.PollAttempts,
		log:          log,
	}, nil
}

func (p *InstagramPublisher) Platform() string {
	return "instagram"
}

func (p *InstagramPublisher) Publish(ctx context.Context, videoPath string, meta models.PublishMetadata) (string, error) {
	videoURL, err := p.store.PublicURL(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("instagram needs a public video URL: %w", err)
	}

	var container struct {
		ID string `json:"id"`
	}
	err = p.post(ctx, p.accountID+"/media", url.Values{
		"media_type":    {"REELS"},
		"video_url":     {videoURL},
		"caption":       {meta.Description},
		"share_to_feed": {"true"},
	}, &container)
	if err != nil {
		return "", fmt.Errorf("instagram container: %w", err)
	}
	p.log.WithField("creation_id", container.ID).Info("Instagram container created, waiting for processing")

	err = pollUntilReady(ctx, p.pollInterval, p.pollAttempts, func(ctx context.Context) error {
		var status struct {
			StatusCode string `json:"status_code"`
		}
		if err := p.get(ctx, container.ID, "status_code", &status); err != nil {
			return err
		}
		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("instagram processing ended with %s", status.StatusCode)
		}
		return ErrNotReady
	})
	if err != nil {
		return "", fmt.Errorf("instagram container %s: %w", container.ID, err)
	}

	var published struct {
		ID string `json:"id"`
	}
	if err := p.post(ctx, p.accountID+"/media_publish", url.Values{"creation_id": {container.ID}}, &published); err != nil {
		return "", fmt.Errorf("instagram publish: %w", err)
	}

	var media struct {
		Permalink string `json:"permalink"`
	}
	if err := p.get(ctx, published.ID, "permalink", &media); err != nil || media.Permalink == "" {
		p.log.WithError(err).WithField("media_id", published.ID).Warn("Could not fetch Instagram permalink")
		return "https://www.instagram.com/reel/" + published.ID, nil
	}
	return media.Permalink, nil
}

func (p *InstagramPublisher) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	form.Set("access_token", p.accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.do(req, out)
}

func (p *InstagramPublisher) get(ctx context.Context, path, fields string, out interface{}) error {
	q := url.Values{"fields": {fields}, "access_token": {p.accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return p.do(req, out)
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (p *InstagramPublisher) do(req *http.Request, out interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			return fmt.Errorf("graph api %d: %s", ge.Error.Code, ge.Error.Message)
		}
		return fmt.Errorf("graph api returned %s", resp.Status)
	}

	return json.Unmarshal(body, out)
}
