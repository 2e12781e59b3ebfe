package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/medigen/catalyst/internal/models"
)

// MaxImageSize caps uploads and downloads alike
const MaxImageSize = 10 * 1024 * 1024

// Fetcher retrieves images from remote URLs
type Fetcher struct {
	HTTPClient *resty.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: resty.New().SetTimeout(30 * time.Second),
	}
}

// Fetch downloads one image. The result still has to go through Deduplicate.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) (models.Image, error) {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return models.Image{}, fmt.Errorf("invalid image URL: %s", imageURL)
	}

	resp, err := f.HTTPClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to download image: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return models.Image{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode())
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxImageSize+1))
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxImageSize {
		return models.Image{}, fmt.Errorf("image too large (max %d bytes)", MaxImageSize)
	}

	filename := path.Base(u.Path)
	if filename == "" || filename == "/" || filename == "." {
		filename = "image.jpg"
	}

	slog.Info("Image downloaded", "url", imageURL, "bytes", len(data))
	return models.Image{
		Filename: filename,
		MIMEType: resp.Header().Get("Content-Type"),
		Data:     data,
	}, nil
}
