package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/facefinder/internal/domain"
)

// ImageSource downloads candidate images.
type ImageSource interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// ImageFetcher downloads images over HTTP with a size cap and a wall-clock timeout.
type ImageFetcher struct {
	client   *resty.Client
	maxBytes int64
}

// NewImageFetcher creates a fetcher.
// Parameters:
//   - maxBytes: largest accepted body.
//   - timeout: limit for the whole request including the body.
//   - userAgent: User-Agent header sent with every request.
//
// Returns:
//   - *ImageFetcher: ready to use fetcher.
func NewImageFetcher(maxBytes int64, timeout time.Duration, userAgent string) *ImageFetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "image/jpeg, image/png, */*;q=0.5")
	return &ImageFetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads imageURL.
// Returns domain.ErrImageTooLarge when the body exceeds the cap, and an error
// wrapping domain.ErrFetchFailed for transport failures and non-2xx statuses.
func (f *ImageFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailed, resp.StatusCode())
	}
	if resp.RawResponse != nil && resp.RawResponse.ContentLength > f.maxBytes {
		return nil, domain.ErrImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, domain.ErrImageTooLarge
	}
	return data, nil
}
