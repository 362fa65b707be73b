package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/facefinder/internal/domain"
)

// FaceDetector answers whether an image contains at least one face.
type FaceDetector interface {
	HasFace(ctx context.Context, imageURL string, image []byte) (bool, error)
}

// HTTPFaceDetector asks an external service for the face count of an image URL.
// The service is called as GET {baseURL}{encoded image URL} and answers with the count as text.
type HTTPFaceDetector struct {
	client  *resty.Client
	baseURL string
}

func NewHTTPFaceDetector(baseURL string, timeout time.Duration) *HTTPFaceDetector {
	client := resty.New()
	client.SetTimeout(timeout)
	return &HTTPFaceDetector{client: client, baseURL: baseURL}
}

// HasFace reports whether the service counted at least one face.
func (d *HTTPFaceDetector) HasFace(ctx context.Context, imageURL string, _ []byte) (bool, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		Get(d.baseURL + domain.EncodeURIComponent(imageURL))
	if err != nil {
		return false, fmt.Errorf("face detector request: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return false, fmt.Errorf("face detector error: status %d", resp.StatusCode())
	}

	count, err := strconv.Atoi(strings.TrimSpace(resp.String()))
	if err != nil {
		return false, fmt.Errorf("face detector returned %q: %w", resp.String(), err)
	}
	return count > 0, nil
}

// FaceCounter counts faces in encoded image bytes.
type FaceCounter interface {
	DetectFaces(ctx context.Context, image []byte) (int, error)
}

// BytesFaceDetector runs detection on the downloaded bytes instead of the URL.
type BytesFaceDetector struct {
	counter FaceCounter
	timeout time.Duration
}

func NewBytesFaceDetector(counter FaceCounter, timeout time.Duration) *BytesFaceDetector {
	return &BytesFaceDetector{counter: counter, timeout: timeout}
}

func (d *BytesFaceDetector) HasFace(ctx context.Context, _ string, image []byte) (bool, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	n, err := d.counter.DetectFaces(ctx, image)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
