package service

import (
	"github.com/gabriel-vasile/mimetype"
	"github.com/timmy/facefinder/internal/domain"
)

var acceptedImageTypes = []string{"image/jpeg", "image/png"}

// SniffImage identifies data by its leading bytes and accepts JPEG and PNG only.
// Returns the canonical content type, or domain.ErrUnsupportedFormat.
func SniffImage(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	for _, accepted := range acceptedImageTypes {
		if mt.Is(accepted) {
			return accepted, nil
		}
	}
	return "", domain.ErrUnsupportedFormat
}
