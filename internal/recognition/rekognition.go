package recognition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/timmy/facefinder/internal/config"
	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/logger"
)

type rekognitionAPI interface {
	IndexFaces(ctx context.Context, in *rekognition.IndexFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error)
	SearchFacesByImage(ctx context.Context, in *rekognition.SearchFacesByImageInput, optFns ...func(*rekognition.Options)) (*rekognition.SearchFacesByImageOutput, error)
	DetectFaces(ctx context.Context, in *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	CreateCollection(ctx context.Context, in *rekognition.CreateCollectionInput, optFns ...func(*rekognition.Options)) (*rekognition.CreateCollectionOutput, error)
}

// Client talks to one Rekognition face collection.
type Client struct {
	api        rekognitionAPI
	collection string
	threshold  float32
	maxFaces   int32
}

// NewClient creates a recognition client for cfg.Collection.
// Parameters:
//   - awsCfg: shared SDK configuration.
//   - cfg: collection name and search tuning.
//
// Returns:
//   - *Client: initialized client.
func NewClient(awsCfg aws.Config, cfg config.RecognitionConfig) *Client {
	return newClient(rekognition.NewFromConfig(awsCfg), cfg)
}

func newClient(api rekognitionAPI, cfg config.RecognitionConfig) *Client {
	return &Client{
		api:        api,
		collection: cfg.Collection,
		threshold:  cfg.MatchThreshold,
		maxFaces:   cfg.MaxFaces,
	}
}

// EnsureCollection creates the face collection if it does not exist yet.
func (c *Client) EnsureCollection(ctx context.Context) error {
	_, err := c.api.CreateCollection(ctx, &rekognition.CreateCollectionInput{
		CollectionId: aws.String(c.collection),
	})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("create collection %s: %w", c.collection, err)
	}
	if err == nil {
		logger.Info("Created face collection %s", c.collection)
	}
	return nil
}

// IndexFaces adds every face found in image to the collection.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - image: encoded image bytes.
//
// Returns:
//   - []string: identifiers of the indexed faces, possibly empty.
//   - error: non-nil if the service call fails.
func (c *Client) IndexFaces(ctx context.Context, image []byte) ([]string, error) {
	out, err := c.api.IndexFaces(ctx, &rekognition.IndexFacesInput{
		CollectionId: aws.String(c.collection),
		Image:        &types.Image{Bytes: image},
	})
	if err != nil {
		return nil, fmt.Errorf("index faces: %w", err)
	}

	ids := make([]string, 0, len(out.FaceRecords))
	for _, rec := range out.FaceRecords {
		if rec.Face == nil || rec.Face.FaceId == nil {
			continue
		}
		ids = append(ids, *rec.Face.FaceId)
	}
	return ids, nil
}

// SearchFaces returns the collection faces similar to the largest face in image.
// An image without a detectable face yields no matches rather than an error.
func (c *Client) SearchFaces(ctx context.Context, image []byte) ([]domain.FaceMatch, error) {
	out, err := c.api.SearchFacesByImage(ctx, &rekognition.SearchFacesByImageInput{
		CollectionId:       aws.String(c.collection),
		Image:              &types.Image{Bytes: image},
		FaceMatchThreshold: aws.Float32(c.threshold),
		MaxFaces:           aws.Int32(c.maxFaces),
	})
	if err != nil {
		if isNoFaceInImage(err) {
			logger.CtxDebug(ctx, "No face in query image: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("search faces: %w", err)
	}

	matches := make([]domain.FaceMatch, 0, len(out.FaceMatches))
	for _, m := range out.FaceMatches {
		if m.Face == nil || m.Face.FaceId == nil {
			continue
		}
		matches = append(matches, domain.FaceMatch{
			FaceID:     *m.Face.FaceId,
			Similarity: aws.ToFloat32(m.Similarity),
		})
	}
	return matches, nil
}

// isNoFaceInImage reports whether err is the InvalidParameterException raised
// for a query image without faces. Other parameter errors stay errors.
func isNoFaceInImage(err error) bool {
	var invalid *types.InvalidParameterException
	if !errors.As(err, &invalid) {
		return false
	}
	return strings.Contains(strings.ToLower(invalid.ErrorMessage()), "no faces")
}

// DetectFaces counts the faces in image.
func (c *Client) DetectFaces(ctx context.Context, image []byte) (int, error) {
	out, err := c.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return 0, fmt.Errorf("detect faces: %w", err)
	}
	return len(out.FaceDetails), nil
}
