package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/logger"
	"github.com/timmy/facefinder/internal/repository"
)

// FaceSearcher finds collection faces similar to the face in an image.
type FaceSearcher interface {
	SearchFaces(ctx context.Context, image []byte) ([]domain.FaceMatch, error)
}

// SearchService resolves a query image to the sites and images its face was seen on.
type SearchService struct {
	fetcher  ImageSource
	searcher FaceSearcher
	store    repository.FaceStore
	timeout  time.Duration
}

// NewSearchService creates a new search service.
// Parameters:
//   - fetcher: downloads query images given by URL.
//   - searcher: similarity search over the face collection.
//   - store: face record store.
//   - timeout: limit for the similarity search call; zero disables it.
//
// Returns:
//   - *SearchService: initialized service.
func NewSearchService(fetcher ImageSource, searcher FaceSearcher, store repository.FaceStore, timeout time.Duration) *SearchService {
	return &SearchService{fetcher: fetcher, searcher: searcher, store: store, timeout: timeout}
}

// SearchByURL downloads imageURL and searches with its bytes.
func (s *SearchService) SearchByURL(ctx context.Context, imageURL string) ([]domain.FaceSource, error) {
	data, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	return s.SearchByImage(ctx, data)
}

// SearchByImage returns every known site/image pair sharing a face with image.
// No match is a normal outcome and yields an empty, non-nil slice.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - image: encoded JPEG or PNG bytes.
//
// Returns:
//   - []domain.FaceSource: pairs ordered by best similarity, unique per (site origin, image URL).
//   - error: domain.ErrUnsupportedFormat for other formats, or a collaborator failure.
func (s *SearchService) SearchByImage(ctx context.Context, image []byte) ([]domain.FaceSource, error) {
	if _, err := SniffImage(image); err != nil {
		return nil, err
	}

	matches, err := s.search(ctx, image)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		logger.CtxInfo(ctx, "No similar faces found")
		return []domain.FaceSource{}, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.FaceID
	}

	var records []domain.FaceRecord
	err = s.store.WithConnection(ctx, func(conn repository.FaceStore) error {
		var findErr error
		records, findErr = conn.FindByFaceIDs(ctx, ids)
		return findErr
	})
	if err != nil {
		return nil, fmt.Errorf("resolve matched faces: %w", err)
	}

	sources := resolveSources(matches, records)
	logger.With(logger.Fields{
		"matches": len(matches),
		"records": len(records),
	}).WithCount(len(sources)).Info(ctx, "Search completed")
	return sources, nil
}

func (s *SearchService) search(ctx context.Context, image []byte) ([]domain.FaceMatch, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.searcher.SearchFaces(ctx, image)
}

// resolveSources maps matches to their records in match order, drops records
// whose site URL has no origin and keeps the first record per (origin, image URL).
func resolveSources(matches []domain.FaceMatch, records []domain.FaceRecord) []domain.FaceSource {
	byFace := make(map[string][]domain.FaceRecord, len(records))
	for _, rec := range records {
		byFace[rec.FaceID] = append(byFace[rec.FaceID], rec)
	}

	type pairKey struct{ origin, imageURL string }
	seen := make(map[pairKey]bool)
	sources := make([]domain.FaceSource, 0, len(records))
	for _, m := range matches {
		for _, rec := range byFace[m.FaceID] {
			origin, err := domain.SiteOrigin(rec.SourceSiteURL)
			if err != nil {
				continue
			}
			key := pairKey{origin: origin, imageURL: rec.SourceImageURL}
			if seen[key] {
				continue
			}
			seen[key] = true
			sources = append(sources, domain.FaceSource{ImageURL: rec.SourceImageURL, SiteURL: rec.SourceSiteURL})
		}
	}
	return sources
}
