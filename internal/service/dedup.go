package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/repository"
)

// Verdict is the dedup decision for one candidate.
type Verdict int

const (
	Eligible Verdict = iota
	Excluded
	AlreadyKnown
)

func (v Verdict) String() string {
	switch v {
	case Excluded:
		return "excluded"
	case AlreadyKnown:
		return "already_known"
	default:
		return "eligible"
	}
}

// DedupFilter drops candidates from excluded sites and pairs that were already indexed.
type DedupFilter struct {
	excluded []string
}

// NewDedupFilter creates a filter. Each entry of excluded is matched as a
// substring of the candidate's site URL.
func NewDedupFilter(excluded []string) *DedupFilter {
	patterns := make([]string, 0, len(excluded))
	for _, e := range excluded {
		if e = strings.TrimSpace(e); e != "" {
			patterns = append(patterns, e)
		}
	}
	return &DedupFilter{excluded: patterns}
}

// Check decides whether c needs processing. It never touches the network.
// Parameters:
//   - ctx: context for the store lookup.
//   - store: store queried for an existing (image, site origin) pair.
//   - c: candidate to classify.
//
// Returns:
//   - Verdict: Excluded, AlreadyKnown or Eligible.
//   - error: domain.ErrBadSiteURL or domain.ErrURLTooLong for candidates that
//     cannot be stored, or a store error.
func (f *DedupFilter) Check(ctx context.Context, store repository.FaceStore, c domain.Candidate) (Verdict, error) {
	if err := c.Validate(); err != nil {
		return Eligible, err
	}
	if f.IsExcluded(c.SiteURL) {
		return Excluded, nil
	}

	origin, err := c.SiteOrigin()
	if err != nil {
		return Eligible, err
	}

	known, err := store.ExistsByImageAndSite(ctx, c.ImageURL, origin)
	if err != nil {
		return Eligible, fmt.Errorf("dedup lookup: %w", err)
	}
	if known {
		return AlreadyKnown, nil
	}
	return Eligible, nil
}

// IsExcluded reports whether siteURL matches the exclusion list.
func (f *DedupFilter) IsExcluded(siteURL string) bool {
	for _, pattern := range f.excluded {
		if strings.Contains(siteURL, pattern) {
			return true
		}
	}
	return false
}
