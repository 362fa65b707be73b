package domain

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Candidate is an unvalidated site/image reference handed over by the crawler.
// It only lives between the publisher and the intake pipeline.
type Candidate struct {
	SiteURL  string `json:"site-url" binding:"required"`
	ImageURL string `json:"image-url" binding:"required"`
	ClientID string `json:"client-id,omitempty"`
}

// SiteOrigin returns scheme://hostname for the candidate's site URL.
// Parameters: none.
// Returns:
//   - string: origin without port or path.
//   - error: ErrBadSiteURL if no origin can be determined.
func (c Candidate) SiteOrigin() (string, error) {
	return SiteOrigin(c.SiteURL)
}

// Validate checks that the candidate has a site origin and that both URLs fit
// the face record columns.
// Returns:
//   - error: ErrBadSiteURL or ErrURLTooLong, nil if the candidate can be stored.
func (c Candidate) Validate() error {
	if _, err := c.SiteOrigin(); err != nil {
		return err
	}
	if utf8.RuneCountInString(c.SiteURL) > MaxSiteURLLength {
		return fmt.Errorf("site url has %d characters: %w", utf8.RuneCountInString(c.SiteURL), ErrURLTooLong)
	}
	if utf8.RuneCountInString(c.ImageURL) > MaxImageURLLength {
		return fmt.Errorf("image url has %d characters: %w", utf8.RuneCountInString(c.ImageURL), ErrURLTooLong)
	}
	return nil
}

// StorageKey returns the object key the candidate's bytes are stored under.
func (c Candidate) StorageKey() string {
	return EncodeURIComponent(c.SiteURL + c.ImageURL)
}

// SiteOrigin derives scheme://hostname from a raw site URL.
// Parameters:
//   - rawURL: full site URL, possibly with path and query.
//
// Returns:
//   - string: origin without port or path.
//   - error: ErrBadSiteURL if the URL has no scheme or hostname.
func SiteOrigin(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", ErrBadSiteURL
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return "", ErrBadSiteURL
	}
	return u.Scheme + "://" + u.Hostname(), nil
}

// componentUnescaper restores the characters encodeURIComponent leaves alone
// but url.QueryEscape encodes.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent escapes s the way browsers escape a URI component, so
// storage keys and detector query strings match what other producers generate.
func EncodeURIComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
