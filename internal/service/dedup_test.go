package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/timmy/facefinder/internal/domain"
)

func TestDedupFilterCheck(t *testing.T) {
	store := newFakeStore()
	store.put("f1", "https://known.com/gallery/1", "https://img.known.com/a.jpg")
	filter := NewDedupFilter([]string{"cdn", " "})

	tests := []struct {
		name    string
		cand    domain.Candidate
		want    Verdict
		wantErr error
	}{
		{
			name: "excluded by substring",
			cand: domain.Candidate{SiteURL: "https://cdn.example.com/x", ImageURL: "https://e.com/1.jpg"},
			want: Excluded,
		},
		{
			name: "known pair on another page of the same origin",
			cand: domain.Candidate{SiteURL: "https://known.com/other", ImageURL: "https://img.known.com/a.jpg"},
			want: AlreadyKnown,
		},
		{
			name: "same image on a new site",
			cand: domain.Candidate{SiteURL: "https://new.com/", ImageURL: "https://img.known.com/a.jpg"},
			want: Eligible,
		},
		{
			name:    "site without origin",
			cand:    domain.Candidate{SiteURL: "not a url", ImageURL: "https://e.com/1.jpg"},
			wantErr: domain.ErrBadSiteURL,
		},
		{
			name:    "malformed site matching an exclusion is rejected",
			cand:    domain.Candidate{SiteURL: "cdn.example.com/x", ImageURL: "https://e.com/1.jpg"},
			wantErr: domain.ErrBadSiteURL,
		},
		{
			name:    "image url longer than its column",
			cand:    domain.Candidate{SiteURL: "https://new.com/", ImageURL: "https://e.com/" + strings.Repeat("a", domain.MaxImageURLLength)},
			wantErr: domain.ErrURLTooLong,
		},
		{
			name:    "site url longer than its column",
			cand:    domain.Candidate{SiteURL: "https://new.com/" + strings.Repeat("p", domain.MaxSiteURLLength), ImageURL: "https://e.com/1.jpg"},
			wantErr: domain.ErrURLTooLong,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filter.Check(context.Background(), store, tt.cand)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDedupFilterStoreError(t *testing.T) {
	store := newFakeStore()
	store.existsErr = errBoom
	filter := NewDedupFilter(nil)

	_, err := filter.Check(context.Background(), store, domain.Candidate{SiteURL: "https://a.com", ImageURL: "https://a.com/1.jpg"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

func TestDedupFilterIgnoresBlankPatterns(t *testing.T) {
	filter := NewDedupFilter([]string{"", "  "})
	if filter.IsExcluded("https://anything.com") {
		t.Fatal("blank pattern excluded every site")
	}
}
