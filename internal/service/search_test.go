package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/timmy/facefinder/internal/domain"
)

func TestSearchNoMatchIsEmpty(t *testing.T) {
	store := newFakeStore()
	svc := NewSearchService(&fakeFetcher{}, &fakeSearcher{}, store, 0)

	got, err := svc.SearchByImage(context.Background(), jpegBytes)
	if err != nil {
		t.Fatalf("SearchByImage: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v, want empty non-nil slice", got)
	}
	if store.opened != 0 {
		t.Errorf("store queried for an empty match set")
	}
}

func TestSearchResolvesAndDeduplicates(t *testing.T) {
	store := newFakeStore()
	store.put("f1", "https://a.com/page1", "https://a.com/x.jpg")
	store.put("f2", "https://a.com/page2", "https://a.com/x.jpg") // same origin and image as f1
	store.put("f3", "http://a.com/page1", "https://a.com/x.jpg")  // other scheme, other origin
	store.put("f4", "", "https://b.com/y.jpg")                    // unusable site
	store.put("f5", "https://c.org/", "https://c.org/z.png")
	searcher := &fakeSearcher{matches: []domain.FaceMatch{
		{FaceID: "f5", Similarity: 99.9},
		{FaceID: "f1", Similarity: 99.0},
		{FaceID: "f2", Similarity: 98.0},
		{FaceID: "f3", Similarity: 97.0},
		{FaceID: "f4", Similarity: 96.0},
		{FaceID: "unknown", Similarity: 95.5},
	}}
	svc := NewSearchService(&fakeFetcher{}, searcher, store, 0)

	got, err := svc.SearchByImage(context.Background(), pngBytes)
	if err != nil {
		t.Fatalf("SearchByImage: %v", err)
	}

	want := []domain.FaceSource{
		{ImageURL: "https://c.org/z.png", SiteURL: "https://c.org/"},
		{ImageURL: "https://a.com/x.jpg", SiteURL: "https://a.com/page1"},
		{ImageURL: "https://a.com/x.jpg", SiteURL: "http://a.com/page1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
	if store.opened != 1 || store.released != 1 {
		t.Errorf("connections opened=%d released=%d", store.opened, store.released)
	}
}

func TestSearchByURL(t *testing.T) {
	store := newFakeStore()
	store.put("f1", "https://a.com/", "https://a.com/x.jpg")
	fetcher := &fakeFetcher{images: map[string][]byte{"https://q.com/me.jpg": jpegBytes}}
	svc := NewSearchService(fetcher, &fakeSearcher{matches: []domain.FaceMatch{{FaceID: "f1"}}}, store, 0)

	got, err := svc.SearchByURL(context.Background(), "https://q.com/me.jpg")
	if err != nil || len(got) != 1 {
		t.Fatalf("SearchByURL = %+v, %v", got, err)
	}

	if _, err := svc.SearchByURL(context.Background(), "https://q.com/missing.jpg"); !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
}

func TestSearchRejectsUnsupportedFormat(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := NewSearchService(&fakeFetcher{}, searcher, newFakeStore(), 0)

	if _, err := svc.SearchByImage(context.Background(), gifBytes); !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
	if searcher.calls != 0 {
		t.Error("recognition called for an unsupported image")
	}
}

func TestSearchPropagatesRecognitionErrors(t *testing.T) {
	svc := NewSearchService(&fakeFetcher{}, &fakeSearcher{err: errBoom}, newFakeStore(), 0)
	if _, err := svc.SearchByImage(context.Background(), jpegBytes); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
}
