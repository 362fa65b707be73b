package service

import (
	"context"
	"errors"
	"sync"

	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/queue"
	"github.com/timmy/facefinder/internal/repository"
)

var (
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	gifBytes  = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00")
)

// events is a shared, ordered log of collaborator calls.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.log = append(e.log, s)
	e.mu.Unlock()
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]domain.FaceRecord
	insertErr error
	existsErr error
	opened    int
	released  int
	writes    int
	events    *events
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]domain.FaceRecord{}}
}

func (s *fakeStore) Insert(_ context.Context, rec *domain.FaceRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.add("insert:" + rec.FaceID)
	if s.insertErr != nil {
		return false, s.insertErr
	}
	s.writes++
	if _, ok := s.records[rec.FaceID]; ok {
		return false, nil
	}
	s.records[rec.FaceID] = *rec
	return true, nil
}

func (s *fakeStore) ExistsByImageAndSite(_ context.Context, imageURL, siteOrigin string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	for _, r := range s.records {
		if r.SourceImageURL != imageURL {
			continue
		}
		if len(r.SourceSiteURL) >= len(siteOrigin) && r.SourceSiteURL[:len(siteOrigin)] == siteOrigin {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) FindByFaceIDs(_ context.Context, ids []string) ([]domain.FaceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.FaceRecord
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) WithConnection(_ context.Context, fn func(repository.FaceStore) error) error {
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.released++
		s.mu.Unlock()
	}()
	return fn(s)
}

func (s *fakeStore) put(faceID, siteURL, imageURL string) {
	s.records[faceID] = domain.FaceRecord{FaceID: faceID, SourceSiteURL: siteURL, SourceImageURL: imageURL}
}

type fakeFetcher struct {
	mu      sync.Mutex
	images  map[string][]byte
	err     error
	calls   int
	arrived *sync.WaitGroup
}

func (f *fakeFetcher) Fetch(_ context.Context, imageURL string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.arrived != nil {
		f.arrived.Done()
		f.arrived.Wait()
	}
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.images[imageURL]
	if !ok {
		return nil, domain.ErrFetchFailed
	}
	return data, nil
}

type fakeDetector struct {
	mu     sync.Mutex
	result bool
	err    error
	calls  int
}

func (d *fakeDetector) HasFace(context.Context, string, []byte) (bool, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return d.result, d.err
}

type fakeIndexer struct {
	mu    sync.Mutex
	ids   []string
	err   error
	calls int
}

func (x *fakeIndexer) IndexFaces(context.Context, []byte) ([]string, error) {
	x.mu.Lock()
	x.calls++
	x.mu.Unlock()
	return x.ids, x.err
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
	puts    int
	events  *events
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStorage) Put(_ context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.add("put:" + key)
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.objects[key] = body
	s.types[key] = contentType
	return nil
}

func (s *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStorage) Bucket() string { return "faces-bucket" }

type fakeSender struct {
	batches  [][]string
	failAt   map[int]error
	rejectAt map[int][]int
}

func (f *fakeSender) SendBatch(_ context.Context, bodies []string) ([]queue.EntryFailure, error) {
	n := len(f.batches)
	f.batches = append(f.batches, bodies)
	if err := f.failAt[n]; err != nil {
		return nil, err
	}
	var failures []queue.EntryFailure
	for _, idx := range f.rejectAt[n] {
		failures = append(failures, queue.EntryFailure{Index: idx, Code: "Rejected"})
	}
	return failures, nil
}

type fakeSearcher struct {
	matches []domain.FaceMatch
	err     error
	calls   int
}

func (s *fakeSearcher) SearchFaces(context.Context, []byte) ([]domain.FaceMatch, error) {
	s.calls++
	return s.matches, s.err
}

var errBoom = errors.New("boom")
