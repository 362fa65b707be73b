package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/timmy/facefinder/internal/config"
	"github.com/timmy/facefinder/internal/domain"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *FaceRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "faces.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		AutoMigrate:  true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewFaceRepository(db)
}

func record(faceID, siteURL, imageURL string) *domain.FaceRecord {
	c := domain.Candidate{SiteURL: siteURL, ImageURL: imageURL}
	return &domain.FaceRecord{
		FaceID:         faceID,
		SourceImageURL: imageURL,
		SourceSiteURL:  siteURL,
		StorageKey:     c.StorageKey(),
		StorageBucket:  "faces",
	}
}

func TestFaceRepositoryInsertIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, record("f1", "https://a.com/p", "https://a.com/i.jpg"))
	if err != nil || !inserted {
		t.Fatalf("first insert = %v, %v", inserted, err)
	}

	inserted, err = repo.Insert(ctx, record("f1", "https://b.org/q", "https://b.org/j.jpg"))
	if err != nil {
		t.Fatalf("duplicate insert returned error: %v", err)
	}
	if inserted {
		t.Fatal("duplicate insert reported a new row")
	}

	got, err := repo.FindByFaceIDs(ctx, []string{"f1"})
	if err != nil {
		t.Fatalf("FindByFaceIDs: %v", err)
	}
	if len(got) != 1 || got[0].SourceSiteURL != "https://a.com/p" {
		t.Fatalf("stored record changed by duplicate insert: %+v", got)
	}
}

func TestFaceRepositoryConcurrentDuplicateInsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.Insert(ctx, record("same", "https://a.com/p", "https://a.com/i.jpg"))
			errs[i] = err
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("writer %d: %v", i, err)
		}
	}
	if created != 1 {
		t.Fatalf("created = %d, want exactly 1", created)
	}
}

func TestFaceRepositoryExistsByImageAndSite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, record("f1", "https://a.com/page/1", "https://img.x/1.jpg")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := repo.Insert(ctx, record("f2", "https://we_b.com/", "https://img.x/2.jpg")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	tests := []struct {
		name     string
		imageURL string
		origin   string
		want     bool
	}{
		{"same image other page of same site", "https://img.x/1.jpg", "https://a.com", true},
		{"same image other site", "https://img.x/1.jpg", "https://b.com", false},
		{"other image same site", "https://img.x/9.jpg", "https://a.com", false},
		{"scheme matters", "https://img.x/1.jpg", "http://a.com", false},
		{"underscore is literal", "https://img.x/2.jpg", "https://we_b.com", true},
		{"underscore is not a wildcard", "https://img.x/2.jpg", "https://weXb.com", false},
		{"percent is not a wildcard", "https://img.x/1.jpg", "https://%", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ExistsByImageAndSite(ctx, tt.imageURL, tt.origin)
			if err != nil {
				t.Fatalf("ExistsByImageAndSite: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExistsByImageAndSite(%q, %q) = %v, want %v", tt.imageURL, tt.origin, got, tt.want)
			}
		})
	}
}

func TestFaceRepositoryFindByFaceIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := repo.Insert(ctx, record(id, "https://s.com/"+id, "https://s.com/"+id+".png")); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}

	got, err := repo.FindByFaceIDs(ctx, []string{"c", "a", "missing"})
	if err != nil {
		t.Fatalf("FindByFaceIDs: %v", err)
	}
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.FaceID)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("ids = %v, want [a c]", ids)
	}

	none, err := repo.FindByFaceIDs(ctx, nil)
	if err != nil || len(none) != 0 {
		t.Fatalf("empty lookup = %v, %v", none, err)
	}
}

func TestFaceRepositoryWithConnectionReleases(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithConnection(ctx, func(s FaceStore) error {
		if _, err := s.Insert(ctx, record("x", "https://a.com", "https://a.com/x.jpg")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithConnection error = %v, want boom", err)
	}

	// With a pool of one, a leaked connection would block this call.
	exists, err := repo.ExistsByImageAndSite(ctx, "https://a.com/x.jpg", "https://a.com")
	if err != nil || !exists {
		t.Fatalf("after WithConnection: exists=%v err=%v", exists, err)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"mysql 1062", &mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"other mysql error", &mysqldrv.MySQLError{Number: 1146}, false},
		{"plain error", errors.New("nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateKey(tt.err); got != tt.want {
				t.Errorf("isDuplicateKey(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike("a_b%c!d"); got != "a!_b!%c!!d" {
		t.Fatalf("escapeLike = %q", got)
	}
}
