package repository

import (
	"context"
	"errors"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/timmy/facefinder/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// FaceStore is the persistence surface used by intake and search.
type FaceStore interface {
	// Insert stores rec. It reports false, without error, when the face ID already exists.
	Insert(ctx context.Context, rec *domain.FaceRecord) (bool, error)
	// ExistsByImageAndSite reports whether imageURL was already indexed for a site under siteOrigin.
	ExistsByImageAndSite(ctx context.Context, imageURL, siteOrigin string) (bool, error)
	// FindByFaceIDs returns the records for the given IDs; unknown IDs are skipped.
	FindByFaceIDs(ctx context.Context, faceIDs []string) ([]domain.FaceRecord, error)
	// WithConnection runs fn against a store pinned to one pooled connection.
	WithConnection(ctx context.Context, fn func(FaceStore) error) error
}

// FaceRepository is the gorm-backed FaceStore.
type FaceRepository struct {
	db *gorm.DB
}

// NewFaceRepository creates a new FaceRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *FaceRepository: repository instance bound to db.
func NewFaceRepository(db *gorm.DB) *FaceRepository {
	return &FaceRepository{db: db}
}

// Insert creates a face record, treating a duplicate face ID as success.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: face record to persist.
//
// Returns:
//   - bool: true if a row was written, false if the face ID was already stored.
//   - error: non-nil for any failure other than a duplicate key.
func (r *FaceRepository) Insert(ctx context.Context, rec *domain.FaceRecord) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExistsByImageAndSite checks whether an image is already indexed for a site origin.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageURL: exact image URL.
//   - siteOrigin: scheme://hostname the stored site URL must start with.
//
// Returns:
//   - bool: true if at least one record matches.
//   - error: non-nil if the lookup fails.
func (r *FaceRepository) ExistsByImageAndSite(ctx context.Context, imageURL, siteOrigin string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.FaceRecord{}).
		Where("source_image_url = ? AND source_site_url LIKE ? ESCAPE '!'", imageURL, escapeLike(siteOrigin)+"%").
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByFaceIDs loads the records for faceIDs in one query.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - faceIDs: face identifiers returned by the recognition service.
//
// Returns:
//   - []domain.FaceRecord: matching records in unspecified order.
//   - error: non-nil if the query fails.
func (r *FaceRepository) FindByFaceIDs(ctx context.Context, faceIDs []string) ([]domain.FaceRecord, error) {
	if len(faceIDs) == 0 {
		return nil, nil
	}
	var records []domain.FaceRecord
	if err := r.db.WithContext(ctx).Where("face_id IN ?", faceIDs).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// WithConnection checks one connection out of the pool for the duration of fn.
// The connection goes back to the pool on every return path, including panics.
func (r *FaceRepository) WithConnection(ctx context.Context, fn func(FaceStore) error) error {
	return r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return fn(&FaceRepository{db: conn})
	})
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldrv.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
