package domain

import "time"

// Column widths of the URL fields, in characters. Keep in sync with the gorm tags.
const (
	MaxImageURLLength = 768
	MaxSiteURLLength  = 2048
)

// FaceRecord associates one indexed face with the image and site it was found on
// and with the stored copy of that image. An image with N faces yields N records
// sharing the storage fields.
type FaceRecord struct {
	FaceID         string    `gorm:"column:face_id;type:varchar(64);primaryKey" json:"face_id"`
	SourceImageURL string    `gorm:"column:source_image_url;type:varchar(768);not null;index:idx_faces_source_image" json:"image-url"`
	SourceSiteURL  string    `gorm:"column:source_site_url;type:varchar(2048);not null" json:"site-url"`
	StorageKey     string    `gorm:"column:s3_name;type:text;not null" json:"-"`
	StorageBucket  string    `gorm:"column:s3_bucket;type:varchar(255);not null" json:"-"`
	CreatedAt      time.Time `gorm:"column:created_date;autoCreateTime" json:"-"`
}

// TableName returns the database table name for FaceRecord.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (FaceRecord) TableName() string {
	return "faces"
}

// FaceSource is a site/image pair returned by search.
type FaceSource struct {
	ImageURL string `json:"image-url"`
	SiteURL  string `json:"site-url"`
}

// FaceMatch is a face returned by a similarity search.
type FaceMatch struct {
	FaceID     string
	Similarity float32
}
