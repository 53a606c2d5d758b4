package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Image is the metadata record of one ingested picture. The raster files it
// points at (primary + three thumbnails) are derived from StoredFilename and
// live on disk; the DB row is the source of truth for which files are live.
type Image struct {
	ID             uuid.UUID  `db:"id"`
	StoredFilename string     `db:"stored_filename"`
	URL            string     `db:"url"`
	Title          string     `db:"title"`
	Description    string     `db:"description"`
	Tags           []string   `db:"tags"`
	Width          int        `db:"width"`
	Height         int        `db:"height"`
	ByteSize       int64      `db:"byte_size"`
	MimeType       string     `db:"mime_type"`
	UserID         uuid.UUID  `db:"user_id"`
	BoardID        *uuid.UUID `db:"board_id"`
	CreatedAt      time.Time  `db:"created_at"`
}

// User is the slice of the identity provider this service needs.
type User struct {
	ID       uuid.UUID `db:"id"`
	Username string    `db:"username"`
}

// Board is the slice of the collection store this service needs.
type Board struct {
	ID     uuid.UUID `db:"id"`
	Title  string    `db:"title"`
	UserID uuid.UUID `db:"user_id"`
}

// BoardImage records that a board references an image owned elsewhere,
// without copying it. Unique on (BoardID, ImageID).
type BoardImage struct {
	ID        uuid.UUID `db:"id"`
	BoardID   uuid.UUID `db:"board_id"`
	ImageID   uuid.UUID `db:"image_id"`
	CreatedAt time.Time `db:"created_at"`
}

// UploadMeta carries the optional text fields accompanying an upload.
type UploadMeta struct {
	Title       string
	Description string
	Tags        string // comma-separated, raw user input
	BoardID     *uuid.UUID
}

// ImageUpdate carries the optional fields of an asset update; nil means
// "leave unchanged".
type ImageUpdate struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

// ImageSort values accepted by the list endpoint.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortTitleAsc  = "title_asc"
	SortTitleDesc = "title_desc"
)

// ImageQuery is the filter/pagination input of the list endpoint.
type ImageQuery struct {
	Page     int
	PageSize int
	BoardID  *uuid.UUID
	UserID   *uuid.UUID
	Query    string
	Tags     []string
	SortBy   string
}

type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type BoardSummary struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type ThumbnailURLs struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// AssetResponse is the wire shape of an image returned by every endpoint.
type AssetResponse struct {
	ID          uuid.UUID     `json:"id"`
	URL         string        `json:"url"`
	Thumbnails  ThumbnailURLs `json:"thumbnails"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Tags        []string      `json:"tags"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	ByteSize    int64         `json:"size"`
	MimeType    string        `json:"mimeType"`
	IsSaved     bool          `json:"isSaved"`
	User        *UserSummary  `json:"user"`
	Board       *BoardSummary `json:"board"`
	CreatedAt   time.Time     `json:"createdAt"`
	OriginalURL string        `json:"originalUrl,omitempty"`
}

// RankedAsset is an AssetResponse annotated with its similarity score.
type RankedAsset struct {
	AssetResponse
	Score       int      `json:"score"`
	MatchedTags []string `json:"matchedTags"`
}

type SourceSummary struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Tags  []string  `json:"tags"`
}

type RecommendationResponse struct {
	Items        []RankedAsset `json:"items"`
	SourceImage  SourceSummary `json:"sourceImage"`
	TotalMatches int           `json:"totalMatches"`
}

type ImageListResponse struct {
	Items      []AssetResponse `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalItems int             `json:"totalItems"`
	TotalPages int             `json:"totalPages"`
	HasMore    bool            `json:"hasMore"`
}

// ParseTags splits a raw comma-separated tag string into lowercase trimmed
// tags, dropping empties. Duplicates are kept as-is; input order is preserved.
func ParseTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.ToLower(strings.TrimSpace(p))
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
