// Package service implements the ingestion orchestrator, the similarity
// recommender and the board save/unsave operations on top of narrow
// collaborator interfaces.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"snapboard/internal/apperr"
	"snapboard/internal/fetcher"
	"snapboard/internal/models"
	"snapboard/internal/transcoder"
)

// Store is the slice of the metadata store the service depends on.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetBoard(ctx context.Context, id uuid.UUID) (*models.Board, error)

	CreateImage(ctx context.Context, img *models.Image) error
	GetImage(ctx context.Context, id uuid.UUID) (*models.Image, error)
	GetImageByFilename(ctx context.Context, filename string) (*models.Image, error)
	UpdateImage(ctx context.Context, img *models.Image) error
	DeleteImage(ctx context.Context, id uuid.UUID) error
	ListImages(ctx context.Context, q models.ImageQuery) ([]models.Image, int, error)
	FindCandidates(ctx context.Context, sourceID uuid.UUID, tags, titlePatterns []string) ([]models.Image, error)

	GetSavedReference(ctx context.Context, boardID, imageID uuid.UUID) (*models.BoardImage, error)
	CreateSavedReference(ctx context.Context, ref *models.BoardImage) error
	DeleteSavedReference(ctx context.Context, id uuid.UUID) error
	IsSavedByUser(ctx context.Context, imageID, userID uuid.UUID) (bool, error)
}

// Files is the raster file lifecycle: URL derivation and best-effort cleanup.
type Files interface {
	ImageURL(filename string) string
	Thumbnails(filename string) models.ThumbnailURLs
	Remove(filename string)
}

// Transcoder produces the stored raster set from raw upload bytes.
type Transcoder interface {
	Process(data []byte, originalName string) (*transcoder.Result, error)
}

// Fetcher retrieves remote image bytes within time/size bounds.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Remote, error)
}

// EventPublisher receives lifecycle notifications; implementations must be
// non-blocking and best-effort.
type EventPublisher interface {
	ImageCreated(img *models.Image)
	ImageDeleted(img *models.Image)
}

type Service struct {
	store  Store
	files  Files
	trans  Transcoder
	fetch  Fetcher
	events EventPublisher
	cfg    models.UploadConfig
}

func New(store Store, files Files, trans Transcoder, fetch Fetcher, events EventPublisher, cfg models.UploadConfig) *Service {
	return &Service{
		store:  store,
		files:  files,
		trans:  trans,
		fetch:  fetch,
		events: events,
		cfg:    cfg,
	}
}

// resolveOwnerAndBoard runs the ingestion preconditions: the acting user must
// exist and, when a board is targeted, it must exist and be owned by that
// user. Both checks happen before any bytes are fetched or transcoded.
func (s *Service) resolveOwnerAndBoard(ctx context.Context, userID uuid.UUID, boardID *uuid.UUID) (*models.User, *models.Board, error) {
	const op = "service.resolveOwnerAndBoard"

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if user == nil {
		return nil, nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
	}

	var board *models.Board
	if boardID != nil {
		board, err = s.store.GetBoard(ctx, *boardID)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if board == nil {
			return nil, nil, fmt.Errorf("board: %w", apperr.ErrNotFound)
		}
		if board.UserID != userID {
			return nil, nil, fmt.Errorf("board belongs to another user: %w", apperr.ErrForbidden)
		}
	}
	return user, board, nil
}

// refCache de-duplicates user/board lookups while building a response page.
type refCache struct {
	users  map[uuid.UUID]*models.User
	boards map[uuid.UUID]*models.Board
}

func newRefCache() *refCache {
	return &refCache{
		users:  make(map[uuid.UUID]*models.User),
		boards: make(map[uuid.UUID]*models.Board),
	}
}

func (s *Service) cachedUser(ctx context.Context, c *refCache, id uuid.UUID) (*models.User, error) {
	if u, ok := c.users[id]; ok {
		return u, nil
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	c.users[id] = u
	return u, nil
}

func (s *Service) cachedBoard(ctx context.Context, c *refCache, id uuid.UUID) (*models.Board, error) {
	if b, ok := c.boards[id]; ok {
		return b, nil
	}
	b, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	c.boards[id] = b
	return b, nil
}

// buildAsset maps an Image record to its wire shape, including the viewer's
// isSaved personalization flag. viewerID may be uuid.Nil for anonymous reads.
func (s *Service) buildAsset(ctx context.Context, img *models.Image, viewerID uuid.UUID, c *refCache) (models.AssetResponse, error) {
	const op = "service.buildAsset"

	resp := models.AssetResponse{
		ID:          img.ID,
		URL:         img.URL,
		Thumbnails:  s.files.Thumbnails(img.StoredFilename),
		Title:       img.Title,
		Description: img.Description,
		Tags:        img.Tags,
		Width:       img.Width,
		Height:      img.Height,
		ByteSize:    img.ByteSize,
		MimeType:    img.MimeType,
		CreatedAt:   img.CreatedAt,
	}

	user, err := s.cachedUser(ctx, c, img.UserID)
	if err != nil {
		return resp, fmt.Errorf("%s: %w", op, err)
	}
	if user != nil {
		resp.User = &models.UserSummary{ID: user.ID, Username: user.Username}
	}

	if img.BoardID != nil {
		board, err := s.cachedBoard(ctx, c, *img.BoardID)
		if err != nil {
			return resp, fmt.Errorf("%s: %w", op, err)
		}
		if board != nil {
			resp.Board = &models.BoardSummary{ID: board.ID, Title: board.Title}
		}
	}

	if viewerID != uuid.Nil {
		saved, err := s.store.IsSavedByUser(ctx, img.ID, viewerID)
		if err != nil {
			return resp, fmt.Errorf("%s: %w", op, err)
		}
		resp.IsSaved = saved
	}
	return resp, nil
}
