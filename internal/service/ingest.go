package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"snapboard/internal/apperr"
	"snapboard/internal/models"
	"snapboard/internal/transcoder"
)

// IngestFile runs the full pipeline for an uploaded buffer: preconditions,
// transcoding, metadata persistence and response assembly.
func (s *Service) IngestFile(ctx context.Context, data []byte, originalName string, meta models.UploadMeta, userID uuid.UUID) (*models.AssetResponse, error) {
	user, board, err := s.resolveOwnerAndBoard(ctx, userID, meta.BoardID)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, apperr.Validationf("uploaded file is empty")
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, apperr.Validationf("image is too large: the limit is %dMB", s.cfg.MaxFileSize/(1<<20))
	}
	if sniffed := mimetype.Detect(data); !s.mimeAllowed(sniffed.String()) {
		return nil, apperr.Validationf("unsupported image format %q, allowed: %v", sniffed.String(), s.cfg.AllowedMimeTypes)
	}

	return s.ingest(ctx, data, originalName, meta, user, board)
}

// IngestFromURL is the URL variant: bytes come from the remote fetcher and
// the fetched content is re-validated by sniffing, because Content-Type
// headers can misreport. The response additionally carries the source URL.
func (s *Service) IngestFromURL(ctx context.Context, rawURL string, meta models.UploadMeta, userID uuid.UUID) (*models.AssetResponse, error) {
	user, board, err := s.resolveOwnerAndBoard(ctx, userID, meta.BoardID)
	if err != nil {
		return nil, err
	}

	remote, err := s.fetch.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	sniffed := mimetype.Detect(remote.Data)
	if !s.mimeAllowed(sniffed.String()) {
		return nil, apperr.Validationf("unsupported image format %q, allowed: %v", sniffed.String(), s.cfg.AllowedMimeTypes)
	}

	resp, err := s.ingest(ctx, remote.Data, remote.SuggestedFilename, meta, user, board)
	if err != nil {
		return nil, err
	}
	resp.OriginalURL = rawURL
	return resp, nil
}

// ingest is the shared tail of both paths. Files are written before the DB
// insert; if the insert fails the just-written rasters are removed again so
// a reported failure never leaves a live orphaned asset behind.
func (s *Service) ingest(ctx context.Context, data []byte, originalName string, meta models.UploadMeta, user *models.User, board *models.Board) (*models.AssetResponse, error) {
	const op = "service.ingest"

	res, err := s.trans.Process(data, originalName)
	if err != nil {
		return nil, err
	}

	img := &models.Image{
		ID:             uuid.New(),
		StoredFilename: res.StoredFilename,
		URL:            res.URL,
		Title:          meta.Title,
		Description:    meta.Description,
		Tags:           models.ParseTags(meta.Tags),
		Width:          res.Width,
		Height:         res.Height,
		ByteSize:       res.ByteSize,
		MimeType:       res.MimeType,
		UserID:         user.ID,
	}
	if board != nil {
		id := board.ID
		img.BoardID = &id
	}

	if err := s.store.CreateImage(ctx, img); err != nil {
		s.files.Remove(res.StoredFilename)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.events.ImageCreated(img)
	slog.Info("image ingested", "id", img.ID, "filename", img.StoredFilename, "user", user.ID)

	return s.assembleIngestResponse(img, res, user, board), nil
}

// assembleIngestResponse builds the response straight from the transcoder
// output; a freshly created asset is never saved anywhere yet.
func (s *Service) assembleIngestResponse(img *models.Image, res *transcoder.Result, user *models.User, board *models.Board) *models.AssetResponse {
	resp := &models.AssetResponse{
		ID:          img.ID,
		URL:         res.URL,
		Thumbnails:  res.Thumbnails,
		Title:       img.Title,
		Description: img.Description,
		Tags:        img.Tags,
		Width:       img.Width,
		Height:      img.Height,
		ByteSize:    img.ByteSize,
		MimeType:    img.MimeType,
		User:        &models.UserSummary{ID: user.ID, Username: user.Username},
		CreatedAt:   img.CreatedAt,
	}
	if board != nil {
		resp.Board = &models.BoardSummary{ID: board.ID, Title: board.Title}
	}
	return resp
}

func (s *Service) mimeAllowed(mime string) bool {
	for _, allowed := range s.cfg.AllowedMimeTypes {
		if mime == allowed {
			return true
		}
	}
	return false
}

// DeleteAsset removes the metadata record and afterwards the four raster
// files. File cleanup runs post-commit and is best-effort: a missing or
// stubborn file never blocks record deletion.
func (s *Service) DeleteAsset(ctx context.Context, assetID, userID uuid.UUID) error {
	img, err := s.store.GetImage(ctx, assetID)
	if err != nil {
		return err
	}
	return s.deleteImage(ctx, img, userID)
}

// DeleteByFilename is the same operation addressed by stored filename.
func (s *Service) DeleteByFilename(ctx context.Context, filename string, userID uuid.UUID) error {
	img, err := s.store.GetImageByFilename(ctx, filename)
	if err != nil {
		return err
	}
	return s.deleteImage(ctx, img, userID)
}

func (s *Service) deleteImage(ctx context.Context, img *models.Image, userID uuid.UUID) error {
	const op = "service.deleteImage"

	if img == nil {
		return fmt.Errorf("image: %w", apperr.ErrNotFound)
	}
	if img.UserID != userID {
		return fmt.Errorf("image belongs to another user: %w", apperr.ErrForbidden)
	}

	if err := s.store.DeleteImage(ctx, img.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.files.Remove(img.StoredFilename)
	s.events.ImageDeleted(img)
	slog.Info("image deleted", "id", img.ID, "filename", img.StoredFilename)
	return nil
}
