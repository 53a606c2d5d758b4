package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"snapboard/internal/apperr"
	"snapboard/internal/models"
)

// SaveToBoard attaches an existing asset to one of the caller's boards by
// creating a saved reference. Two distinct "already present" conflicts exist:
// the asset may already be saved to the board, or it may have been uploaded
// directly to that board in the first place. Both are 409s but the messages
// differ so clients can tell them apart.
func (s *Service) SaveToBoard(ctx context.Context, boardID, imageID, userID uuid.UUID) (*models.BoardImage, error) {
	const op = "service.SaveToBoard"

	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if board == nil {
		return nil, fmt.Errorf("board: %w", apperr.ErrNotFound)
	}
	if board.UserID != userID {
		return nil, fmt.Errorf("board belongs to another user: %w", apperr.ErrForbidden)
	}

	img, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if img == nil {
		return nil, fmt.Errorf("image: %w", apperr.ErrNotFound)
	}

	existing, err := s.store.GetSavedReference(ctx, boardID, imageID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		return nil, apperr.Conflictf("image is already saved to this board")
	}
	if img.BoardID != nil && *img.BoardID == boardID {
		return nil, apperr.Conflictf("image was uploaded directly to this board")
	}

	ref := &models.BoardImage{
		ID:      uuid.New(),
		BoardID: boardID,
		ImageID: imageID,
	}
	if err := s.store.CreateSavedReference(ctx, ref); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ref, nil
}

// RemoveFromBoard undoes a save. If a saved reference exists it is removed
// and the underlying asset is untouched; if the asset was instead uploaded
// directly to this board, the asset itself is deleted outright. When both
// could apply the saved reference wins, since that is the milder operation.
func (s *Service) RemoveFromBoard(ctx context.Context, boardID, imageID, userID uuid.UUID) error {
	const op = "service.RemoveFromBoard"

	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if board == nil {
		return fmt.Errorf("board: %w", apperr.ErrNotFound)
	}
	if board.UserID != userID {
		return fmt.Errorf("board belongs to another user: %w", apperr.ErrForbidden)
	}

	ref, err := s.store.GetSavedReference(ctx, boardID, imageID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ref != nil {
		if err := s.store.DeleteSavedReference(ctx, ref.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	img, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if img == nil || img.BoardID == nil || *img.BoardID != boardID {
		return fmt.Errorf("image is not on this board: %w", apperr.ErrNotFound)
	}
	return s.deleteImage(ctx, img, userID)
}
