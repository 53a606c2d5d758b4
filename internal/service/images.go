package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"snapboard/internal/apperr"
	"snapboard/internal/models"
)

const (
	defaultPageSize = 12
	maxPageSize     = 50
)

// ListImages returns one page of assets matching the query filters.
func (s *Service) ListImages(ctx context.Context, q models.ImageQuery, viewerID uuid.UUID) (*models.ImageListResponse, error) {
	const op = "service.ListImages"

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}

	images, total, err := s.store.ListImages(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cache := newRefCache()
	items := make([]models.AssetResponse, 0, len(images))
	for i := range images {
		asset, err := s.buildAsset(ctx, &images[i], viewerID, cache)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, asset)
	}

	totalPages := (total + q.PageSize - 1) / q.PageSize
	return &models.ImageListResponse{
		Items:      items,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
		HasMore:    q.Page < totalPages,
	}, nil
}

// GetAsset returns a single asset by id.
func (s *Service) GetAsset(ctx context.Context, id, viewerID uuid.UUID) (*models.AssetResponse, error) {
	img, err := s.store.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("image: %w", apperr.ErrNotFound)
	}
	asset, err := s.buildAsset(ctx, img, viewerID, newRefCache())
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// UpdateAsset applies the provided fields to an owned asset. Tags are
// normalized the same way ingestion normalizes them.
func (s *Service) UpdateAsset(ctx context.Context, id, userID uuid.UUID, upd models.ImageUpdate) (*models.AssetResponse, error) {
	const op = "service.UpdateAsset"

	img, err := s.store.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("image: %w", apperr.ErrNotFound)
	}
	if img.UserID != userID {
		return nil, fmt.Errorf("image belongs to another user: %w", apperr.ErrForbidden)
	}

	if upd.Title != nil {
		img.Title = *upd.Title
	}
	if upd.Description != nil {
		img.Description = *upd.Description
	}
	if upd.Tags != nil {
		tags := make([]string, 0, len(*upd.Tags))
		for _, t := range *upd.Tags {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				tags = append(tags, t)
			}
		}
		img.Tags = tags
	}

	if err := s.store.UpdateImage(ctx, img); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	asset, err := s.buildAsset(ctx, img, userID, newRefCache())
	if err != nil {
		return nil, err
	}
	return &asset, nil
}
