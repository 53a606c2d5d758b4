// Package filestore owns the on-disk layout of raster files: the primary
// image directory and the three thumbnail directories, all keyed by the
// generated stored filename. No file is modified in place after creation.
package filestore

import (
	"log/slog"
	"os"
	"path/filepath"

	"snapboard/internal/models"
)

const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
)

// Sizes lists the thumbnail variants in ascending order.
var Sizes = []string{SizeSmall, SizeMedium, SizeLarge}

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

// EnsureDirectories creates the images/ and thumbnails/{small,medium,large}/
// roots if they do not exist yet.
func (s *Store) EnsureDirectories() error {
	dirs := []string{filepath.Join(s.root, "images")}
	for _, size := range Sizes {
		dirs = append(dirs, filepath.Join(s.root, "thumbnails", size))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ImagePath(filename string) string {
	return filepath.Join(s.root, "images", filename)
}

func (s *Store) ThumbnailPath(size, filename string) string {
	return filepath.Join(s.root, "thumbnails", size, filename)
}

// ImageURL returns the public URL of the primary file.
func (s *Store) ImageURL(filename string) string {
	return "/uploads/images/" + filename
}

func (s *Store) ThumbnailURL(size, filename string) string {
	return "/uploads/thumbnails/" + size + "/" + filename
}

// Thumbnails returns the public URLs of all three variants of filename.
func (s *Store) Thumbnails(filename string) models.ThumbnailURLs {
	return models.ThumbnailURLs{
		Small:  s.ThumbnailURL(SizeSmall, filename),
		Medium: s.ThumbnailURL(SizeMedium, filename),
		Large:  s.ThumbnailURL(SizeLarge, filename),
	}
}

// Remove deletes the primary file and all thumbnail variants of filename.
// Each deletion is independently best-effort: a missing file is not an error
// and any other failure is logged but never raised, so record deletion can
// never be blocked by a half-gone set of files.
func (s *Store) Remove(filename string) {
	paths := []string{s.ImagePath(filename)}
	for _, size := range Sizes {
		paths = append(paths, s.ThumbnailPath(size, filename))
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove raster file", "path", p, "error", err)
		}
	}
}
