// Package transcoder turns uploaded bytes into the normalized primary raster
// plus the three thumbnail variants, all written under a freshly generated
// collision-resistant filename.
package transcoder

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"snapboard/internal/apperr"
	"snapboard/internal/filestore"
	"snapboard/internal/models"
)

// Result describes the stored raster set. Width/Height/ByteSize are measured
// from the written primary file, not from the upload.
type Result struct {
	StoredFilename string
	URL            string
	Thumbnails     models.ThumbnailURLs
	Width          int
	Height         int
	ByteSize       int64
	MimeType       string
}

type Transcoder struct {
	files *filestore.Store
	cfg   models.UploadConfig
}

func New(files *filestore.Store, cfg models.UploadConfig) *Transcoder {
	return &Transcoder{files: files, cfg: cfg}
}

const (
	storedExt      = ".jpg"
	storedMimeType = "image/jpeg"
)

// Process decodes data, downscales it if the long edge exceeds the configured
// maximum, re-encodes it as the primary file and derives the three thumbnails.
// The stored set is always JPEG at the configured quality regardless of the
// upload format, so the recorded mime type matches the bytes on disk. Any
// failure removes the files written so far; no partial set is ever left
// on disk.
func (t *Transcoder) Process(data []byte, originalName string) (*Result, error) {
	const op = "transcoder.Process"

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validationf("unsupported or corrupt image: %v", err)
	}

	filename, err := generateFilename(storedExt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Never upscale; Fit keeps aspect ratio and only shrinks.
	primary := src
	bounds := src.Bounds()
	if bounds.Dx() > t.cfg.MaxImageDimension || bounds.Dy() > t.cfg.MaxImageDimension {
		primary = imaging.Fit(src, t.cfg.MaxImageDimension, t.cfg.MaxImageDimension, imaging.Lanczos)
	}

	primaryPath := t.files.ImagePath(filename)
	if err := imaging.Save(primary, primaryPath, imaging.JPEGQuality(t.cfg.Quality)); err != nil {
		return nil, fmt.Errorf("%s: save primary: %w", op, err)
	}

	if err := t.saveThumbnails(primary, filename); err != nil {
		t.files.Remove(filename)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info, err := os.Stat(primaryPath)
	if err != nil {
		t.files.Remove(filename)
		return nil, fmt.Errorf("%s: stat primary: %w", op, err)
	}

	pb := primary.Bounds()
	return &Result{
		StoredFilename: filename,
		URL:            t.files.ImageURL(filename),
		Thumbnails: models.ThumbnailURLs{
			Small:  t.files.ThumbnailURL(filestore.SizeSmall, filename),
			Medium: t.files.ThumbnailURL(filestore.SizeMedium, filename),
			Large:  t.files.ThumbnailURL(filestore.SizeLarge, filename),
		},
		Width:    pb.Dx(),
		Height:   pb.Dy(),
		ByteSize: info.Size(),
		MimeType: storedMimeType,
	}, nil
}

func (t *Transcoder) saveThumbnails(primary image.Image, filename string) error {
	// Small is a centered cover-crop: always exactly the configured
	// dimensions. Medium and large fit inside their box without upscaling.
	small := imaging.Fill(primary, t.cfg.ThumbnailSmall.Width, t.cfg.ThumbnailSmall.Height, imaging.Center, imaging.Lanczos)
	if err := imaging.Save(small, t.files.ThumbnailPath(filestore.SizeSmall, filename), imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("save small thumbnail: %w", err)
	}

	medium := imaging.Fit(primary, t.cfg.ThumbnailMedium.Width, t.cfg.ThumbnailMedium.Height, imaging.Lanczos)
	if err := imaging.Save(medium, t.files.ThumbnailPath(filestore.SizeMedium, filename), imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("save medium thumbnail: %w", err)
	}

	large := imaging.Fit(primary, t.cfg.ThumbnailLarge.Width, t.cfg.ThumbnailLarge.Height, imaging.Lanczos)
	if err := imaging.Save(large, t.files.ThumbnailPath(filestore.SizeLarge, filename), imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("save large thumbnail: %w", err)
	}
	return nil
}

// generateFilename builds "<unix-millis>-<16 hex chars><ext>". Timestamp plus
// 8 random bytes makes collisions practically impossible without any
// coordination between concurrent uploads.
func generateFilename(ext string) (string, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate filename: %w", err)
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(suffix), ext), nil
}
