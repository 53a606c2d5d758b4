package transcoder

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapboard/internal/apperr"
	"snapboard/internal/filestore"
	"snapboard/internal/models"
)

func testConfig() models.UploadConfig {
	return models.UploadConfig{
		MaxFileSize:       10 << 20,
		AllowedMimeTypes:  []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
		MaxImageDimension: 200,
		Quality:           85,
		ThumbnailSmall:    models.ThumbnailSize{Width: 30, Height: 30},
		ThumbnailMedium:   models.ThumbnailSize{Width: 50, Height: 50},
		ThumbnailLarge:    models.ThumbnailSize{Width: 80, Height: 80},
	}
}

func newTestTranscoder(t *testing.T) (*Transcoder, *filestore.Store) {
	t.Helper()
	files := filestore.New(t.TempDir())
	require.NoError(t, files.EnsureDirectories())
	return New(files, testConfig()), files
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func savedDims(t *testing.T, path string) (int, int) {
	t.Helper()
	img, err := imaging.Open(path)
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestProcessWritesFullRasterSet(t *testing.T) {
	tr, files := newTestTranscoder(t)

	res, err := tr.Process(encodePNG(t, 100, 80), "photo.png")
	require.NoError(t, err)

	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 80, res.Height)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.True(t, strings.HasSuffix(res.StoredFilename, ".jpg"))
	assert.Equal(t, "/uploads/images/"+res.StoredFilename, res.URL)
	assert.Equal(t, "/uploads/thumbnails/small/"+res.StoredFilename, res.Thumbnails.Small)

	info, err := os.Stat(files.ImagePath(res.StoredFilename))
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.ByteSize)

	for _, size := range filestore.Sizes {
		_, err := os.Stat(files.ThumbnailPath(size, res.StoredFilename))
		assert.NoError(t, err, "missing %s thumbnail", size)
	}
}

func TestProcessDownscalesOversizedUploads(t *testing.T) {
	tr, files := newTestTranscoder(t)

	res, err := tr.Process(encodePNG(t, 300, 150), "wide.png")
	require.NoError(t, err)

	// long edge capped at 200, aspect ratio kept
	assert.Equal(t, 200, res.Width)
	assert.Equal(t, 100, res.Height)

	w, h := savedDims(t, files.ImagePath(res.StoredFilename))
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)
}

func TestProcessNeverUpscales(t *testing.T) {
	tr, files := newTestTranscoder(t)

	res, err := tr.Process(encodePNG(t, 40, 20), "tiny.png")
	require.NoError(t, err)

	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 20, res.Height)

	// medium and large fit inside their box but a smaller source stays as-is
	w, h := savedDims(t, files.ThumbnailPath(filestore.SizeMedium, res.StoredFilename))
	assert.Equal(t, 40, w)
	assert.Equal(t, 20, h)
	w, h = savedDims(t, files.ThumbnailPath(filestore.SizeLarge, res.StoredFilename))
	assert.Equal(t, 40, w)
	assert.Equal(t, 20, h)
}

func TestProcessSmallThumbnailIsExactCoverCrop(t *testing.T) {
	tr, files := newTestTranscoder(t)

	res, err := tr.Process(encodePNG(t, 90, 40), "banner.png")
	require.NoError(t, err)

	w, h := savedDims(t, files.ThumbnailPath(filestore.SizeSmall, res.StoredFilename))
	assert.Equal(t, 30, w)
	assert.Equal(t, 30, h)
}

func TestProcessAlwaysStoresJPEG(t *testing.T) {
	tr, files := newTestTranscoder(t)

	for _, name := range []string{"photo.png", "picture.webp", "animated.gif", "no-extension"} {
		res, err := tr.Process(encodePNG(t, 10, 10), name)
		require.NoError(t, err, name)

		assert.True(t, strings.HasSuffix(res.StoredFilename, ".jpg"), name)
		assert.Equal(t, "image/jpeg", res.MimeType, name)

		// the recorded mime type must match the bytes actually on disk
		fh, err := os.Open(files.ImagePath(res.StoredFilename))
		require.NoError(t, err)
		_, format, err := image.DecodeConfig(fh)
		fh.Close()
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format, name)
	}
}

func TestProcessRejectsCorruptInputWithoutLeavingFiles(t *testing.T) {
	tr, files := newTestTranscoder(t)

	_, err := tr.Process([]byte("this is not an image"), "broken.jpg")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	entries, err := os.ReadDir(files.ImagePath(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessGeneratesDistinctFilenames(t *testing.T) {
	tr, _ := newTestTranscoder(t)
	data := encodePNG(t, 10, 10)

	first, err := tr.Process(data, "same.png")
	require.NoError(t, err)
	second, err := tr.Process(data, "same.png")
	require.NoError(t, err)

	assert.NotEqual(t, first.StoredFilename, second.StoredFilename)
}

func TestGenerateFilenameShape(t *testing.T) {
	name, err := generateFilename(".jpg")
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(name, ".jpg"))
	parts := strings.SplitN(strings.TrimSuffix(name, ".jpg"), "-", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[1], 16, "expected 16 hex chars")
	assert.NotEmpty(t, parts[0])
}
