package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapboard/internal/apperr"
	"snapboard/internal/fetcher"
	"snapboard/internal/models"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestIngestFileStoresRecordAndPublishes(t *testing.T) {
	f := newFixture()

	meta := models.UploadMeta{
		Title:       "Sunset over the bay",
		Description: "golden hour",
		Tags:        "Sunset, sea ,,BAY",
		BoardID:     &f.board.ID,
	}
	resp, err := f.svc.IngestFile(context.Background(), pngBytes(t), "photo.png", meta, f.owner.ID)
	require.NoError(t, err)

	assert.Equal(t, "Sunset over the bay", resp.Title)
	assert.Equal(t, []string{"sunset", "sea", "bay"}, resp.Tags)
	assert.Equal(t, 800, resp.Width)
	assert.Equal(t, 600, resp.Height)
	assert.Equal(t, "image/jpeg", resp.MimeType)
	assert.False(t, resp.IsSaved)
	require.NotNil(t, resp.User)
	assert.Equal(t, f.owner.ID, resp.User.ID)
	require.NotNil(t, resp.Board)
	assert.Equal(t, f.board.ID, resp.Board.ID)

	stored, err := f.store.GetImage(context.Background(), resp.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, f.owner.ID, stored.UserID)
	require.NotNil(t, stored.BoardID)
	assert.Equal(t, f.board.ID, *stored.BoardID)

	assert.Equal(t, []uuid.UUID{resp.ID}, f.events.created)
	assert.Empty(t, f.files.removed)
}

func TestIngestFileRejectsUnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.IngestFile(context.Background(), []byte("raw"), "a.jpg", models.UploadMeta{}, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, f.trans.calls)
}

func TestIngestFileRejectsForeignBoardBeforeTranscoding(t *testing.T) {
	f := newFixture()
	other := &models.User{ID: uuid.New(), Username: "mallory"}
	f.store.users[other.ID] = other

	meta := models.UploadMeta{BoardID: &f.board.ID}
	_, err := f.svc.IngestFile(context.Background(), []byte("raw"), "a.jpg", meta, other.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Zero(t, f.trans.calls)
	assert.Empty(t, f.store.images)
}

func TestIngestFileRejectsEmptyAndOversized(t *testing.T) {
	f := newFixture()

	_, err := f.svc.IngestFile(context.Background(), nil, "a.jpg", models.UploadMeta{}, f.owner.ID)
	assert.True(t, apperr.IsValidation(err))

	big := make([]byte, f.svc.cfg.MaxFileSize+1)
	_, err = f.svc.IngestFile(context.Background(), big, "a.jpg", models.UploadMeta{}, f.owner.ID)
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, f.trans.calls)
}

func TestIngestFileSniffsContent(t *testing.T) {
	f := newFixture()

	// a BMP upload is outside the allowed set even with an allowed extension
	bmp := append([]byte("BM"), make([]byte, 64)...)
	_, err := f.svc.IngestFile(context.Background(), bmp, "innocent.jpg", models.UploadMeta{}, f.owner.ID)
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.IngestFile(context.Background(), []byte("plain text payload"), "notes.png", models.UploadMeta{}, f.owner.ID)
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, f.trans.calls)
}

func TestIngestFileCleansUpFilesWhenInsertFails(t *testing.T) {
	f := newFixture()
	f.store.createImageErr = errBoom

	_, err := f.svc.IngestFile(context.Background(), pngBytes(t), "a.jpg", models.UploadMeta{}, f.owner.ID)
	require.Error(t, err)

	assert.Equal(t, []string{"1700000000000-deadbeefcafebabe.jpg"}, f.files.removed)
	assert.Empty(t, f.events.created)
}

func TestIngestFromURLCarriesSourceURL(t *testing.T) {
	f := newFixture()
	f.fetch.remote = &fetcher.Remote{
		Data:              pngBytes(t),
		MimeType:          "image/png",
		SuggestedFilename: "remote.png",
	}

	resp, err := f.svc.IngestFromURL(context.Background(), "https://pics.example/remote.png", models.UploadMeta{Title: "remote"}, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://pics.example/remote.png", resp.OriginalURL)
	assert.Len(t, f.events.created, 1)
}

func TestIngestFromURLSniffsContent(t *testing.T) {
	f := newFixture()
	// header claims an image, the body is plain text
	f.fetch.remote = &fetcher.Remote{
		Data:              []byte("definitely not pixels"),
		MimeType:          "image/jpeg",
		SuggestedFilename: "fake.jpg",
	}

	_, err := f.svc.IngestFromURL(context.Background(), "https://pics.example/fake.jpg", models.UploadMeta{}, f.owner.ID)
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, f.trans.calls)
}

func TestIngestFromURLPropagatesFetchFailure(t *testing.T) {
	f := newFixture()
	f.fetch.err = apperr.ErrFetchFailed

	_, err := f.svc.IngestFromURL(context.Background(), "https://pics.example/gone.jpg", models.UploadMeta{}, f.owner.ID)
	assert.ErrorIs(t, err, apperr.ErrFetchFailed)
}

func TestDeleteAssetRemovesRecordFilesAndPublishes(t *testing.T) {
	f := newFixture()
	img := f.addImage(f.owner.ID, nil, "doomed", nil, timeStamp(0))

	require.NoError(t, f.svc.DeleteAsset(context.Background(), img.ID, f.owner.ID))

	assert.Empty(t, f.store.images)
	assert.Equal(t, []string{img.StoredFilename}, f.files.removed)
	assert.Equal(t, []uuid.UUID{img.ID}, f.events.deleted)
}

func TestDeleteAssetRequiresOwnership(t *testing.T) {
	f := newFixture()
	img := f.addImage(f.owner.ID, nil, "kept", nil, timeStamp(0))

	err := f.svc.DeleteAsset(context.Background(), img.ID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Len(t, f.store.images, 1)
	assert.Empty(t, f.files.removed)
}

func TestDeleteAssetUnknownIsNotFound(t *testing.T) {
	f := newFixture()

	err := f.svc.DeleteAsset(context.Background(), uuid.New(), f.owner.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteByFilename(t *testing.T) {
	f := newFixture()
	img := f.addImage(f.owner.ID, nil, "by-name", nil, timeStamp(0))

	require.NoError(t, f.svc.DeleteByFilename(context.Background(), img.StoredFilename, f.owner.ID))
	assert.Empty(t, f.store.images)

	err := f.svc.DeleteByFilename(context.Background(), img.StoredFilename, f.owner.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
