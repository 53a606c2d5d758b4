package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"snapboard/internal/fetcher"
	"snapboard/internal/models"
	"snapboard/internal/transcoder"
)

// --- in-memory fakes for the collaborator interfaces ---

type fakeStore struct {
	users  map[uuid.UUID]*models.User
	boards map[uuid.UUID]*models.Board
	images map[uuid.UUID]*models.Image
	refs   map[uuid.UUID]*models.BoardImage

	createImageErr   error
	candidates       []models.Image
	candidatesCalled bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  map[uuid.UUID]*models.User{},
		boards: map[uuid.UUID]*models.Board{},
		images: map[uuid.UUID]*models.Image{},
		refs:   map[uuid.UUID]*models.BoardImage{},
	}
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) GetBoard(_ context.Context, id uuid.UUID) (*models.Board, error) {
	return f.boards[id], nil
}

func (f *fakeStore) CreateImage(_ context.Context, img *models.Image) error {
	if f.createImageErr != nil {
		return f.createImageErr
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now()
	}
	cp := *img
	f.images[img.ID] = &cp
	return nil
}

func (f *fakeStore) GetImage(_ context.Context, id uuid.UUID) (*models.Image, error) {
	return f.images[id], nil
}

func (f *fakeStore) GetImageByFilename(_ context.Context, filename string) (*models.Image, error) {
	for _, img := range f.images {
		if img.StoredFilename == filename {
			return img, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateImage(_ context.Context, img *models.Image) error {
	cp := *img
	f.images[img.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteImage(_ context.Context, id uuid.UUID) error {
	delete(f.images, id)
	return nil
}

func (f *fakeStore) ListImages(_ context.Context, q models.ImageQuery) ([]models.Image, int, error) {
	all := []models.Image{}
	for _, img := range f.images {
		all = append(all, *img)
	}
	return all, len(all), nil
}

func (f *fakeStore) FindCandidates(_ context.Context, sourceID uuid.UUID, tags, titlePatterns []string) ([]models.Image, error) {
	f.candidatesCalled = true
	return f.candidates, nil
}

func (f *fakeStore) GetSavedReference(_ context.Context, boardID, imageID uuid.UUID) (*models.BoardImage, error) {
	for _, ref := range f.refs {
		if ref.BoardID == boardID && ref.ImageID == imageID {
			return ref, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateSavedReference(_ context.Context, ref *models.BoardImage) error {
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now()
	}
	cp := *ref
	f.refs[ref.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteSavedReference(_ context.Context, id uuid.UUID) error {
	delete(f.refs, id)
	return nil
}

func (f *fakeStore) IsSavedByUser(_ context.Context, imageID, userID uuid.UUID) (bool, error) {
	for _, ref := range f.refs {
		if ref.ImageID != imageID {
			continue
		}
		if b := f.boards[ref.BoardID]; b != nil && b.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeFiles struct {
	removed []string
}

func (f *fakeFiles) ImageURL(filename string) string {
	return "/uploads/images/" + filename
}

func (f *fakeFiles) Thumbnails(filename string) models.ThumbnailURLs {
	return models.ThumbnailURLs{
		Small:  "/uploads/thumbnails/small/" + filename,
		Medium: "/uploads/thumbnails/medium/" + filename,
		Large:  "/uploads/thumbnails/large/" + filename,
	}
}

func (f *fakeFiles) Remove(filename string) {
	f.removed = append(f.removed, filename)
}

type fakeTranscoder struct {
	calls  int
	result *transcoder.Result
	err    error
}

func (f *fakeTranscoder) Process(data []byte, originalName string) (*transcoder.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &transcoder.Result{
		StoredFilename: "1700000000000-deadbeefcafebabe.jpg",
		URL:            "/uploads/images/1700000000000-deadbeefcafebabe.jpg",
		Thumbnails: models.ThumbnailURLs{
			Small:  "/uploads/thumbnails/small/1700000000000-deadbeefcafebabe.jpg",
			Medium: "/uploads/thumbnails/medium/1700000000000-deadbeefcafebabe.jpg",
			Large:  "/uploads/thumbnails/large/1700000000000-deadbeefcafebabe.jpg",
		},
		Width:    800,
		Height:   600,
		ByteSize: 12345,
		MimeType: "image/jpeg",
	}, nil
}

type fakeFetcher struct {
	remote *fetcher.Remote
	err    error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Remote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.remote, nil
}

type fakeEvents struct {
	created []uuid.UUID
	deleted []uuid.UUID
}

func (f *fakeEvents) ImageCreated(img *models.Image) { f.created = append(f.created, img.ID) }
func (f *fakeEvents) ImageDeleted(img *models.Image) { f.deleted = append(f.deleted, img.ID) }

// --- shared fixture ---

type fixture struct {
	svc    *Service
	store  *fakeStore
	files  *fakeFiles
	trans  *fakeTranscoder
	fetch  *fakeFetcher
	events *fakeEvents

	owner *models.User
	board *models.Board
}

func newFixture() *fixture {
	store := newFakeStore()
	files := &fakeFiles{}
	trans := &fakeTranscoder{}
	fetch := &fakeFetcher{}
	evs := &fakeEvents{}

	owner := &models.User{ID: uuid.New(), Username: "alice"}
	board := &models.Board{ID: uuid.New(), Title: "inspiration", UserID: owner.ID}
	store.users[owner.ID] = owner
	store.boards[board.ID] = board

	cfg := models.UploadConfig{
		MaxFileSize:       10 << 20,
		AllowedMimeTypes:  []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
		MaxImageDimension: 2560,
		Quality:           85,
	}

	return &fixture{
		svc:    New(store, files, trans, fetch, evs, cfg),
		store:  store,
		files:  files,
		trans:  trans,
		fetch:  fetch,
		events: evs,
		owner:  owner,
		board:  board,
	}
}

func (f *fixture) addImage(ownerID uuid.UUID, boardID *uuid.UUID, title string, tags []string, createdAt time.Time) *models.Image {
	img := &models.Image{
		ID:             uuid.New(),
		StoredFilename: uuid.NewString() + ".jpg",
		URL:            "/uploads/images/" + uuid.NewString() + ".jpg",
		Title:          title,
		Tags:           tags,
		UserID:         ownerID,
		BoardID:        boardID,
		CreatedAt:      createdAt,
	}
	f.store.images[img.ID] = img
	return img
}

// timeStamp returns a fixed instant offset by n minutes, for deterministic
// ordering assertions.
func timeStamp(n int) time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Minute)
}

var errBoom = errors.New("boom")
