package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"snapboard/internal/models"
)

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

// --- collaborator lookups (identity provider / collection store) ---

// GetUser returns (nil, nil) when the user does not exist.
func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.GetUser"
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

// GetBoard returns (nil, nil) when the board does not exist.
func (s *Storage) GetBoard(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	const op = "storage.GetBoard"
	var b models.Board
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, user_id FROM boards WHERE id = $1`, id).Scan(&b.ID, &b.Title, &b.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &b, nil
}

// --- images ---

const imageColumns = `id, stored_filename, url, title, description, tags, width, height, byte_size, mime_type, user_id, board_id, created_at`

func scanImage(row pgx.Row) (*models.Image, error) {
	var img models.Image
	err := row.Scan(&img.ID, &img.StoredFilename, &img.URL, &img.Title, &img.Description,
		&img.Tags, &img.Width, &img.Height, &img.ByteSize, &img.MimeType,
		&img.UserID, &img.BoardID, &img.CreatedAt)
	if err != nil {
		return nil, err
	}
	if img.Tags == nil {
		img.Tags = []string{}
	}
	return &img, nil
}

func (s *Storage) CreateImage(ctx context.Context, img *models.Image) error {
	const op = "storage.CreateImage"
	err := s.pool.QueryRow(ctx,
		`INSERT INTO images (id, stored_filename, url, title, description, tags, width, height, byte_size, mime_type, user_id, board_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		img.ID, img.StoredFilename, img.URL, img.Title, img.Description, img.Tags,
		img.Width, img.Height, img.ByteSize, img.MimeType, img.UserID, img.BoardID).
		Scan(&img.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetImage returns (nil, nil) when no image has that id.
func (s *Storage) GetImage(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	const op = "storage.GetImage"
	img, err := scanImage(s.pool.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return img, nil
}

// GetImageByFilename returns (nil, nil) when no image has that stored filename.
func (s *Storage) GetImageByFilename(ctx context.Context, filename string) (*models.Image, error) {
	const op = "storage.GetImageByFilename"
	img, err := scanImage(s.pool.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE stored_filename = $1`, filename))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return img, nil
}

func (s *Storage) UpdateImage(ctx context.Context, img *models.Image) error {
	const op = "storage.UpdateImage"
	_, err := s.pool.Exec(ctx,
		`UPDATE images SET title = $2, description = $3, tags = $4 WHERE id = $1`,
		img.ID, img.Title, img.Description, img.Tags)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) DeleteImage(ctx context.Context, id uuid.UUID) error {
	const op = "storage.DeleteImage"
	_, err := s.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListImages applies the query filters, sorting and pagination and returns
// the page plus the total match count.
func (s *Storage) ListImages(ctx context.Context, q models.ImageQuery) ([]models.Image, int, error) {
	const op = "storage.ListImages"

	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.BoardID != nil {
		where = append(where, "board_id = "+arg(*q.BoardID))
	}
	if q.UserID != nil {
		where = append(where, "user_id = "+arg(*q.UserID))
	}
	if q.Query != "" {
		p := arg("%" + q.Query + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if len(q.Tags) > 0 {
		where = append(where, "tags && "+arg(q.Tags))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM images WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}

	order := "created_at DESC"
	switch q.SortBy {
	case models.SortOldest:
		order = "created_at ASC"
	case models.SortTitleAsc:
		order = "title ASC"
	case models.SortTitleDesc:
		order = "title DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM images WHERE %s ORDER BY %s LIMIT %s OFFSET %s`,
		imageColumns, cond, order, arg(q.PageSize), arg((q.Page-1)*q.PageSize))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: scan: %w", op, err)
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return images, total, nil
}

// FindCandidates returns every image other than sourceID whose tag set
// intersects tags or whose title matches any of the ILIKE patterns. This is
// the coarse superset filter of the recommender; precise scoring happens in
// the service layer.
func (s *Storage) FindCandidates(ctx context.Context, sourceID uuid.UUID, tags, titlePatterns []string) ([]models.Image, error) {
	const op = "storage.FindCandidates"

	rows, err := s.pool.Query(ctx,
		`SELECT `+imageColumns+` FROM images
		 WHERE id <> $1
		   AND ((cardinality($2::text[]) > 0 AND tags && $2)
		     OR (cardinality($3::text[]) > 0 AND title ILIKE ANY($3)))`,
		sourceID, tags, titlePatterns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	candidates := []models.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		candidates = append(candidates, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return candidates, nil
}

// --- saved references (board_images) ---

// GetSavedReference returns (nil, nil) when the (board, image) pair has no
// saved reference.
func (s *Storage) GetSavedReference(ctx context.Context, boardID, imageID uuid.UUID) (*models.BoardImage, error) {
	const op = "storage.GetSavedReference"
	var ref models.BoardImage
	err := s.pool.QueryRow(ctx,
		`SELECT id, board_id, image_id, created_at FROM board_images WHERE board_id = $1 AND image_id = $2`,
		boardID, imageID).Scan(&ref.ID, &ref.BoardID, &ref.ImageID, &ref.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ref, nil
}

func (s *Storage) CreateSavedReference(ctx context.Context, ref *models.BoardImage) error {
	const op = "storage.CreateSavedReference"
	err := s.pool.QueryRow(ctx,
		`INSERT INTO board_images (id, board_id, image_id) VALUES ($1, $2, $3) RETURNING created_at`,
		ref.ID, ref.BoardID, ref.ImageID).Scan(&ref.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) DeleteSavedReference(ctx context.Context, id uuid.UUID) error {
	const op = "storage.DeleteSavedReference"
	_, err := s.pool.Exec(ctx, `DELETE FROM board_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsSavedByUser reports whether imageID is saved to any board owned by userID.
func (s *Storage) IsSavedByUser(ctx context.Context, imageID, userID uuid.UUID) (bool, error) {
	const op = "storage.IsSavedByUser"
	var saved bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM board_images bi
		   JOIN boards b ON b.id = bi.board_id
		   WHERE bi.image_id = $1 AND b.user_id = $2
		 )`, imageID, userID).Scan(&saved)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}
