package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"snapboard/internal/apperr"
	"snapboard/internal/models"
	"snapboard/internal/service"
)

type Server struct {
	cfg    *models.Config
	router *gin.Engine
	svc    *service.Service
	http   *http.Server
}

func NewServer(cfg *models.Config, svc *service.Service) *Server {
	r := gin.Default()
	r.Static("/uploads", cfg.StoragePath)

	s := &Server{cfg: cfg, router: r, svc: svc}

	api := r.Group("/api")
	{
		api.POST("/upload/file", s.handleUploadFile)
		api.POST("/upload/url", s.handleUploadURL)
		api.DELETE("/upload/:filename", s.handleDeleteByFilename)

		api.GET("/images", s.handleListImages)
		api.GET("/images/:id", s.handleGetImage)
		api.PUT("/images/:id", s.handleUpdateImage)
		api.DELETE("/images/:id", s.handleDeleteImage)
		api.GET("/images/:id/recommendations", s.handleRecommendations)

		api.POST("/boards/:id/images", s.handleSaveToBoard)
		api.DELETE("/boards/:id/images/:imageId", s.handleRemoveFromBoard)
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	s.http = &http.Server{Addr: cfg.ServerAddr, Handler: r}
	return s
}

func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// --- helpers ---

// actingUser reads the authenticated user id from the X-User-ID header, the
// boundary to the external identity provider.
func actingUser(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
	}
	return id, ok
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	var ce *apperr.ConflictError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Reason})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, gin.H{"error": ce.Reason})
	case errors.Is(err, apperr.ErrFetchFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": apperr.ErrFetchFailed.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// --- upload handlers ---

func (s *Server) handleUploadFile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'image' file field"})
		return
	}
	if file.Size > s.cfg.Upload.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is too large"})
		return
	}

	boardID, err := parseOptionalUUID(c.PostForm("boardId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid boardId"})
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		respondError(c, err)
		return
	}

	meta := models.UploadMeta{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Tags:        c.PostForm("tags"),
		BoardID:     boardID,
	}

	resp, err := s.svc.IngestFile(c.Request.Context(), data, file.Filename, meta, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

type uploadURLRequest struct {
	URL         string `json:"url" binding:"required,url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	BoardID     string `json:"boardId"`
}

func (s *Server) handleUploadURL(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	boardID, err := parseOptionalUUID(req.BoardID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid boardId"})
		return
	}

	meta := models.UploadMeta{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		BoardID:     boardID,
	}

	resp, err := s.svc.IngestFromURL(c.Request.Context(), req.URL, meta, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleDeleteByFilename(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteByFilename(c.Request.Context(), c.Param("filename"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- image handlers ---

func (s *Server) handleListImages(c *gin.Context) {
	viewerID, _ := actingUser(c)

	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	boardID, err := parseOptionalUUID(c.Query("boardId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid boardId"})
		return
	}
	ownerID, err := parseOptionalUUID(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	var tags []string
	if raw := c.Query("tags"); raw != "" {
		tags = models.ParseTags(raw)
	}

	q := models.ImageQuery{
		Page:     page,
		PageSize: pageSize,
		BoardID:  boardID,
		UserID:   ownerID,
		Query:    strings.TrimSpace(c.Query("query")),
		Tags:     tags,
		SortBy:   c.Query("sortBy"),
	}

	resp, err := s.svc.ListImages(c.Request.Context(), q, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetImage(c *gin.Context) {
	viewerID, _ := actingUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}
	resp, err := s.svc.GetAsset(c.Request.Context(), id, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleUpdateImage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}
	var upd models.ImageUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	resp, err := s.svc.UpdateAsset(c.Request.Context(), id, userID, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteImage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}
	if err := s.svc.DeleteAsset(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRecommendations(c *gin.Context) {
	viewerID, _ := actingUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	resp, err := s.svc.Recommend(c.Request.Context(), id, limit, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// --- board handlers ---

type saveImageRequest struct {
	ImageID string `json:"imageId" binding:"required,uuid"`
}

func (s *Server) handleSaveToBoard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid board id"})
		return
	}
	var req saveImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	imageID, _ := uuid.Parse(req.ImageID)

	ref, err := s.svc.SaveToBoard(c.Request.Context(), boardID, imageID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":        ref.ID,
		"boardId":   ref.BoardID,
		"imageId":   ref.ImageID,
		"createdAt": ref.CreatedAt,
	})
}

func (s *Server) handleRemoveFromBoard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid board id"})
		return
	}
	imageID, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}
	if err := s.svc.RemoveFromBoard(c.Request.Context(), boardID, imageID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
