package events

import (
	"encoding/json"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-chapter/backend/internal/middleware"
	"github.com/nexus-chapter/backend/internal/models"
	"github.com/nexus-chapter/backend/pkg/response"
	"github.com/nexus-chapter/backend/pkg/storage"
)

// EventRequest is the body for creating or updating an event.
type EventRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	EventDate   string              `json:"event_date"` // YYYY-MM-DD
	EventTime   string              `json:"event_time"`
	Venue       string              `json:"venue"`
	PosterURL   string              `json:"poster_url"`
	MediaURLs   []string            `json:"media_urls"`
	Agenda      []models.AgendaItem `json:"agenda"`
	Speakers    []models.Speaker    `json:"speakers"`
}

func (req *EventRequest) apply(e *models.Event) error {
	e.Title = req.Title
	e.Description = req.Description
	e.Category = req.Category
	e.EventTime = req.EventTime
	e.Venue = req.Venue
	e.PosterURL = req.PosterURL
	e.MediaURLs = req.MediaURLs
	if req.EventDate != "" {
		d, err := time.Parse("2006-01-02", req.EventDate)
		if err != nil {
			return errors.New("event_date must be YYYY-MM-DD")
		}
		e.EventDate = &d
	} else {
		e.EventDate = nil
	}
	if len(req.Agenda) > 0 {
		raw, err := json.Marshal(req.Agenda)
		if err != nil {
			return errors.New("invalid agenda")
		}
		e.Agenda = raw
	}
	if len(req.Speakers) > 0 {
		raw, err := json.Marshal(req.Speakers)
		if err != nil {
			return errors.New("invalid speakers")
		}
		e.Speakers = raw
	}
	return nil
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo      *Repository
	lifecycle *Lifecycle
	s3        *storage.S3
	logger    *zap.Logger
}

// NewHandler creates an events handler. s3 may be nil when media storage is
// not configured; media uploads are then rejected.
func NewHandler(repo *Repository, lifecycle *Lifecycle, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, lifecycle: lifecycle, s3: s3, logger: logger}
}

// List handles GET /events. Overdue soft-deletions are reclaimed before the
// response is computed, so expiry enforcement rides on normal read traffic.
func (h *Handler) List(c *gin.Context) {
	if _, err := h.lifecycle.Reclaim(c.Request.Context()); err != nil {
		// Reclamation trouble should not hide the listing itself.
		h.logger.Error("reclaim failed", zap.Error(err))
	}
	list, err := h.repo.ListActive(c.Request.Context(), time.Now())
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// Create handles POST /events (upload capability).
func (h *Handler) Create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := &models.Event{}
	if err := req.apply(e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if idVal, ok := c.Get(middleware.ContextUserID); ok {
		if userID, ok := idVal.(uuid.UUID); ok {
			e.CreatedBy = &userID
		}
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// Update handles PATCH /events/:id (upload capability).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := req.apply(e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("update event failed", zap.Error(err))
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, e)
}

// ScheduleDelete handles DELETE /events/:id: soft delete with a grace period.
func (h *Handler) ScheduleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	at, err := h.lifecycle.ScheduleDeletion(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("schedule deletion failed", zap.Error(err))
		response.Internal(c, "failed to schedule deletion")
		return
	}
	response.OK(c, gin.H{"id": id, "delete_scheduled_at": at})
}

// CancelDelete handles PATCH /events/:id/cancel-delete.
func (h *Handler) CancelDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.lifecycle.CancelScheduledDeletion(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("cancel deletion failed", zap.Error(err))
		response.Internal(c, "failed to cancel deletion")
		return
	}
	response.OK(c, gin.H{"id": id, "delete_scheduled_at": nil})
}

// ForceDelete handles DELETE /events/:id/force (force-delete capability).
func (h *Handler) ForceDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.lifecycle.ForceDelete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("force delete failed", zap.Error(err))
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// UploadMedia handles POST /events/:id/media (upload capability): multipart
// image upload to the media bucket, appended to the event's media list.
func (h *Handler) UploadMedia(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "media storage not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file required")
		return
	}
	if fileHeader.Size > storage.MaxMediaFileSize {
		response.BadRequest(c, "file too large (max 10MB)")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateMediaFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read file")
		return
	}
	defer file.Close()

	key := storage.EventMediaKey(id.String(), uuid.New().String()+strings.ToLower(path.Ext(fileHeader.Filename)))
	url, err := h.s3.Upload(c.Request.Context(), key, storage.ContentTypeForFilename(fileHeader.Filename), file, fileHeader.Size)
	if err != nil {
		h.logger.Error("media upload failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to upload media")
		return
	}

	e.MediaURLs = append(e.MediaURLs, url)
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		h.logger.Error("attach media failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to attach media")
		return
	}
	response.OK(c, gin.H{"url": url})
}
