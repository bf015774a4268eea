package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/internal/policy"
	"github.com/snapselect/snapselect/internal/service"
	"github.com/snapselect/snapselect/pkg/logger"
	"github.com/snapselect/snapselect/pkg/response"
)

const maxGalleryNameLength = 120

type GalleryHandler struct {
	gallerySvc *service.GalleryService
}

func NewGalleryHandler(gallerySvc *service.GalleryService) *GalleryHandler {
	return &GalleryHandler{gallerySvc: gallerySvc}
}

type CreateGalleryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ShareGalleryRequest struct {
	ClientPassword *string `json:"client_password,omitempty"`
}

// GalleryResponse pairs a gallery with its current upload access so the
// dashboard can render restriction banners without a second request.
type GalleryResponse struct {
	Gallery      *models.Gallery     `json:"gallery"`
	UploadAccess policy.UploadAccess `json:"upload_access"`
}

type RevokeWarningResponse struct {
	Warning string `json:"warning"`
	Message string `json:"message"`
}

// Create handles POST /galleries.
func (h *GalleryHandler) Create(c *fiber.Ctx) error {
	var req CreateGalleryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return response.BadRequest(c, "gallery name is required")
	}
	if len(req.Name) > maxGalleryNameLength {
		return response.BadRequest(c, "gallery name is too long")
	}

	gallery, err := h.gallerySvc.Create(&service.CreateGalleryRequest{
		PhotographerID: photographerID(c),
		Name:           req.Name,
		Description:    strings.TrimSpace(req.Description),
	})
	if err != nil {
		logger.Error().Err(err).Msg("Create gallery failed")
		return response.InternalError(c, "failed to create gallery")
	}

	return response.Created(c, gallery)
}

// List handles GET /galleries.
func (h *GalleryHandler) List(c *fiber.Ctx) error {
	galleries, err := h.gallerySvc.List(photographerID(c))
	if err != nil {
		logger.Error().Err(err).Msg("List galleries failed")
		return response.InternalError(c, "failed to list galleries")
	}
	return response.Success(c, galleries)
}

// Get handles GET /galleries/:id.
func (h *GalleryHandler) Get(c *fiber.Ctx) error {
	gallery, access, err := h.gallerySvc.Get(c.Params("id"), photographerID(c))
	if err != nil {
		return galleryError(c, err, "failed to load gallery")
	}
	return response.Success(c, GalleryResponse{
		Gallery:      gallery,
		UploadAccess: access,
	})
}

// Delete handles DELETE /galleries/:id.
func (h *GalleryHandler) Delete(c *fiber.Ctx) error {
	if err := h.gallerySvc.Delete(c.Params("id"), photographerID(c)); err != nil {
		return galleryError(c, err, "failed to delete gallery")
	}
	return response.Success(c, map[string]string{
		"message": "gallery deleted",
	})
}

// Share handles POST /galleries/:id/share.
func (h *GalleryHandler) Share(c *fiber.Ctx) error {
	var req ShareGalleryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "invalid request body")
		}
	}

	if req.ClientPassword != nil && *req.ClientPassword != "" && !isValidPasswordLength(*req.ClientPassword) {
		return response.BadRequest(c, "client password must be between 8 and 128 characters")
	}

	gallery, err := h.gallerySvc.Share(c.Params("id"), photographerID(c), req.ClientPassword)
	if err != nil {
		if errors.Is(err, service.ErrGalleryAlreadyShared) {
			return response.Conflict(c, "gallery is already shared")
		}
		return galleryError(c, err, "failed to share gallery")
	}

	RecordGalleryShared()

	return response.Success(c, gallery)
}

// RevokeWarning handles GET /galleries/:id/revoke-warning. It returns the
// confirmation-dialog text without changing any state.
func (h *GalleryHandler) RevokeWarning(c *fiber.Ctx) error {
	kind, message, err := h.gallerySvc.RevokeWarning(c.Params("id"), photographerID(c))
	if err != nil {
		return galleryError(c, err, "failed to evaluate revoke warning")
	}
	return response.Success(c, RevokeWarningResponse{
		Warning: string(kind),
		Message: message,
	})
}

// Revoke handles POST /galleries/:id/revoke.
func (h *GalleryHandler) Revoke(c *fiber.Ctx) error {
	decision, err := h.gallerySvc.Revoke(c.Params("id"), photographerID(c))
	if err != nil {
		if errors.Is(err, service.ErrGalleryNotShared) {
			return response.Conflict(c, "gallery is not shared")
		}
		return galleryError(c, err, "failed to revoke gallery access")
	}

	RecordRevocation(string(decision.RestrictionType))

	return response.Success(c, decision)
}

// galleryError maps service-layer gallery errors onto HTTP statuses.
func galleryError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrGalleryNotFound):
		return response.NotFound(c, "gallery not found")
	case errors.Is(err, service.ErrNotGalleryOwner):
		return response.Forbidden(c, "not the gallery owner")
	default:
		logger.Error().Err(err).Msg(fallback)
		return response.InternalError(c, fallback)
	}
}
