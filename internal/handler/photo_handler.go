package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/snapselect/snapselect/internal/service"
	"github.com/snapselect/snapselect/pkg/logger"
	"github.com/snapselect/snapselect/pkg/response"
	"github.com/snapselect/snapselect/pkg/sanitize"
)

type PhotoHandler struct {
	photoSvc *service.PhotoService
}

func NewPhotoHandler(photoSvc *service.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoSvc: photoSvc}
}

// Upload handles POST /galleries/:id/photos with a multipart "photo" field.
func (h *PhotoHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return response.BadRequest(c, "photo file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "failed to read uploaded photo")
	}
	defer file.Close()

	photo, err := h.photoSvc.Upload(&service.UploadPhotoRequest{
		GalleryID:      c.Params("id"),
		PhotographerID: photographerID(c),
		Filename:       fileHeader.Filename,
		Data:           file,
		Size:           fileHeader.Size,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadsRestricted):
			RecordRestrictedUpload()
			return response.Forbidden(c, "uploads are currently restricted for this gallery")
		case errors.Is(err, service.ErrPhotoLimitReached):
			return response.Forbidden(c, "plan photo limit reached for this gallery")
		case errors.Is(err, service.ErrUnsupportedMediaType):
			return response.UnsupportedMediaType(c, "only image files are accepted")
		default:
			return galleryError(c, err, "failed to upload photo")
		}
	}

	RecordPhotoUpload(float64(photo.SizeBytes))

	return response.Created(c, photo)
}

// List handles GET /galleries/:id/photos.
func (h *PhotoHandler) List(c *fiber.Ctx) error {
	photos, err := h.photoSvc.ListByGallery(c.Params("id"), photographerID(c))
	if err != nil {
		return galleryError(c, err, "failed to list photos")
	}
	return response.Success(c, photos)
}

// Download handles GET /photos/:id/file for the owning photographer.
func (h *PhotoHandler) Download(c *fiber.Ctx) error {
	photo, err := h.photoSvc.GetOwned(c.Params("id"), photographerID(c))
	if err != nil {
		if errors.Is(err, service.ErrPhotoNotFound) {
			return response.NotFound(c, "photo not found")
		}
		return galleryError(c, err, "failed to load photo")
	}

	c.Set("Content-Type", photo.MimeType)
	c.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", sanitize.ForHeader(photo.Filename)))
	return c.SendFile(h.photoSvc.FilePath(photo))
}

// Delete handles DELETE /photos/:id.
func (h *PhotoHandler) Delete(c *fiber.Ctx) error {
	if err := h.photoSvc.Delete(c.Params("id"), photographerID(c)); err != nil {
		if errors.Is(err, service.ErrPhotoNotFound) {
			return response.NotFound(c, "photo not found")
		}
		return galleryError(c, err, "failed to delete photo")
	}

	logger.Info().Str("photo_id", c.Params("id")).Msg("Photo deleted")

	return response.Success(c, map[string]string{
		"message": "photo deleted",
	})
}
