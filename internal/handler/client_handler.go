package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/internal/service"
	"github.com/snapselect/snapselect/pkg/logger"
	"github.com/snapselect/snapselect/pkg/response"
	"github.com/snapselect/snapselect/pkg/sanitize"
)

// galleryPasswordHeader carries the client gallery password on GET requests.
const galleryPasswordHeader = "X-Gallery-Password"

// ClientHandler serves the public share-token routes. No photographer
// session is involved; the share token plus the optional gallery password
// is the whole credential.
type ClientHandler struct {
	selectionSvc *service.SelectionService
	photoSvc     *service.PhotoService
}

func NewClientHandler(selectionSvc *service.SelectionService, photoSvc *service.PhotoService) *ClientHandler {
	return &ClientHandler{selectionSvc: selectionSvc, photoSvc: photoSvc}
}

type AccessGalleryRequest struct {
	Password *string `json:"password,omitempty"`
}

// ClientGalleryResponse hides photographer-only fields like restriction
// state from clients.
type ClientGalleryResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	PhotosCount int             `json:"photos_count"`
	Photos      []*models.Photo `json:"photos"`
}

type SubmitSelectionRequest struct {
	Password   *string `json:"password,omitempty"`
	PhotoID    string  `json:"photo_id"`
	ClientName string  `json:"client_name"`
	Rating     int     `json:"rating"`
	IsFavorite bool    `json:"is_favorite"`
	Comment    *string `json:"comment,omitempty"`
}

// AccessGallery handles POST /client/galleries/:token/access.
func (h *ClientHandler) AccessGallery(c *fiber.Ctx) error {
	var req AccessGalleryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "invalid request body")
		}
	}

	token := c.Params("token")
	gallery, err := h.selectionSvc.AccessGallery(token, req.Password)
	if err != nil {
		return clientAccessError(c, err)
	}

	photos, err := h.selectionSvc.ListPhotos(token, req.Password)
	if err != nil {
		return clientAccessError(c, err)
	}

	return response.Success(c, ClientGalleryResponse{
		ID:          gallery.ID,
		Name:        gallery.Name,
		Description: gallery.Description,
		PhotosCount: gallery.PhotosCount,
		Photos:      photos,
	})
}

// ListPhotos handles GET /client/galleries/:token/photos. The gallery
// password, when set, travels in the X-Gallery-Password header.
func (h *ClientHandler) ListPhotos(c *fiber.Ctx) error {
	var password *string
	if v := c.Get(galleryPasswordHeader); v != "" {
		password = &v
	}

	photos, err := h.selectionSvc.ListPhotos(c.Params("token"), password)
	if err != nil {
		return clientAccessError(c, err)
	}
	return response.Success(c, photos)
}

// SubmitSelection handles POST /client/galleries/:token/selections.
func (h *ClientHandler) SubmitSelection(c *fiber.Ctx) error {
	var req SubmitSelectionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.PhotoID == "" {
		return response.BadRequest(c, "photo_id is required")
	}

	selection, err := h.selectionSvc.SubmitSelection(&service.SubmitSelectionRequest{
		ShareToken: c.Params("token"),
		Password:   req.Password,
		PhotoID:    req.PhotoID,
		ClientName: req.ClientName,
		Rating:     req.Rating,
		IsFavorite: req.IsFavorite,
		Comment:    req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNameRequired):
			return response.BadRequest(c, "client_name is required")
		case errors.Is(err, service.ErrInvalidRating):
			return response.BadRequest(c, "rating must be between 0 and 5")
		case errors.Is(err, service.ErrPhotoNotFound),
			errors.Is(err, service.ErrPhotoNotInGallery):
			return response.NotFound(c, "photo not found in this gallery")
		default:
			return clientAccessError(c, err)
		}
	}

	RecordSelectionSubmitted()

	return response.Success(c, selection)
}

// PhotoFile handles GET /client/galleries/:token/photos/:photoID/file.
// The gallery password, when set, travels in the X-Gallery-Password header.
func (h *ClientHandler) PhotoFile(c *fiber.Ctx) error {
	var password *string
	if v := c.Get(galleryPasswordHeader); v != "" {
		password = &v
	}

	gallery, err := h.selectionSvc.AccessGallery(c.Params("token"), password)
	if err != nil {
		return clientAccessError(c, err)
	}

	photo, err := h.photoSvc.GetByID(c.Params("photoID"))
	if err != nil {
		if errors.Is(err, service.ErrPhotoNotFound) {
			return response.NotFound(c, "photo not found")
		}
		return response.InternalError(c, "failed to load photo")
	}
	if photo.GalleryID != gallery.ID {
		return response.NotFound(c, "photo not found in this gallery")
	}

	c.Set("Content-Type", photo.MimeType)
	c.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", sanitize.ForHeader(photo.Filename)))
	return c.SendFile(h.photoSvc.FilePath(photo))
}

// clientAccessError maps share-token access errors onto HTTP statuses.
func clientAccessError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidShareToken):
		return response.NotFound(c, "gallery not found")
	case errors.Is(err, service.ErrGalleryPasswordRequired):
		return response.Unauthorized(c, "gallery password required")
	case errors.Is(err, service.ErrInvalidGalleryPassword):
		RecordAuthFailure("invalid_gallery_password")
		return response.Unauthorized(c, "invalid gallery password")
	default:
		logger.Error().Err(err).Msg("Client gallery access failed")
		return response.InternalError(c, "failed to access gallery")
	}
}
