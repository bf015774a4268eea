package models

import "time"

type Photographer struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PlanID       string    `json:"plan_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type Plan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PhotoLimit   int    `json:"photo_limit"`
	StorageQuota int64  `json:"storage_quota_bytes"`
}

type Gallery struct {
	ID                 string  `json:"id"`
	PhotographerID     string  `json:"photographer_id"`
	PlanID             string  `json:"plan_id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	ClientPasswordHash *string `json:"-"`
	ShareToken         *string `json:"share_token,omitempty"`
	IsShared           bool    `json:"is_shared"`
	PhotosCount        int     `json:"photos_count"`

	// Upload restriction state written by the revocation policy engine.
	// UploadRestrictedUntil is the source of truth: the boolean is never
	// trusted on its own when deciding whether uploads are allowed.
	UploadRestricted        bool       `json:"upload_restricted"`
	UploadRestrictedUntil   *time.Time `json:"upload_restricted_until,omitempty"`
	AdditionalPhotosAllowed *int       `json:"additional_photos_allowed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShareHistory tracks the full share/revoke lifecycle of one gallery.
// One row per (gallery, photographer); created on first share or first
// revoke, updated forever after, never deleted.
type ShareHistory struct {
	GalleryID       string     `json:"gallery_id"`
	PhotographerID  string     `json:"photographer_id"`
	FirstSharedAt   time.Time  `json:"first_shared_at"`
	LastSharedAt    time.Time  `json:"last_shared_at"`
	LastRevokedAt   *time.Time `json:"last_revoked_at,omitempty"`
	SharingCount    int        `json:"sharing_count"`
	RevocationCount int        `json:"revocation_count"`
}

type Photo struct {
	ID         string    `json:"id"`
	GalleryID  string    `json:"gallery_id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Selection is a client's verdict on a single photo. One row per
// (photo, client name); repeated submissions update in place.
type Selection struct {
	ID         string    `json:"id"`
	GalleryID  string    `json:"gallery_id"`
	PhotoID    string    `json:"photo_id"`
	ClientName string    `json:"client_name"`
	Rating     int       `json:"rating"`
	IsFavorite bool      `json:"is_favorite"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type AuditEvent struct {
	ID             string    `json:"id"`
	EventName      string    `json:"event_name"`
	GalleryID      string    `json:"gallery_id"`
	PhotographerID string    `json:"photographer_id"`
	Details        string    `json:"details"`
	CreatedAt      time.Time `json:"created_at"`
}

type DashboardStats struct {
	TotalGalleries      int `json:"total_galleries"`
	SharedGalleries     int `json:"shared_galleries"`
	RestrictedGalleries int `json:"restricted_galleries"`
	TotalPhotos         int `json:"total_photos"`
	TotalSelections     int `json:"total_selections"`
	TotalFavorites      int `json:"total_favorites"`
}
