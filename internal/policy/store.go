package policy

import (
	"time"

	"github.com/snapselect/snapselect/internal/models"
)

// Store is the persistence contract the engine requires from the host
// application. The production implementation lives in internal/repository
// and is backed by SQLite; tests substitute an in-memory fake.
type Store interface {
	// GetShareHistory returns (nil, nil) when the gallery has never been
	// shared or revoked before.
	GetShareHistory(galleryID, photographerID string) (*models.ShareHistory, error)

	GetGallery(galleryID string) (*models.Gallery, error)

	// GetPlanPhotoLimit returns the per-gallery photo limit for a plan.
	// Callers treat a failure as advisory and fall back to a default.
	GetPlanPhotoLimit(planID string) (int, error)

	// RecordShare upserts the share side of the history: FirstSharedAt is
	// set once, LastSharedAt is refreshed, SharingCount is incremented.
	RecordShare(galleryID, photographerID string, sharedAt time.Time) error

	// ApplyRevocation writes the history update and the gallery restriction
	// state in a single transaction. Either both land or neither does.
	ApplyRevocation(rev Revocation) error

	// ClearRestriction removes a lapsed restriction from the gallery
	// record. Best-effort: correctness never depends on it because reads
	// always recompute from the timestamp.
	ClearRestriction(galleryID string) error

	// RecordAuditEvent persists an audit record of a policy decision.
	// Failures are swallowed by the engine and never block the operation.
	RecordAuditEvent(eventName, galleryID, photographerID string, details map[string]string) error
}

// Revocation is everything ApplyRevocation must persist atomically:
// the history bookkeeping plus the derived gallery restriction state.
// The share link itself is withdrawn in the same transaction so the
// gallery record never shows a revoked-but-still-shared state.
type Revocation struct {
	GalleryID          string
	PhotographerID     string
	RevokedAt          time.Time
	NewRevocationCount int

	// HistoryExists distinguishes update from insert. When false the
	// store creates the record with SharingCount=1 and both share
	// timestamps set to RevokedAt, mirroring a never-shared gallery
	// being revoked defensively.
	HistoryExists bool

	Restriction Restriction
}

// Restriction is the gallery-side state a revocation leaves behind.
type Restriction struct {
	Restricted              bool
	Until                   *time.Time
	AdditionalPhotosAllowed *int
}
