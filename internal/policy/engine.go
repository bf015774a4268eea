package policy

import (
	"fmt"
	"strconv"
	"time"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/pkg/logger"
)

// Revoking a share link is penalty-free within a grace period of the most
// recent share. Outside it, restrictions escalate with every revoke: the
// first one leaves a small upload quota open, later ones block uploads
// entirely for progressively longer cooling periods.
const (
	GracePeriod = 3 * time.Hour

	firstCoolingPeriod      = 24 * time.Hour
	secondCoolingPeriod     = 72 * time.Hour
	subsequentCoolingPeriod = 7 * 24 * time.Hour

	// Percentage of the plan's photo limit granted as an upload quota
	// during the first revoke's restriction window.
	additionalUploadPercent = 5

	// DefaultPlanPhotoLimit is used when the plan lookup fails. The quota
	// is advisory, not security-critical, so lookup failure is not fatal.
	DefaultPlanPhotoLimit = 100
)

type WarningKind string

const (
	WarningFirstRevoke      WarningKind = "first_revoke"
	WarningGracePeriod      WarningKind = "grace_period"
	WarningSecondRevoke     WarningKind = "second_revoke"
	WarningSubsequentRevoke WarningKind = "subsequent_revoke"
)

type RestrictionType string

const (
	RestrictionNone    RestrictionType = "none"
	RestrictionPartial RestrictionType = "partial"
	RestrictionCooling RestrictionType = "cooling_period"
)

// RestrictionDecision is the engine's output for a single revoke event.
type RestrictionDecision struct {
	RestrictionType         RestrictionType `json:"restriction_type"`
	RestrictedUntil         *time.Time      `json:"restricted_until,omitempty"`
	AdditionalPhotosAllowed *int            `json:"additional_photos_allowed,omitempty"`
	Message                 string          `json:"message"`
}

// UploadAccess is the answer to "can this gallery accept uploads right now".
type UploadAccess struct {
	Allowed                 bool       `json:"allowed"`
	Until                   *time.Time `json:"until,omitempty"`
	AdditionalPhotosAllowed *int       `json:"additional_photos_allowed,omitempty"`

	// Lapsed is set when a persisted restriction has already expired.
	// Callers should clear the stale fields via ClearLapsedRestriction,
	// but nothing breaks if they never do.
	Lapsed bool `json:"-"`
}

// Engine is the single authority for the share-revoke access policy:
// the warning shown before a revoke, the restriction applied after one,
// and whether uploads are currently allowed.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// NewEngineWithClock builds an engine with a fixed clock source.
// Used by tests that need deterministic time arithmetic.
func NewEngineWithClock(store Store, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, now: now}
}

// EvaluateRevokeWarning picks the warning shown before a revoke is
// confirmed. Pure: no side effects, history is never mutated.
// Priority order, first match wins.
func (e *Engine) EvaluateRevokeWarning(history *models.ShareHistory) WarningKind {
	if history == nil {
		return WarningFirstRevoke
	}
	if e.now().Sub(history.LastSharedAt) <= GracePeriod {
		return WarningGracePeriod
	}
	switch history.RevocationCount {
	case 0:
		return WarningFirstRevoke
	case 1:
		return WarningSecondRevoke
	default:
		return WarningSubsequentRevoke
	}
}

// WarningFor loads the gallery's history and evaluates the pre-revoke warning.
func (e *Engine) WarningFor(galleryID, photographerID string) (WarningKind, error) {
	history, err := e.store.GetShareHistory(galleryID, photographerID)
	if err != nil {
		return "", fmt.Errorf("load share history: %w", err)
	}
	return e.EvaluateRevokeWarning(history), nil
}

// WarningMessage returns the confirmation-dialog text for a warning kind.
func WarningMessage(kind WarningKind) string {
	switch kind {
	case WarningGracePeriod:
		return "You shared this gallery recently. Revoking now carries no upload restriction."
	case WarningSecondRevoke:
		return "You have revoked access to this gallery before. Revoking again pauses uploads for 72 hours."
	case WarningSubsequentRevoke:
		return "Repeated revocations pause uploads for 7 days. Are you sure you want to revoke access?"
	default:
		return "Revoking access limits how many photos you can upload for the next 24 hours."
	}
}

// RecordShare updates the sharing history when a gallery link is published.
func (e *Engine) RecordShare(galleryID, photographerID string) error {
	now := e.now()
	if err := e.store.RecordShare(galleryID, photographerID, now); err != nil {
		return fmt.Errorf("record share: %w", err)
	}
	e.audit("gallery_shared", galleryID, photographerID, map[string]string{
		"shared_at": now.UTC().Format(time.RFC3339),
	})
	return nil
}

// ProcessRevocation computes and durably applies the restriction for a
// revoke event, then returns the decision. The history update and the
// gallery restriction state are written in one transaction: on any
// persistence error nothing is applied and the revoke did not happen.
//
// The revocation count always increments, even for a revoke inside the
// grace period. A photographer who shares and revokes twice within the
// grace window therefore reaches count 2 without ever being restricted,
// and a third revoke outside grace lands on the subsequent tier rather
// than the first. Preserved deliberately; see DESIGN.md.
func (e *Engine) ProcessRevocation(galleryID, photographerID string) (*RestrictionDecision, error) {
	history, err := e.store.GetShareHistory(galleryID, photographerID)
	if err != nil {
		return nil, fmt.Errorf("load share history: %w", err)
	}

	gallery, err := e.store.GetGallery(galleryID)
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}

	planLimit, err := e.store.GetPlanPhotoLimit(gallery.PlanID)
	if err != nil || planLimit <= 0 {
		planLimit = DefaultPlanPhotoLimit
	}

	now := e.now()
	additionalPhotos := ceilPercent(planLimit, additionalUploadPercent)
	withinGrace := history != nil && now.Sub(history.LastSharedAt) <= GracePeriod

	newCount := 1
	if history != nil {
		newCount = history.RevocationCount + 1
	}

	decision := decide(withinGrace, newCount, additionalPhotos, now)

	rev := Revocation{
		GalleryID:          galleryID,
		PhotographerID:     photographerID,
		RevokedAt:          now,
		NewRevocationCount: newCount,
		HistoryExists:      history != nil,
		Restriction: Restriction{
			Restricted:              decision.RestrictionType != RestrictionNone,
			Until:                   decision.RestrictedUntil,
			AdditionalPhotosAllowed: decision.AdditionalPhotosAllowed,
		},
	}
	if err := e.store.ApplyRevocation(rev); err != nil {
		return nil, fmt.Errorf("persist revocation: %w", err)
	}

	details := map[string]string{
		"restriction_type": string(decision.RestrictionType),
		"revocation_count": strconv.Itoa(newCount),
	}
	if decision.RestrictedUntil != nil {
		details["restricted_until"] = decision.RestrictedUntil.UTC().Format(time.RFC3339)
	}
	e.audit("gallery_share_revoked", galleryID, photographerID, details)

	return decision, nil
}

func decide(withinGrace bool, revocationCount, additionalPhotos int, now time.Time) *RestrictionDecision {
	if withinGrace {
		return &RestrictionDecision{
			RestrictionType: RestrictionNone,
			Message:         "Access revoked within the grace period. Uploads continue without restriction.",
		}
	}

	switch revocationCount {
	case 1:
		until := now.Add(firstCoolingPeriod)
		return &RestrictionDecision{
			RestrictionType:         RestrictionPartial,
			RestrictedUntil:         &until,
			AdditionalPhotosAllowed: &additionalPhotos,
			Message: fmt.Sprintf(
				"Access revoked. You can upload up to %d more photos until %s.",
				additionalPhotos, until.UTC().Format(time.RFC1123),
			),
		}
	case 2:
		until := now.Add(secondCoolingPeriod)
		return &RestrictionDecision{
			RestrictionType: RestrictionCooling,
			RestrictedUntil: &until,
			Message: fmt.Sprintf(
				"Access revoked. Uploads are paused for 72 hours, until %s.",
				until.UTC().Format(time.RFC1123),
			),
		}
	default:
		until := now.Add(subsequentCoolingPeriod)
		return &RestrictionDecision{
			RestrictionType: RestrictionCooling,
			RestrictedUntil: &until,
			Message: fmt.Sprintf(
				"Access revoked. Uploads are paused for 7 days, until %s.",
				until.UTC().Format(time.RFC1123),
			),
		}
	}
}

// EvaluateCurrentRestriction decides whether uploads are allowed right now.
// Read-only and idempotent. The decision derives from the persisted
// timestamp alone, so a stale UploadRestricted flag left behind by an
// offline client or a crashed tab can never lock a gallery permanently.
func (e *Engine) EvaluateCurrentRestriction(gallery *models.Gallery) UploadAccess {
	if gallery.UploadRestrictedUntil == nil {
		return UploadAccess{Allowed: true}
	}
	if !gallery.UploadRestrictedUntil.After(e.now()) {
		return UploadAccess{Allowed: true, Lapsed: gallery.UploadRestricted}
	}
	if gallery.AdditionalPhotosAllowed != nil && *gallery.AdditionalPhotosAllowed > 0 {
		return UploadAccess{
			Allowed:                 true,
			Until:                   gallery.UploadRestrictedUntil,
			AdditionalPhotosAllowed: gallery.AdditionalPhotosAllowed,
		}
	}
	return UploadAccess{Allowed: false, Until: gallery.UploadRestrictedUntil}
}

// ClearLapsedRestriction removes expired restriction fields from the
// gallery record. Best-effort: failures are logged and swallowed.
func (e *Engine) ClearLapsedRestriction(galleryID string) {
	if err := e.store.ClearRestriction(galleryID); err != nil {
		logger.Warn().
			Err(err).
			Str("component", "access_policy").
			Str("gallery_id", galleryID).
			Msg("Failed to clear lapsed upload restriction")
	}
}

func (e *Engine) audit(eventName, galleryID, photographerID string, details map[string]string) {
	if err := e.store.RecordAuditEvent(eventName, galleryID, photographerID, details); err != nil {
		logger.Warn().
			Err(err).
			Str("component", "access_policy").
			Str("event", eventName).
			Str("gallery_id", galleryID).
			Msg("Failed to record audit event")
	}
}

// ceilPercent returns ceil(value * percent / 100) using integer math.
func ceilPercent(value, percent int) int {
	return (value*percent + 99) / 100
}
