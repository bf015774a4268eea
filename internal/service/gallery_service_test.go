package service

import (
	"errors"
	"testing"
	"time"

	"github.com/snapselect/snapselect/internal/policy"
	"github.com/snapselect/snapselect/internal/repository"
	"github.com/snapselect/snapselect/pkg/testutil"
)

type galleryFixture struct {
	svc            *GalleryService
	galleryRepo    *repository.GalleryRepository
	photographerID string
	now            *time.Time
}

func newGalleryFixture(t *testing.T) (*galleryFixture, func()) {
	t.Helper()

	db, _, cleanup := testutil.SetupTest(t)

	now := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	engine := policy.NewEngineWithClock(repository.NewPolicyStore(db), func() time.Time { return now })

	galleryRepo := repository.NewGalleryRepository(db)
	svc := NewGalleryService(galleryRepo, repository.NewPhotographerRepository(db), engine)

	return &galleryFixture{
		svc:            svc,
		galleryRepo:    galleryRepo,
		photographerID: testutil.CreatePhotographer(t, db, "free"),
		now:            &now,
	}, cleanup
}

func (f *galleryFixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func (f *galleryFixture) createGallery(t *testing.T) string {
	t.Helper()
	gallery, err := f.svc.Create(&CreateGalleryRequest{
		PhotographerID: f.photographerID,
		Name:           "Wedding",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return gallery.ID
}

func TestGalleryShareAndRevokeFlow(t *testing.T) {
	f, cleanup := newGalleryFixture(t)
	defer cleanup()

	galleryID := f.createGallery(t)

	// Never shared: the warning is the first-revoke one.
	kind, msg, err := f.svc.RevokeWarning(galleryID, f.photographerID)
	if err != nil {
		t.Fatalf("RevokeWarning: %v", err)
	}
	if kind != policy.WarningFirstRevoke || msg == "" {
		t.Fatalf("warning = %q, want first_revoke with message", kind)
	}

	shared, err := f.svc.Share(galleryID, f.photographerID, nil)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if !shared.IsShared || shared.ShareToken == nil || *shared.ShareToken == "" {
		t.Fatal("expected a live share token")
	}

	if _, err := f.svc.Share(galleryID, f.photographerID, nil); !errors.Is(err, ErrGalleryAlreadyShared) {
		t.Fatalf("second share error = %v, want ErrGalleryAlreadyShared", err)
	}

	// Inside the grace window the warning switches.
	f.advance(time.Hour)
	kind, _, err = f.svc.RevokeWarning(galleryID, f.photographerID)
	if err != nil {
		t.Fatalf("RevokeWarning: %v", err)
	}
	if kind != policy.WarningGracePeriod {
		t.Fatalf("warning = %q, want grace_period", kind)
	}

	// Revoke outside the grace window: first restriction tier.
	f.advance(4 * time.Hour)
	decision, err := f.svc.Revoke(galleryID, f.photographerID)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if decision.RestrictionType != policy.RestrictionPartial {
		t.Fatalf("restriction = %q, want partial", decision.RestrictionType)
	}
	if decision.AdditionalPhotosAllowed == nil || *decision.AdditionalPhotosAllowed != 5 {
		t.Fatalf("quota = %v, want 5 on the free plan", decision.AdditionalPhotosAllowed)
	}

	gallery, access, err := f.svc.Get(galleryID, f.photographerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gallery.IsShared || gallery.ShareToken != nil {
		t.Fatal("expected the share link to be withdrawn")
	}
	if !access.Allowed || access.AdditionalPhotosAllowed == nil {
		t.Fatalf("expected partial upload access, got %+v", access)
	}

	if _, err := f.svc.Revoke(galleryID, f.photographerID); !errors.Is(err, ErrGalleryNotShared) {
		t.Fatalf("revoke unshared error = %v, want ErrGalleryNotShared", err)
	}
}

func TestGalleryGraceRevokeLeavesUploadsOpen(t *testing.T) {
	f, cleanup := newGalleryFixture(t)
	defer cleanup()

	galleryID := f.createGallery(t)
	if _, err := f.svc.Share(galleryID, f.photographerID, nil); err != nil {
		t.Fatalf("Share: %v", err)
	}

	f.advance(30 * time.Minute)
	decision, err := f.svc.Revoke(galleryID, f.photographerID)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if decision.RestrictionType != policy.RestrictionNone {
		t.Fatalf("restriction = %q, want none inside grace", decision.RestrictionType)
	}

	_, access, err := f.svc.Get(galleryID, f.photographerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !access.Allowed || access.Until != nil {
		t.Fatalf("expected unrestricted access, got %+v", access)
	}
}

func TestGalleryRevocationsEscalate(t *testing.T) {
	f, cleanup := newGalleryFixture(t)
	defer cleanup()

	galleryID := f.createGallery(t)
	wantTypes := []policy.RestrictionType{
		policy.RestrictionPartial,
		policy.RestrictionCooling,
		policy.RestrictionCooling,
	}
	wantWindows := []time.Duration{24 * time.Hour, 72 * time.Hour, 7 * 24 * time.Hour}

	for i := range wantTypes {
		if _, err := f.svc.Share(galleryID, f.photographerID, nil); err != nil {
			t.Fatalf("share %d: %v", i+1, err)
		}
		f.advance(4 * time.Hour)

		decision, err := f.svc.Revoke(galleryID, f.photographerID)
		if err != nil {
			t.Fatalf("revoke %d: %v", i+1, err)
		}
		if decision.RestrictionType != wantTypes[i] {
			t.Fatalf("revoke %d: restriction = %q, want %q", i+1, decision.RestrictionType, wantTypes[i])
		}
		wantUntil := f.now.Add(wantWindows[i])
		if decision.RestrictedUntil == nil || !decision.RestrictedUntil.Equal(wantUntil) {
			t.Fatalf("revoke %d: until = %v, want %v", i+1, decision.RestrictedUntil, wantUntil)
		}

		// Wait out the cooling window before the next round.
		f.advance(wantWindows[i] + time.Hour)
	}
}

func TestGalleryGetClearsLapsedRestriction(t *testing.T) {
	f, cleanup := newGalleryFixture(t)
	defer cleanup()

	galleryID := f.createGallery(t)
	if _, err := f.svc.Share(galleryID, f.photographerID, nil); err != nil {
		t.Fatalf("Share: %v", err)
	}
	f.advance(4 * time.Hour)
	if _, err := f.svc.Revoke(galleryID, f.photographerID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	// Past the restriction deadline the Get self-heals the stored state.
	f.advance(25 * time.Hour)
	gallery, access, err := f.svc.Get(galleryID, f.photographerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !access.Allowed || access.Until != nil {
		t.Fatalf("expected open access after lapse, got %+v", access)
	}
	if gallery.UploadRestricted || gallery.UploadRestrictedUntil != nil {
		t.Fatal("expected lapsed restriction fields to be cleared")
	}

	stored, err := f.galleryRepo.GetByID(galleryID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.UploadRestricted || stored.UploadRestrictedUntil != nil {
		t.Fatal("expected the stored row to be cleaned up too")
	}
}

func TestGalleryOwnershipChecks(t *testing.T) {
	f, cleanup := newGalleryFixture(t)
	defer cleanup()

	galleryID := f.createGallery(t)

	if _, err := f.svc.Share(galleryID, "someone-else", nil); !errors.Is(err, ErrNotGalleryOwner) {
		t.Fatalf("share as stranger error = %v, want ErrNotGalleryOwner", err)
	}
	if _, _, err := f.svc.Get("missing", f.photographerID); !errors.Is(err, ErrGalleryNotFound) {
		t.Fatalf("get missing error = %v, want ErrGalleryNotFound", err)
	}
}
