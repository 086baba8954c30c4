package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/agromarket-storefront/internal/backend"
	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

// PreviewPath prefixes the local preview URL of a pending image.
const PreviewPath = "/api/v1/previews/"

const (
	uploadTimeout         = 2 * time.Minute
	uploadFallbackMessage = "image upload failed, please try again"
)

// CheckImage enforces the size limit and sniffs the content type. It returns
// the detected MIME type.
func CheckImage(f domain.UploadFile) (string, error) {
	if len(f.Data) == 0 {
		return "", apperrors.InvalidInput(fmt.Sprintf("%s is empty", displayName(f)))
	}
	if len(f.Data) > domain.MaxImageSize {
		return "", apperrors.InvalidInputCode("FILE_TOO_LARGE",
			fmt.Sprintf("%s exceeds the 10MB limit", displayName(f)))
	}
	mt := mimetype.Detect(f.Data)
	for allowed := range domain.AllowedImageTypes {
		if mt.Is(allowed) {
			return allowed, nil
		}
	}
	return "", apperrors.InvalidInputCode("UNSUPPORTED_FILE_TYPE",
		fmt.Sprintf("%s is not a JPEG, PNG, GIF or WebP image", displayName(f)))
}

func displayName(f domain.UploadFile) string {
	if f.Name == "" {
		return "file"
	}
	return f.Name
}

// FormView is the state of one review form's image slots.
type FormView struct {
	FormID   string                 `json:"form_id"`
	Slots    []any                  `json:"slots"`
	Failures []domain.UploadFailure `json:"failures,omitempty"`
	Pending  int                    `json:"pending"`
}

// FormResult is a form whose uploads have all resolved.
type FormResult struct {
	HostedURLs []string
	Failures   []domain.UploadFailure
}

type formKey struct {
	sid    string
	formID string
}

type uploadForm struct {
	slots    []domain.ImageSlot
	failures []domain.UploadFailure
	changed  chan struct{}
}

func (f *uploadForm) pending() int {
	n := 0
	for _, s := range f.slots {
		if _, ok := s.State.(domain.Pending); ok {
			n++
		}
	}
	return n
}

// notify wakes everyone waiting on the form.
func (f *uploadForm) notify() {
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *uploadForm) view(id string) FormView {
	v := FormView{
		FormID:   id,
		Slots:    make([]any, 0, len(f.slots)),
		Failures: slices.Clone(f.failures),
		Pending:  f.pending(),
	}
	for _, s := range f.slots {
		v.Slots = append(v.Slots, s.View())
	}
	return v
}

// UploadService stages review images: each file is kept in memory as a
// preview while it uploads in the background.
type UploadService struct {
	backend UploadBackend
	blobs   repository.BlobStore
	limit   int
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	forms  map[formKey]*uploadForm
	closed bool
	wg     sync.WaitGroup
}

// NewUploadService creates an upload service running at most limit uploads
// per batch.
func NewUploadService(b UploadBackend, blobs repository.BlobStore, limit int, logger *slog.Logger) *UploadService {
	return &UploadService{
		backend: b,
		blobs:   blobs,
		limit:   max(limit, 1),
		logger:  logger,
		now:     time.Now,
		forms:   make(map[formKey]*uploadForm),
	}
}

type uploadJob struct {
	slotID string
	blobID string
	file   domain.UploadFile
}

// Stage validates files, adds a Pending slot for each valid one and starts
// uploading them. Invalid files are reported as failures without a slot.
func (s *UploadService) Stage(ctx context.Context, sid, token, formID string, files []domain.UploadFile) (FormView, error) {
	if formID == "" {
		return FormView{}, apperrors.InvalidInput("form id is required")
	}
	if len(files) == 0 {
		return FormView{}, apperrors.InvalidInput("at least one image is required")
	}

	key := formKey{sid: sid, formID: formID}
	now := s.now().UTC()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return FormView{}, apperrors.ServiceUnavailable("uploads are unavailable, please try again")
	}
	form, ok := s.forms[key]
	if !ok {
		form = &uploadForm{changed: make(chan struct{})}
		s.forms[key] = form
	}

	var jobs []uploadJob
	for _, f := range files {
		ct, err := CheckImage(f)
		if err != nil {
			form.failures = append(form.failures, domain.UploadFailure{
				Message: apperrors.Normalize(err, uploadFallbackMessage).Message,
			})
			continue
		}
		f.ContentType = ct

		blob := &repository.Blob{
			ID:          uuid.NewString(),
			SessionID:   sid,
			ContentType: ct,
			Data:        f.Data,
			CreatedAt:   now,
		}
		s.blobs.Put(blob)

		slot := domain.ImageSlot{
			ID:        uuid.NewString(),
			FormID:    formID,
			State:     domain.Pending{LocalURL: PreviewPath + blob.ID, BlobID: blob.ID},
			CreatedAt: now,
		}
		form.slots = append(form.slots, slot)
		jobs = append(jobs, uploadJob{slotID: slot.ID, blobID: blob.ID, file: f})
	}
	view := form.view(formID)
	if len(jobs) > 0 {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if len(jobs) > 0 {
		bg := context.WithoutCancel(ctx)
		go func() {
			defer s.wg.Done()
			s.run(bg, key, token, jobs)
		}()
	}

	s.logger.DebugContext(ctx, "review images staged",
		slog.String("form_id", formID),
		slog.Int("accepted", len(jobs)),
		slog.Int("rejected", len(files)-len(jobs)),
	)
	return view, nil
}

func (s *UploadService) run(ctx context.Context, key formKey, token string, jobs []uploadJob) {
	var g errgroup.Group
	g.SetLimit(s.limit)
	for _, j := range jobs {
		g.Go(func() error {
			uctx, cancel := context.WithTimeout(ctx, uploadTimeout)
			defer cancel()
			images, err := s.backend.UploadImages(uctx, token, backend.UploadReviews, []domain.UploadFile{j.file})
			if err == nil && len(images) == 0 {
				err = apperrors.Internal(fmt.Errorf("upload returned no image"))
			}
			url := ""
			if err == nil {
				url = images[0].URL
			}
			s.resolve(ctx, key, j, url, err)
			return nil
		})
	}
	_ = g.Wait()
}

// resolve settles a slot: success hosts it, failure removes it. The preview
// blob is released either way.
func (s *UploadService) resolve(ctx context.Context, key formKey, j uploadJob, hostedURL string, err error) {
	s.blobs.Release(j.blobID)

	s.mu.Lock()
	defer s.mu.Unlock()

	form, ok := s.forms[key]
	if !ok {
		return
	}
	i := slices.IndexFunc(form.slots, func(sl domain.ImageSlot) bool { return sl.ID == j.slotID })
	if i < 0 {
		return
	}

	if err != nil {
		form.slots = slices.Delete(form.slots, i, i+1)
		form.failures = append(form.failures, domain.UploadFailure{
			SlotID:  j.slotID,
			Message: apperrors.Normalize(err, uploadFallbackMessage).Message,
		})
		s.logger.WarnContext(ctx, "review image upload failed",
			slog.String("form_id", key.formID),
			slog.String("slot_id", j.slotID),
			slog.String("error", err.Error()),
		)
	} else {
		form.slots[i].State = domain.Uploaded{HostedURL: hostedURL}
	}
	form.notify()
}

// Form returns the current slots of a form.
func (s *UploadService) Form(sid, formID string) FormView {
	s.mu.Lock()
	defer s.mu.Unlock()

	form, ok := s.forms[formKey{sid: sid, formID: formID}]
	if !ok {
		return FormView{FormID: formID, Slots: []any{}}
	}
	return form.view(formID)
}

// Wait blocks until every upload of the form resolved or ctx ends.
func (s *UploadService) Wait(ctx context.Context, sid, formID string) (FormResult, error) {
	key := formKey{sid: sid, formID: formID}
	for {
		s.mu.Lock()
		form, ok := s.forms[key]
		if !ok {
			s.mu.Unlock()
			return FormResult{}, nil
		}
		if form.pending() == 0 {
			res := FormResult{Failures: slices.Clone(form.failures)}
			for _, sl := range form.slots {
				if u, ok := sl.State.(domain.Uploaded); ok {
					res.HostedURLs = append(res.HostedURLs, u.HostedURL)
				}
			}
			s.mu.Unlock()
			return res, nil
		}
		changed := form.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return FormResult{}, apperrors.Wrap(apperrors.Conflict("images are still uploading, please try again"), ctx.Err().Error())
		}
	}
}

// RemoveSlot drops one image from a form and releases its preview.
func (s *UploadService) RemoveSlot(sid, formID, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	form, ok := s.forms[formKey{sid: sid, formID: formID}]
	if !ok {
		return apperrors.NotFound("image", slotID)
	}
	i := slices.IndexFunc(form.slots, func(sl domain.ImageSlot) bool { return sl.ID == slotID })
	if i < 0 {
		return apperrors.NotFound("image", slotID)
	}
	if p, ok := form.slots[i].State.(domain.Pending); ok {
		s.blobs.Release(p.BlobID)
	}
	form.slots = slices.Delete(form.slots, i, i+1)
	form.notify()
	return nil
}

// Discard drops a form and releases the previews of its pending slots.
func (s *UploadService) Discard(sid, formID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardLocked(formKey{sid: sid, formID: formID})
}

func (s *UploadService) discardLocked(key formKey) {
	form, ok := s.forms[key]
	if !ok {
		return
	}
	for _, sl := range form.slots {
		if p, ok := sl.State.(domain.Pending); ok {
			s.blobs.Release(p.BlobID)
		}
	}
	delete(s.forms, key)
	form.notify()
}

// ForgetSession discards every form of the session.
func (s *UploadService) ForgetSession(sid string) {
	s.mu.Lock()
	for key := range s.forms {
		if key.sid == sid {
			s.discardLocked(key)
		}
	}
	s.mu.Unlock()
	s.blobs.ReleaseSession(sid)
}

// Preview returns a pending image owned by the session.
func (s *UploadService) Preview(sid, blobID string) (*repository.Blob, error) {
	b, ok := s.blobs.Get(blobID)
	if !ok || b.SessionID != sid {
		return nil, apperrors.NotFound("preview", blobID)
	}
	return b, nil
}

// Close rejects new uploads and waits for running ones.
func (s *UploadService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
