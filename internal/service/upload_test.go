package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/utafrali/agromarket-storefront/internal/backend"
	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository/memory"
	apperrors "github.com/utafrali/agromarket-storefront/pkg/errors"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00")
)

func pngFile(name string) domain.UploadFile {
	return domain.UploadFile{Name: name, Data: append([]byte(nil), pngHeader...)}
}

func newTestUploadService(t *testing.T) (*UploadService, *mockBackend, *memory.BlobStore) {
	t.Helper()
	b := new(mockBackend)
	blobs := memory.NewBlobStore()
	svc := NewUploadService(b, blobs, 2, newTestLogger())
	t.Cleanup(svc.Close)
	return svc, b, blobs
}

// slotField reads one JSON field of a slot view.
func slotField(t *testing.T, slot any, field string) string {
	t.Helper()
	raw, err := json.Marshal(slot)
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, json.Unmarshal(raw, &m))
	return m[field]
}

func TestCheckImage(t *testing.T) {
	tests := []struct {
		name     string
		file     domain.UploadFile
		wantType string
		wantCode string
	}{
		{"png", domain.UploadFile{Name: "a.png", Data: pngHeader}, "image/png", ""},
		{"jpeg", domain.UploadFile{Name: "a.jpg", Data: jpegHeader}, "image/jpeg", ""},
		{"gif", domain.UploadFile{Name: "a.gif", Data: gifHeader}, "image/gif", ""},
		{"text with image name", domain.UploadFile{Name: "fake.png", Data: []byte("just some text")}, "", "UNSUPPORTED_FILE_TYPE"},
		{"too large", domain.UploadFile{Name: "big.png", Data: append(pngHeader, bytes.Repeat([]byte{0}, domain.MaxImageSize)...)}, "", "FILE_TOO_LARGE"},
		{"empty", domain.UploadFile{Name: "none.png"}, "", "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckImage(tt.file)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantType, got)
				return
			}
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Contains(t, appErr.Message, tt.file.Name)
		})
	}
}

func TestStage_UploadsInBackground(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc, b, blobs := newTestUploadService(t)
	ctx := context.Background()

	b.On("UploadImages", mock.Anything, testToken, backend.UploadReviews, mock.Anything).
		Return([]domain.UploadedImage{{URL: "https://cdn.example.com/r/1.png"}}, nil)

	view, err := svc.Stage(ctx, "sid-1", testToken, "form-1", []domain.UploadFile{pngFile("carrot.png")})
	require.NoError(t, err)
	require.Len(t, view.Slots, 1)

	res, err := svc.Wait(ctx, "sid-1", "form-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/r/1.png"}, res.HostedURLs)
	assert.Empty(t, res.Failures)
	assert.Zero(t, blobs.Len(), "preview must be released once hosted")

	form := svc.Form("sid-1", "form-1")
	require.Len(t, form.Slots, 1)
	assert.Equal(t, "uploaded", slotField(t, form.Slots[0], "status"))
	assert.Zero(t, form.Pending)

	svc.Close()
}

func TestStage_FailedUploadRemovesSlot(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc, b, blobs := newTestUploadService(t)
	ctx := context.Background()

	b.On("UploadImages", mock.Anything, testToken, backend.UploadReviews, mock.Anything).
		Return(nil, apperrors.ServiceUnavailable("media store is down"))

	_, err := svc.Stage(ctx, "sid-1", testToken, "form-1", []domain.UploadFile{pngFile("carrot.png")})
	require.NoError(t, err)

	res, err := svc.Wait(ctx, "sid-1", "form-1")
	require.NoError(t, err)
	assert.Empty(t, res.HostedURLs)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "media store is down", res.Failures[0].Message)
	assert.NotEmpty(t, res.Failures[0].SlotID)
	assert.Empty(t, svc.Form("sid-1", "form-1").Slots)
	assert.Zero(t, blobs.Len())

	svc.Close()
}

func TestStage_InvalidFilesNeverUpload(t *testing.T) {
	svc, b, blobs := newTestUploadService(t)

	view, err := svc.Stage(context.Background(), "sid-1", testToken, "form-1", []domain.UploadFile{
		{Name: "notes.txt", Data: []byte("plain text, not an image")},
	})

	require.NoError(t, err)
	assert.Empty(t, view.Slots)
	require.Len(t, view.Failures, 1)
	assert.Contains(t, view.Failures[0].Message, "notes.txt")
	assert.Zero(t, blobs.Len())
	b.AssertNotCalled(t, "UploadImages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStage_RequiresFormAndFiles(t *testing.T) {
	svc, _, _ := newTestUploadService(t)
	ctx := context.Background()

	_, err := svc.Stage(ctx, "sid-1", testToken, "", []domain.UploadFile{pngFile("a.png")})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.Stage(ctx, "sid-1", testToken, "form-1", nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestStage_PendingPreviewIsOwnedBySession(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc, b, blobs := newTestUploadService(t)
	ctx := context.Background()

	release := make(chan struct{})
	b.On("UploadImages", mock.Anything, testToken, backend.UploadReviews, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return([]domain.UploadedImage{{URL: "https://cdn.example.com/r/2.png"}}, nil)

	view, err := svc.Stage(ctx, "sid-1", testToken, "form-1", []domain.UploadFile{pngFile("leek.png")})
	require.NoError(t, err)
	require.Len(t, view.Slots, 1)
	assert.Equal(t, 1, view.Pending)

	local := slotField(t, view.Slots[0], "local_url")
	require.True(t, strings.HasPrefix(local, PreviewPath))
	blobID := strings.TrimPrefix(local, PreviewPath)

	blob, err := svc.Preview("sid-1", blobID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.ContentType)

	_, err = svc.Preview("sid-2", blobID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	short, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.Wait(short, "sid-1", "form-1")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	close(release)
	res, err := svc.Wait(ctx, "sid-1", "form-1")
	require.NoError(t, err)
	assert.Len(t, res.HostedURLs, 1)
	assert.Zero(t, blobs.Len())

	svc.Close()
}

func TestUploadService_ForgetSessionReleasesPreviews(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc, b, blobs := newTestUploadService(t)
	ctx := context.Background()

	release := make(chan struct{})
	b.On("UploadImages", mock.Anything, testToken, backend.UploadReviews, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return([]domain.UploadedImage{{URL: "https://cdn.example.com/r/3.png"}}, nil)

	_, err := svc.Stage(ctx, "sid-1", testToken, "form-1", []domain.UploadFile{pngFile("a.png"), pngFile("b.png")})
	require.NoError(t, err)
	require.Equal(t, 2, blobs.Len())

	svc.ForgetSession("sid-1")

	assert.Zero(t, blobs.Len())
	assert.Empty(t, svc.Form("sid-1", "form-1").Slots)

	close(release)
	svc.Close()
	assert.Empty(t, svc.Form("sid-1", "form-1").Slots, "late results must not resurrect a forgotten form")
}

func TestUploadService_RemoveSlot(t *testing.T) {
	svc, b, blobs := newTestUploadService(t)
	ctx := context.Background()

	release := make(chan struct{})
	b.On("UploadImages", mock.Anything, testToken, backend.UploadReviews, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return([]domain.UploadedImage{{URL: "https://cdn.example.com/r/4.png"}}, nil)

	view, err := svc.Stage(ctx, "sid-1", testToken, "form-1", []domain.UploadFile{pngFile("a.png")})
	require.NoError(t, err)
	slotID := slotField(t, view.Slots[0], "id")

	require.NoError(t, svc.RemoveSlot("sid-1", "form-1", slotID))
	assert.Zero(t, blobs.Len())
	assert.True(t, errors.Is(svc.RemoveSlot("sid-1", "form-1", slotID), apperrors.ErrNotFound))

	close(release)
	res, err := svc.Wait(ctx, "sid-1", "form-1")
	require.NoError(t, err)
	assert.Empty(t, res.HostedURLs)
}

func TestUploadService_CloseRejectsNewUploads(t *testing.T) {
	svc, b, _ := newTestUploadService(t)
	svc.Close()

	_, err := svc.Stage(context.Background(), "sid-1", testToken, "form-1", []domain.UploadFile{pngFile("a.png")})

	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.Empty(t, b.Calls)
}
