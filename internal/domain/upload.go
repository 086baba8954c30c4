package domain

import "time"

// Upload limits shared by review and product images.
const (
	MaxImageSize = 10 << 20
)

// AllowedImageTypes lists the accepted sniffed MIME types.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageState is the state of one image slot: Pending or Uploaded.
type ImageState interface {
	imageState()
}

// Pending is a slot whose file is still uploading; LocalURL serves the
// in-memory preview.
type Pending struct {
	LocalURL string `json:"local_url"`
	BlobID   string `json:"-"`
}

// Uploaded is a slot whose file is hosted.
type Uploaded struct {
	HostedURL string `json:"hosted_url"`
}

func (Pending) imageState()  {}
func (Uploaded) imageState() {}

// ImageSlot is one image attached to a review form.
type ImageSlot struct {
	ID        string
	FormID    string
	State     ImageState
	CreatedAt time.Time
}

// slotView is the JSON shape of an ImageSlot.
type slotView struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LocalURL  string `json:"local_url,omitempty"`
	HostedURL string `json:"hosted_url,omitempty"`
}

// View returns the JSON representation of the slot.
func (s ImageSlot) View() any {
	v := slotView{ID: s.ID}
	switch st := s.State.(type) {
	case Pending:
		v.Status = "pending"
		v.LocalURL = st.LocalURL
	case Uploaded:
		v.Status = "uploaded"
		v.HostedURL = st.HostedURL
	}
	return v
}

// UploadFailure records a slot that failed and was removed.
type UploadFailure struct {
	SlotID  string `json:"slot_id"`
	Message string `json:"message"`
}

// UploadedImage is a file hosted by the backend's media store.
type UploadedImage struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}

// UploadFile is one file to send to the backend.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}
