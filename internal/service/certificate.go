package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/repository"
	"github.com/utafrali/agromarket-storefront/pkg/slug"
)

// Certificate is a rendered PDF and its download name.
type Certificate struct {
	Filename string
	Data     []byte
}

// CertificateService renders the "Verified Producer" certificate of a farmer.
type CertificateService struct {
	sessions repository.SessionRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewCertificateService creates a new certificate service.
func NewCertificateService(sessions repository.SessionRepository, logger *slog.Logger) *CertificateService {
	return &CertificateService{sessions: sessions, logger: logger, now: time.Now}
}

// Render builds the certificate of the signed-in farmer.
func (s *CertificateService) Render(ctx context.Context, sid string) (*Certificate, error) {
	sess, err := farmer(ctx, s.sessions, sid)
	if err != nil {
		return nil, err
	}
	user := *sess.Auth.User
	issued := s.now().UTC()

	data, err := renderCertificate(user, issued)
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	name := user.FarmName
	if name == "" {
		name = user.Name
	}
	s.logger.InfoContext(ctx, "certificate issued", slog.String("user_id", user.ID))
	return &Certificate{
		Filename: slug.GenerateOr(name, "farmer") + "-certificate.pdf",
		Data:     data,
	}, nil
}

func renderCertificate(user domain.User, issued time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Verified Producer Certificate", true)
	pdf.SetCreator("AgroMarket", true)
	pdf.SetCreationDate(issued)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	w, h := pdf.GetPageSize()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// header band
	pdf.LinearGradient(0, 0, w, 48, 34, 139, 34, 154, 205, 50, 0, 0, 1, 0)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetXY(0, 12)
	pdf.CellFormat(w, 14, "VERIFIED PRODUCER", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(w, 8, "AgroMarket Certificate of Authenticity", "", 1, "C", false, 0, "")

	// frame
	pdf.SetDrawColor(34, 139, 34)
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 56, w-20, h-66, "D")

	pdf.SetTextColor(60, 60, 60)
	pdf.SetFont("Helvetica", "", 14)
	pdf.SetXY(0, 74)
	pdf.CellFormat(w, 10, "This certifies that", "", 1, "C", false, 0, "")

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.CellFormat(w, 16, tr(user.Name), "", 1, "C", false, 0, "")

	if user.FarmName != "" {
		pdf.SetFont("Helvetica", "I", 16)
		pdf.CellFormat(w, 10, tr("of "+user.FarmName), "", 1, "C", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetTextColor(60, 60, 60)
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(w, 8, "is a verified producer on the AgroMarket marketplace.", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetXY(20, h-34)
	pdf.CellFormat(w/2-20, 8, "Issued "+issued.Format("2 January 2006"), "", 0, "L", false, 0, "")
	pdf.CellFormat(w/2-20, 8, "Producer ID "+user.ID, "", 0, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
