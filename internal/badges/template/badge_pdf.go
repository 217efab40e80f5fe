package template

import (
	"bytes"
	"fmt"
	"image/png"

	"ms-badging/assets"
	"ms-badging/internal/models"

	"github.com/signintech/gopdf"
)

const fontName = "badge"

// BadgePDFGenerator lays a badge out on an A4 page for home printing. An empty
// fontPath uses the bundled font.
type BadgePDFGenerator struct {
	fontPath string
	event    models.EventInfo
}

func NewBadgePDFGenerator(fontPath string, event models.EventInfo) *BadgePDFGenerator {
	return &BadgePDFGenerator{fontPath: fontPath, event: event}
}

func (g *BadgePDFGenerator) Generate(badge models.Badge, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := g.addFont(pdf); err != nil {
		return nil, err
	}
	if err := pdf.SetFont(fontName, "", 14); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}

	pdf.SetX(40)
	pdf.SetY(30)
	if err := pdf.Cell(nil, g.event.Name); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	pdf.Br(20)
	pdf.SetX(40)
	pdf.Cell(nil, fmt.Sprintf("%s - %s", g.event.Date, g.event.Venue))

	pdf.SetY(90)
	addBadgeInfo(pdf, badge)

	if len(qrCode) > 0 {
		pdf.SetY(pdf.GetY() + 20)
		if err := addQRCode(pdf, qrCode); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *BadgePDFGenerator) addFont(pdf *gopdf.GoPdf) error {
	if g.fontPath == "" {
		if err := pdf.AddTTFFontData(fontName, assets.BadgeFont); err != nil {
			return fmt.Errorf("failed to load bundled font: %w", err)
		}
		return nil
	}
	if err := pdf.AddTTFFont(fontName, g.fontPath); err != nil {
		return fmt.Errorf("failed to load font %s: %w", g.fontPath, err)
	}
	return nil
}

func addBadgeInfo(pdf *gopdf.GoPdf, badge models.Badge) {
	info := []struct {
		Label string
		Value string
	}{
		{"Name", badge.Name},
		{"Role", badge.ParticipantType.Label(badge.CustomRole)},
		{"Company", badge.Company},
		{"Job Title", badge.JobTitle},
		{"Email", badge.Email},
		{"Badge ID", badge.BadgeID},
	}

	for _, item := range info {
		if item.Value == "" {
			continue
		}
		pdf.SetX(40)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(20)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) error {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		return fmt.Errorf("failed to decode QR code: %w", err)
	}
	if err := pdf.ImageFrom(img, 40, pdf.GetY(), &gopdf.Rect{W: 120, H: 120}); err != nil {
		return fmt.Errorf("failed to draw QR code: %w", err)
	}
	return nil
}
