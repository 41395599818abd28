package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// ErrTemplateRender indicates the template could not be merged: a required
// placeholder is missing from the document or a field failed to bind.
var ErrTemplateRender = errors.New("template render failed")

// qrImageSlot is the archive path of the placeholder image inside the
// template. The QR bytes replace this entry, so the printed size is
// whatever physical extent the template frame declares, independent of the
// QR image resolution.
const qrImageSlot = "word/media/image1.png"

// Fields is the fixed-shape field map merged into the certificate template.
type Fields struct {
	FullName      string
	CategoryLabel string
	ShortCode     string
	FormattedDate string
	// QRImagePath is a PNG file on disk holding the verification QR.
	QRImagePath string
}

// placeholders maps template placeholder text to the bound field value.
func (f Fields) placeholders() map[string]string {
	return map[string]string{
		"{{nombre_completo}}":   f.FullName,
		"{{tipo_participante}}": f.CategoryLabel,
		"{{codigo}}":            f.ShortCode,
		"{{fecha}}":             f.FormattedDate,
	}
}

// DocxRenderer merges the fixed .docx certificate template with participant
// fields and the QR image.
type DocxRenderer struct{}

// NewDocxRenderer creates a new template renderer.
func NewDocxRenderer() *DocxRenderer {
	return &DocxRenderer{}
}

// Render merges the template at templatePath with fields and returns the
// intermediate .docx document bytes.
func (r *DocxRenderer) Render(templatePath string, fields Fields) ([]byte, error) {
	tmpl, err := docx.ReadDocxFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open template: %v", ErrTemplateRender, err)
	}
	defer tmpl.Close()

	doc := tmpl.Editable()

	content := doc.GetContent()
	for placeholder, value := range fields.placeholders() {
		if !strings.Contains(content, placeholder) {
			return nil, fmt.Errorf("%w: placeholder %s not found in template", ErrTemplateRender, placeholder)
		}
		if err := doc.Replace(placeholder, value, -1); err != nil {
			return nil, fmt.Errorf("%w: failed to bind %s: %v", ErrTemplateRender, placeholder, err)
		}
	}

	if fields.QRImagePath != "" {
		if err := doc.ReplaceImage(qrImageSlot, fields.QRImagePath); err != nil {
			return nil, fmt.Errorf("%w: failed to embed QR image: %v", ErrTemplateRender, err)
		}
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("%w: failed to write document: %v", ErrTemplateRender, err)
	}

	return buf.Bytes(), nil
}
