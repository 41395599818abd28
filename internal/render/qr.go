// Package render produces the pieces merged into a certificate document:
// the verification QR image and the rendered .docx intermediate.
package render

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRPNG encodes url into a PNG QR image of the given pixel size. Medium
// error correction keeps scans working after print degradation without
// inflating the symbol the way the highest level would. The encoder's
// default quiet-zone border is kept.
func QRPNG(url string, size int) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR image: %w", err)
	}
	return png, nil
}
