package qrcode

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// GeneratePNG encodes content as a PNG QR code of size x size pixels.
func GeneratePNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("failed to generate QR code: empty content")
	}
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// GenerateQRCode returns the QR code of content as a base64 PNG data URI.
func GenerateQRCode(content string) (string, error) {
	png, err := GeneratePNG(content, DefaultSize)
	if err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
