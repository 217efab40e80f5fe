package qr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

var (
	ErrEmptyPayload   = errors.New("qr payload is empty")
	ErrInvalidPayload = errors.New("qr payload is not valid UTF-8")
)

type QRGenerator struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQRGenerator(size int) *QRGenerator {
	if size <= 0 {
		size = DefaultSize
	}
	return &QRGenerator{size: size, level: qrcode.Medium}
}

// EventBadgePayload is what a scanner reads back from an event badge: the raw
// participant id, no wrapping.
func EventBadgePayload(participantID string) string {
	return participantID
}

// PersonalBadgePayload is what a scanner reads back from a personal badge.
func PersonalBadgePayload(qrHandle string) string {
	return qrHandle
}

// Encode renders payload as a PNG.
func (q *QRGenerator) Encode(payload string) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, ErrEmptyPayload
	}
	if !utf8.ValidString(payload) {
		return nil, ErrInvalidPayload
	}

	png, err := qrcode.Encode(payload, q.level, q.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURI wraps encoded PNG bytes for inline use in HTML badges.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
