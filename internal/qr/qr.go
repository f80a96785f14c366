// Package qr renders ticket verification payloads into scannable images.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/gatepass/gatepass/internal/model"
)

// imageSize is the square pixel size of the rendered PNG.
const imageSize = 256

// EncodeTicket serialises the verification payload and renders it as a PNG
// data URL.  The data-URL form lets clients drop the string straight into
// an <img> tag and lets the mail worker inline it as an attachment.
func EncodeTicket(p model.QRPayload) (string, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, imageSize)
	if err != nil {
		return "", fmt.Errorf("encode qr image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
