package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"image/color"
	"net/http"

	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSizePx = 300

// QRHandler encodes the url query parameter as a PNG QR code and returns it
// as a JSON-wrapped data URL, ready to drop into an img tag. White modules on
// near-black so the code reads well on the dark display screen.
func QRHandler(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "URL parameter required", http.StatusBadRequest)
		return
	}

	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate QR code")
		http.Error(w, "Error generating QR code", http.StatusInternalServerError)
		return
	}
	q.ForegroundColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	q.BackgroundColor = color.RGBA{R: 0x0a, G: 0x0a, B: 0x0a, A: 0xff}

	png, err := q.PNG(qrSizePx)
	if err != nil {
		log.Error().Err(err).Msg("failed to render QR code")
		http.Error(w, "Error generating QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"qr": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}
