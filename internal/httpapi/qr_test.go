package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQRHandler_ReturnsDataURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/qr?url=http://192.168.1.10:3000/controller.html", nil)
	rec := httptest.NewRecorder()

	QRHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		QR string `json:"qr"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, strings.HasPrefix(body.QR, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(body.QR, "data:image/png;base64,"))
	require.NoError(t, err)
	require.Equal(t, "\x89PNG", string(raw[:4]))
}

func TestQRHandler_MissingURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/qr", nil)
	rec := httptest.NewRecorder()

	QRHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
