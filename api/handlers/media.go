package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	cldapi "github.com/cloudinary/cloudinary-go/v2/api"

	"github.com/linesmerrill/grievance-api/config"
)

// Media issues signed parameters so clients upload evidence and proof images
// straight to Cloudinary. Only the resulting URL ever reaches this api.
type Media struct {
	Cloudinary config.CloudinaryConfig
	Now        func() time.Time
}

// SignatureHandler generates a signature for Cloudinary uploads
func (m Media) SignatureHandler(w http.ResponseWriter, r *http.Request) {
	if m.Cloudinary.APISecret == "" {
		config.ErrorStatus("media uploads are not configured", http.StatusServiceUnavailable, w, fmt.Errorf("missing cloudinary api secret"))
		return
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	timestamp := strconv.FormatInt(now().Unix(), 10)

	params := url.Values{}
	params.Set("timestamp", timestamp)
	if m.Cloudinary.UploadPreset != "" {
		params.Set("upload_preset", m.Cloudinary.UploadPreset)
	}
	signature, err := cldapi.SignParameters(params, m.Cloudinary.APISecret)
	if err != nil {
		config.ErrorStatus("failed to sign upload", http.StatusInternalServerError, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"timestamp":    timestamp,
		"signature":    signature,
		"apiKey":       m.Cloudinary.APIKey,
		"cloudName":    m.Cloudinary.CloudName,
		"uploadPreset": m.Cloudinary.UploadPreset,
	})
}
