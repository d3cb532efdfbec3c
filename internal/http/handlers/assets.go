package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Multipart uploads are capped well above any reasonable reference image.
const assetUploadMaxBytes = 32 << 20

// AssetUpload accepts a multipart reference image and forwards it to the
// provider's asset store.
func (a *App) AssetUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(assetUploadMaxBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, assetUploadMaxBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read upload")
		return
	}
	if len(data) > assetUploadMaxBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "file exceeds upload limit")
		return
	}

	provider := strings.TrimSpace(r.FormValue("provider"))
	if provider == "" {
		provider = "runway"
	}
	contentType := header.Header.Get("Content-Type")

	asset, err := a.Orchestrator.UploadAsset(r.Context(), provider, data, header.Filename, contentType)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"status": "success",
		"asset":  asset,
	})
}

// AssetList returns a page of the provider's uploaded assets.
func (a *App) AssetList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	provider := strings.TrimSpace(q.Get("provider"))
	if provider == "" {
		provider = "runway"
	}
	mediaType := q.Get("mediaType")
	if mediaType == "" {
		mediaType = "image"
	}
	offset := parseIntDefault(q.Get("offset"), 0)
	limit := parseIntDefault(q.Get("limit"), 50)

	assets, err := a.Orchestrator.ListAssets(r.Context(), provider, mediaType, offset, limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"status": "success",
		"assets": assets,
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}
