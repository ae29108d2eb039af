package handlers

import (
	"net/http"
	"strings"
)

const (
	maxUploadSize = 25 << 20
	defaultBucket = "audioguide"
	defaultDir    = "uploads"
)

// Upload stores a multipart "file" field and returns its path and public URL.
// Optional form fields "bucket" and "dir" choose where it goes.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.jsonError(w, "File too large or invalid form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.jsonError(w, "Please select a file to upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	bucket := strings.TrimSpace(r.FormValue("bucket"))
	if bucket == "" {
		bucket = defaultBucket
	}
	dir := strings.TrimSpace(r.FormValue("dir"))
	if dir == "" {
		dir = defaultDir
	}

	d := currentDevice(r)
	obj, err := d.Media.Upload(r.Context(), d.Session, bucket, dir, header.Filename,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, obj)
}
