package shared

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"tbscrm/internal/platform/metrics"
	"tbscrm/internal/platform/storage"
	"tbscrm/internal/transport/http/api"
)

// ObjectStore is the part of the object storage used by upload endpoints.
type ObjectStore interface {
	Put(ctx context.Context, bucket, objectPath string, r io.Reader) (storage.Object, error)
	Delete(ctx context.Context, bucket, objectPath string) error
}

// multipart overhead allowed on top of the file itself
const formSlack = 1 << 20

// FormFile opens the "file" part of a multipart upload.
func FormFile(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, *multipart.FileHeader, bool) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formSlack)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds size limit", RequestID(r))
			return nil, nil, false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "multipart form expected", RequestID(r))
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "file_required", "form field \"file\" is required", RequestID(r))
		return nil, nil, false
	}
	return file, header, true
}

// StoreUpload writes an uploaded part to the object store and records it.
func StoreUpload(w http.ResponseWriter, r *http.Request, objects ObjectStore, collector *metrics.Collector, bucket, objectPath string, file io.Reader) (storage.Object, bool) {
	obj, err := objects.Put(r.Context(), bucket, objectPath, file)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds size limit", RequestID(r))
		return storage.Object{}, false
	case errors.Is(err, storage.ErrInvalidPath):
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "invalid file name", RequestID(r))
		return storage.Object{}, false
	case err != nil:
		StoreUnavailable(w, r, "object upload", err)
		return storage.Object{}, false
	}
	collector.RecordUpload(obj.Size)
	return obj, true
}
