package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/G0V1NDS/city-list/ingest"
	"github.com/G0V1NDS/city-list/store"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	uploadField      = "file"
	multipartOverrun = 1 << 20
	MsgInvalidCSV    = "Invalid CSV file"
)

// allowedCSVTypes are the declared part types accepted without question.
var allowedCSVTypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
}

// genericTypes are declared types that say nothing; the content decides.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"text/plain":               true,
}

// ImportCSV loads the whole hierarchy from the uploaded file.
func (h *Handlers) ImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.upload.MaxSize+multipartOverrun)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, "File too large", nil)
			return
		}
		h.log.Debug("ImportCSV: no file", zap.Error(err))
		writeFailure(w, http.StatusBadRequest, "File is required",
			[]map[string]string{{"file": fmt.Sprintf("multipart field %q is required", uploadField)}})
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if status, msg := h.checkUpload(file, header); status != 0 {
		h.log.Info("ImportCSV: upload rejected",
			zap.String("filename", header.Filename),
			zap.Int64("size", header.Size),
			zap.String("reason", msg))
		writeFailure(w, status, msg, nil)
		return
	}

	manifest, err := h.importer.Import(r.Context(), file)
	if err != nil {
		var structural *ingest.StructuralError
		if errors.As(err, &structural) {
			writeFailure(w, http.StatusUnprocessableEntity, MsgInvalidCSV, structuralData(structural))
			return
		}
		writeError(w, h.log, "ImportCSV", err)
		return
	}

	h.log.Info("ImportCSV: done",
		zap.String("filename", header.Filename),
		zap.String("importId", manifest.ImportID),
		zap.Int("rows", manifest.Rows))
	writeSuccess(w, http.StatusOK, manifest, store.MsgSuccessful)
}

// checkUpload enforces the size bounds and the content type. It returns a
// zero status when the file is acceptable. The file is rewound afterwards.
func (h *Handlers) checkUpload(file multipart.File, header *multipart.FileHeader) (int, string) {
	if header.Size > h.upload.MaxSize {
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("File must be at most %d bytes", h.upload.MaxSize)
	}
	if header.Size < h.upload.MinSize {
		return http.StatusBadRequest, fmt.Sprintf("File must be at least %d bytes", h.upload.MinSize)
	}

	declared, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if !allowedCSVTypes[declared] && !genericTypes[declared] {
		return http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported file type %q", declared)
	}

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return http.StatusBadRequest, "Could not read file"
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return http.StatusBadRequest, "Could not read file"
	}
	if !isText(detected) {
		return http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported file content %q", detected.String())
	}
	return 0, ""
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("text/csv") {
			return true
		}
	}
	return false
}

func structuralData(e *ingest.StructuralError) []map[string]string {
	if len(e.Rows) == 0 {
		return []map[string]string{{"file": e.Err.Error()}}
	}
	data := make([]map[string]string, 0, len(e.Rows))
	for _, row := range e.Rows {
		data = append(data, map[string]string{fmt.Sprintf("line,%d", row.Line): row.Reason})
	}
	return data
}
