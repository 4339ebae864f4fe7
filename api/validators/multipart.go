package validators

import (
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
)

// FormFile is an optional uploaded file. Callers must Close it.
type FormFile struct {
	Filename    string
	ContentType string
	File        multipart.File
}

func (f *FormFile) Close() error {
	if f == nil || f.File == nil {
		return nil
	}
	return f.File.Close()
}

// ParseMultipart bounds the request body to maxBytes and parses the form.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	memory := maxBytes
	if memory <= 0 {
		memory = 32 << 20
	}
	if err := r.ParseMultipartForm(memory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "upload is too large").WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// OptionalFile returns nil when the field carries no file.
func OptionalFile(r *http.Request, field string) (*FormFile, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file field")
	}
	if header.Size == 0 {
		_ = file.Close()
		return nil, nil
	}
	return &FormFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		File:        file,
	}, nil
}

func FormString(r *http.Request, field string) string {
	return strings.TrimSpace(r.FormValue(field))
}

// FormBool accepts the usual checkbox spellings.
func FormBool(r *http.Request, field string) bool {
	switch strings.ToLower(FormString(r, field)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// FormFloat returns nil for an empty field.
func FormFloat(r *http.Request, field string) (*float64, error) {
	raw := FormString(r, field)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "field must be a number").WithDetails(map[string]any{"field": field})
	}
	return &v, nil
}
