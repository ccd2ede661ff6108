package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"agreementsd/internal/agreements"
)

// Upload limits. Agreement sources may be large PDFs; everything else is
// small enough to hold in memory.
const (
	maxAgreementPDF  = 100 << 20
	maxAgreementText = 50 << 10
	maxImageSize     = 3 << 20
	maxMultipartMem  = 32 << 20

	maxPictureDim = 500
	maxLogoDim    = 1000
)

// formFile reads one optional multipart file into memory, bounded by
// maxSize. A missing field returns (nil, nil).
func formFile(r *http.Request, field string, maxSize int64) (*agreements.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	defer file.Close()

	if header.Size > maxSize {
		return nil, fmt.Errorf("%s exceeds the %d byte limit", field, maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s exceeds the %d byte limit", field, maxSize)
	}

	return &agreements.FileUpload{
		Name:        filepath.Base(header.Filename),
		ContentType: contentType(header),
		Data:        data,
	}, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// agreementFile validates an uploaded agreement source: a PDF up to 100MB or
// a plain-text file up to 50KB.
func agreementFile(r *http.Request) (*agreements.FileUpload, error) {
	file, err := formFile(r, "agreementFile", maxAgreementPDF)
	if err != nil || file == nil {
		return file, err
	}

	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".pdf":
		return file, nil
	case ".txt":
		if int64(len(file.Data)) > maxAgreementText {
			return nil, fmt.Errorf("text agreements are limited to %d bytes", maxAgreementText)
		}
		return file, nil
	default:
		return nil, errors.New("agreement file must be a .pdf or .txt")
	}
}

// imageFile validates an uploaded jpeg or png against a size and dimension
// cap. The field is mandatory.
func imageFile(r *http.Request, field string, maxDim int) (*agreements.FileUpload, error) {
	file, err := formFile(r, field, maxImageSize)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%s file is required", field)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(file.Data))
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid image", field)
	}
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("%s must be a jpeg or png", field)
	}
	if cfg.Width > maxDim || cfg.Height > maxDim {
		return nil, fmt.Errorf("%s is limited to %dx%d pixels", field, maxDim, maxDim)
	}
	return file, nil
}
