package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"agreementsd/internal/agreements"
	"agreementsd/internal/identity"
)

type fakeVerifier struct {
	id  identity.Identity
	err error
}

func (v fakeVerifier) Verify(context.Context, string) (identity.Identity, error) {
	return v.id, v.err
}

func testAPI(verifier identity.Verifier) *API {
	return &API{
		verifier: verifier,
		config:   Config{RequestTimeout: time.Second},
		log:      zerolog.Nop(),
	}
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		verifier   fakeVerifier
		wantStatus int
	}{
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer token",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "rejected token",
			header:     "Bearer bad",
			verifier:   fakeVerifier{err: identity.ErrInvalidToken},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "accepted token",
			header:     "Bearer good",
			verifier:   fakeVerifier{id: identity.Identity{ID: "user-1", Email: "u@example.com"}},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAPI(tt.verifier)

			var seen agreements.Identity
			handler := a.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = callerIdentity(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/agreements", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && seen.ID != "user-1" {
				t.Fatalf("handler saw identity %+v", seen)
			}
		})
	}
}

func TestRespondServiceError(t *testing.T) {
	a := testAPI(fakeVerifier{})

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not found", err: agreements.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("load: %w", agreements.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "unauthorized", err: agreements.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "validation", err: &agreements.ValidationError{Field: "email", Reason: "bad"}, wantStatus: http.StatusBadRequest},
		{name: "quota", err: agreements.ErrQuotaExceeded, wantStatus: http.StatusOK},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.respondServiceError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRespondServiceErrorQuotaShape(t *testing.T) {
	a := testAPI(fakeVerifier{})

	rec := httptest.NewRecorder()
	a.respondServiceError(rec, agreements.ErrQuotaExceeded)

	var body struct {
		Success         bool `json:"success"`
		UpgradeRequired bool `json:"upgradeRequired"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || !body.UpgradeRequired {
		t.Fatalf("quota body = %+v, want success=false upgradeRequired=true", body)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantNil bool
		wantErr bool
	}{
		{input: "", wantNil: true},
		{input: "   ", wantNil: true},
		{input: "2026-04-01", want: "2026-04-01T00:00:00Z"},
		{input: "2026-04-01T15:04:05Z", want: "2026-04-01T15:04:05Z"},
		{input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("parseDate(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil || got.UTC().Format(time.RFC3339) != tt.want {
				t.Fatalf("parseDate(%q) = %v, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func multipartImage(t *testing.T, field string, width, height int) *http.Request {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "upload.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(buf.Bytes()); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/update-profile-picture", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImageFile(t *testing.T) {
	t.Run("within bounds", func(t *testing.T) {
		req := multipartImage(t, "picture", 200, 200)
		file, err := imageFile(req, "picture", maxPictureDim)
		if err != nil {
			t.Fatalf("imageFile() error = %v", err)
		}
		if file.Name != "upload.png" {
			t.Fatalf("file name = %q", file.Name)
		}
	})

	t.Run("too wide", func(t *testing.T) {
		req := multipartImage(t, "picture", maxPictureDim+1, 100)
		if _, err := imageFile(req, "picture", maxPictureDim); err == nil {
			t.Fatal("oversized image must be rejected")
		}
	})

	t.Run("missing field", func(t *testing.T) {
		req := multipartImage(t, "other", 100, 100)
		if _, err := imageFile(req, "picture", maxPictureDim); err == nil {
			t.Fatal("a missing image field must be rejected")
		}
	})

	t.Run("not an image", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, _ := mw.CreateFormFile("picture", "payload.png")
		_, _ = part.Write([]byte("plain text"))
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/update-profile-picture", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if _, err := imageFile(req, "picture", maxPictureDim); err == nil {
			t.Fatal("non-image bytes must be rejected")
		}
	})
}
