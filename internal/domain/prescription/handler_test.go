package prescription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medicare/hms/internal/platform/auth"
	"github.com/medicare/hms/internal/platform/gateway"
	"github.com/medicare/hms/internal/platform/notification"
)

func newServer(t *testing.T) (*echo.Echo, *gateway.Memory) {
	t.Helper()
	gw := gateway.NewMemory()
	gw.AddSession("tok", &gateway.Session{UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)})

	e := echo.New()
	api := e.Group("/api/v1", auth.Extract())
	NewHandler(NewService(gw, testBucket, notification.NewMemory())).RegisterRoutes(api)
	return e, gw
}

func multipartBody(t *testing.T, fields map[string]string, imageName string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if imageName != "" {
		part, err := w.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatal(err)
		}
		io.Copy(part, bytes.NewReader(imageData))
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHandlerCreate_MultipartWithImage(t *testing.T) {
	e, gw := newServer(t)

	body, contentType := multipartBody(t, validFields(), "photo.png", []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rows, _ := gw.Select(context.Background(), Table, gateway.SelectOptions{})
	if len(rows) != 1 {
		t.Fatalf("expected 1 prescription, got %d", len(rows))
	}
	url, _ := rows[0]["image_url"].(string)
	if url == "" {
		t.Error("expected stored image_url")
	}
}

func TestHandlerCreate_WithoutImage(t *testing.T) {
	e, gw := newServer(t)

	body, contentType := multipartBody(t, validFields(), "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rows, _ := gw.Select(context.Background(), Table, gateway.SelectOptions{})
	if rows[0]["image_url"] != nil {
		t.Errorf("expected null image_url, got %v", rows[0]["image_url"])
	}
}

func TestHandlerCreate_MissingField(t *testing.T) {
	e, _ := newServer(t)

	fields := validFields()
	fields["medication"] = ""
	body, contentType := multipartBody(t, fields, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerPatientOptions(t *testing.T) {
	e, gw := newServer(t)
	ctx := context.Background()
	gw.Insert(ctx, patientsTable, gateway.Record{"name": "Beta", "contact_number": "2"}, "")
	gw.Insert(ctx, patientsTable, gateway.Record{"name": "Alpha", "contact_number": "1"}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/options", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var opts []PatientOption
	if err := json.Unmarshal(rec.Body.Bytes(), &opts); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(opts) != 2 || opts[0].Name != "Alpha" {
		t.Errorf("expected name-ordered options, got %+v", opts)
	}
}
