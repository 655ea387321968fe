package httpserver

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	appdiag "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/application/diagnosis"
	domain "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/domain/diagnosis"
	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/middleware"
)

type Router struct {
	diagSvc       *appdiag.Service
	maxImageBytes int64
}

func NewRouter(diagSvc *appdiag.Service, maxImageBytes int64) http.Handler {
	r := &Router{diagSvc: diagSvc, maxImageBytes: maxImageBytes}
	mux := chi.NewRouter()

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/diagnoses", r.wrap(r.handleSubmit))
		rt.Get("/diagnoses", r.wrap(r.handleList))
		rt.Get("/diagnoses/latest", r.wrap(r.handleLatest))
		rt.Get("/diagnoses/{id}", r.wrap(r.handleGet))
		rt.Get("/diagnoses/{id}/errors", r.wrap(r.handleErrors))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Get("/workflow", r.wrap(r.handleWorkflow))
		rt.Post("/workflow/reset", r.wrap(r.handleWorkflowReset))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrQuotaExceeded):
				http.Error(w, "model quota exceeded", http.StatusTooManyRequests)
			case errors.Is(err, domain.ErrUnsupportedImage):
				http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			case errors.Is(err, domain.ErrEmptyImage):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// submitPayload is the JSON body alternative to multipart upload.
// image_data accepts plain base64 or a full data URI.
type submitPayload struct {
	ImageData string `json:"image_data"`
	MIMEType  string `json:"mime_type"`
	CropHint  string `json:"crop_hint"`
	Source    string `json:"source"`
	Async     bool   `json:"async"`
	Metadata  any    `json:"metadata"`
}

// POST /v1/{tenant}/diagnoses
// Accepts multipart/form-data with an "image" file, or a JSON body with
// base64 image_data + mime_type. ?async=1 (or "async" in the JSON body)
// queues the work and answers immediately.
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		return err
	}

	cmd := appdiag.SubmitImageCommand{TenantID: tenant}
	async := req.URL.Query().Get("async") == "1" || req.URL.Query().Get("async") == "true"

	ct := req.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := req.ParseMultipartForm(r.maxImageBytes + (1 << 20)); err != nil {
			return err
		}
		file, header, err := req.FormFile("image")
		if err != nil {
			return fmt.Errorf("%w: missing image file", domain.ErrEmptyImage)
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, r.maxImageBytes+1))
		if err != nil {
			return err
		}
		cmd.Image = data
		cmd.MIMEType = header.Header.Get("Content-Type")
		if cmd.MIMEType == "" || cmd.MIMEType == "application/octet-stream" {
			cmd.MIMEType = http.DetectContentType(data)
		}
		cmd.CropHint = middleware.SanitizeString(req.FormValue("crop_hint"))
		cmd.Source = middleware.SanitizeString(req.FormValue("source"))
	} else {
		var body submitPayload
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return err
		}
		data, mime, err := decodeImageData(body.ImageData, body.MIMEType)
		if err != nil {
			return err
		}
		cmd.Image = data
		cmd.MIMEType = mime
		cmd.CropHint = middleware.SanitizeString(body.CropHint)
		cmd.Source = middleware.SanitizeString(body.Source)
		cmd.Metadata = body.Metadata
		async = async || body.Async
	}

	if err := middleware.ValidateImageSize(int64(len(cmd.Image)), r.maxImageBytes); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmptyImage, err)
	}
	if err := middleware.ValidateImageMIME(cmd.MIMEType); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}

	middleware.IncrementDiagnosesTotal()

	if async {
		// Run in the background so the workflow finishes even after the
		// client goes away.
		go func() {
			middleware.IncrementDiagnosesRunning()
			defer middleware.DecrementDiagnosesRunning()

			d, err := r.diagSvc.SubmitImageUntilDone(cmd)
			if err != nil {
				middleware.IncrementDiagnosesFailed()
				log.Printf("background diagnosis error for tenant=%s: %v", tenant, err)
				return
			}
			log.Printf("diagnosis finished: tenant=%s id=%s state=%s", tenant, d.ID, d.State)
		}()

		resp := map[string]any{
			"status":   "queued",
			"tenant":   tenant,
			"message":  "diagnosis started in background",
			"queuedAt": time.Now(),
		}
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(resp)
	}

	middleware.IncrementDiagnosesRunning()
	defer middleware.DecrementDiagnosesRunning()

	d, err := r.diagSvc.SubmitImage(req.Context(), cmd)
	if err != nil {
		middleware.IncrementDiagnosesFailed()
		if d != nil {
			// terminal Failed row exists; answer with it unless the cause
			// needs a dedicated status code
			if errors.Is(err, domain.ErrQuotaExceeded) {
				return err
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			return json.NewEncoder(w).Encode(d)
		}
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(d)
}

// GET /v1/{tenant}/diagnoses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	d, err := r.diagSvc.Get(req.Context(), tenant, domain.DiagnosisID(id))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(d)
}

// GET /v1/{tenant}/diagnoses/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.diagSvc.Latest(req.Context(), tenant, limit)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/diagnoses?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.diagSvc.Paginate(req.Context(), tenant, page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/diagnoses/{id}/errors?limit=
func (r *Router) handleErrors(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.diagSvc.ErrorsFor(req.Context(), tenant, id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/workflow
// Snapshot of the tenant's current analysis slot for rendering.
func (r *Router) handleWorkflow(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(r.diagSvc.Workflow(tenant))
}

// POST /v1/{tenant}/workflow/reset
func (r *Router) handleWorkflowReset(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	r.diagSvc.ResetWorkflow(tenant)
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(r.diagSvc.Workflow(tenant))
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	days = middleware.ValidateDays(days)

	summary, err := r.diagSvc.Summary(req.Context(), tenant, days)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(summary)
}

// decodeImageData handles both plain base64 and data-URI payloads.
func decodeImageData(raw, declaredMIME string) ([]byte, string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", domain.ErrEmptyImage
	}

	mime := declaredMIME
	if strings.HasPrefix(raw, "data:") {
		// data:image/png;base64,AAAA...
		rest := strings.TrimPrefix(raw, "data:")
		semi := strings.Index(rest, ";base64,")
		if semi < 0 {
			return nil, "", fmt.Errorf("%w: malformed data URI", domain.ErrUnsupportedImage)
		}
		if mime == "" {
			mime = rest[:semi]
		}
		raw = rest[semi+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image payload: %w", err)
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}
