package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/label-gateway/internal/endpoint"
	"github.com/angeloszaimis/label-gateway/internal/labeling"
	"github.com/angeloszaimis/label-gateway/internal/metrics"
)

const (
	msgMissingImage  = "No image file provided"
	msgMissingPrompt = "text_prompt is required"
	msgUpstream      = "Failed to process image labeling request"
)

// multipartMemory is how much of a form is held in memory before spilling
// file parts to disk.
const multipartMemory = 32 << 20

type Labeler interface {
	Forward(ctx context.Context, req labeling.Request) (*labeling.Result, error)
}

type Warmer interface {
	WarmUp(ctx context.Context, endpoints []*endpoint.Endpoint)
}

type GatewayHandler struct {
	logger         *slog.Logger
	labeler        Labeler
	warmer         Warmer
	endpoints      []*endpoint.Endpoint
	maxUploadBytes int64
	events         chan<- metrics.MetricEvent
}

func NewGatewayHandler(
	logger *slog.Logger,
	labeler Labeler,
	warmer Warmer,
	endpoints []*endpoint.Endpoint,
	maxUploadBytes int64,
	events chan<- metrics.MetricEvent,
) *GatewayHandler {
	return &GatewayHandler{
		logger:         logger,
		labeler:        labeler,
		warmer:         warmer,
		endpoints:      endpoints,
		maxUploadBytes: maxUploadBytes,
		events:         events,
	}
}

// LabelImage handles POST /label-image.
func (h *GatewayHandler) LabelImage(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With(slog.String("request_id", RequestID(r.Context())))

	req, err := h.readRequest(w, r)
	if err != nil {
		log.Warn("Rejected labeling request", slog.Any("err", err))
		h.reject(w, "missing_image", msgMissingImage)
		return
	}

	result, err := h.labeler.Forward(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, labeling.ErrMissingImage):
		h.reject(w, "missing_image", msgMissingImage)
		return
	case errors.Is(err, labeling.ErrMissingPrompt):
		h.reject(w, "missing_prompt", msgMissingPrompt)
		return
	default:
		var upstreamErr *labeling.UpstreamError
		if errors.As(err, &upstreamErr) {
			w.Header().Set("X-Backend-Server", upstreamErr.Endpoint)
		}
		log.Error("Labeling request failed", slog.Any("err", err))
		respondError(w, msgUpstream, http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Backend-Server", result.Endpoint.String())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Body); err != nil {
		log.Warn("Failed to write labeling response", slog.Any("err", err))
	}
}

// readRequest extracts the labeling fields from a multipart body. A body
// that cannot be parsed, or that has no image part, is an error.
func (h *GatewayHandler) readRequest(w http.ResponseWriter, r *http.Request) (labeling.Request, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return labeling.Request{}, err
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		return labeling.Request{}, err
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		return labeling.Request{}, err
	}

	return labeling.Request{
		Image:         image,
		ContentType:   header.Header.Get("Content-Type"),
		Prompt:        r.FormValue("text_prompt"),
		BoxThreshold:  r.FormValue("box_threshold"),
		TextThreshold: r.FormValue("text_threshold"),
	}, nil
}

func (h *GatewayHandler) reject(w http.ResponseWriter, reason, message string) {
	metrics.Send(h.events, metrics.MetricEvent{
		Type:   metrics.EventRequestRejected,
		Reason: reason,
	})
	respondError(w, message, http.StatusBadRequest)
}

// Health handles GET /health. It sweeps every endpoint and always reports
// healthy; probe results only show up in logs and metrics.
func (h *GatewayHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.warmer.WarmUp(r.Context(), h.endpoints)
	respondJSON(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// Redirect sends the client to a fixed asset URL.
func Redirect(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
