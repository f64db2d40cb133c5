package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mchmarny/credpulse/pkg/model"
	"github.com/mchmarny/credpulse/pkg/predict"
	"github.com/mchmarny/credpulse/pkg/registry"
)

const requestBodyMaxBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type BundleResponse struct {
	Version  string   `json:"version"`
	Features []string `json:"features"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, &ErrorResponse{Error: msg, Code: code})
}

// errorStatus maps a scoring error to the HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, predict.ErrMissingField):
		return http.StatusBadRequest, "missing_field"
	case errors.Is(err, predict.ErrInvalidField):
		return http.StatusBadRequest, "invalid_field"
	case errors.Is(err, predict.ErrTierMismatch):
		return http.StatusBadRequest, "tier_mismatch"
	case errors.Is(err, registry.ErrUnknownEntity):
		return http.StatusUnprocessableEntity, "unknown_college"
	case errors.Is(err, model.ErrInconsistentFeatureVector):
		return http.StatusInternalServerError, "inconsistent_feature_vector"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func indexHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": appName})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func bundleAPIHandler(svc *predict.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, &BundleResponse{
			Version:  svc.Version(),
			Features: svc.Features(),
		})
	}
}

func predictAPIHandler(svc *predict.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req predict.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestBodyMaxBytes))
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", fmt.Sprintf("invalid request body: %v", err))
			return
		}

		res, err := svc.Predict(r.Context(), &req)
		if err != nil {
			status, code := errorStatus(err)
			if status >= http.StatusInternalServerError {
				slog.Error("prediction failed", "error", err)
			}
			writeError(w, status, code, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
