package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/aniZ2/soledgic-sub004/internal/services"
)

// decodeBody reads a single JSON object from the request body, rejecting
// unknown fields and trailing content. Returns false after writing the error
// response, so callers can just bail.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// sendServiceError maps service-layer errors onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, err error) {
	services.SendErrorResponse(w, err.Error(), services.HTTPStatus(err), nil)
}
