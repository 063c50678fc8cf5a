// Package httpx holds the JSON plumbing shared by the RPC handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/clerapp/platform/pkg/common/validation"
)

type errorResponse struct {
	Error  string                   `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Decode reads a JSON body, answering 400 itself on failure.
func Decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return false
	}
	return true
}

// WriteError maps validation failures to 400 with field detail, any of the
// notFound sentinels to 404 with the sentinel's message, and everything else
// to a logged 500.
func WriteError(w http.ResponseWriter, op string, err error, notFound ...error) {
	if fields := validation.Fields(err); fields != nil {
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
		return
	}
	for _, sentinel := range notFound {
		if errors.Is(err, sentinel) {
			WriteJSON(w, http.StatusNotFound, errorResponse{Error: sentinel.Error()})
			return
		}
	}
	logger.Log.WithError(err).WithField("operation", op).Error("request failed")
	WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
