package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/G0V1NDS/city-list/store"
	"go.uber.org/zap"
)

type SuccessResponse struct {
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, SuccessResponse{Status: status, Data: data, Message: message})
}

func writeFailure(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Status: status, Message: message, Data: data}})
}

// writeError renders a store error with its own status and data. Anything
// else is logged and reported as a 500.
func writeError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var se *store.Error
	if errors.As(err, &se) && se.Status != 0 {
		var data any
		if len(se.Data) > 0 {
			data = se.Data
		}
		writeFailure(w, se.Status, se.Message, data)
		return
	}
	log.Error(op+": unexpected error", zap.Error(err))
	writeFailure(w, http.StatusInternalServerError, "Internal server error", nil)
}
