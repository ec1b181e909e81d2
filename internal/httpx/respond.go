package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/evanhart/shopfront/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, orders.ErrUnknownAction):
		return http.StatusBadRequest, "unknown_action"
	case errors.Is(err, orders.ErrValidation):
		return http.StatusBadRequest, "validation_failure"
	case errors.Is(err, orders.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, orders.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, kind := errorStatus(err)
	writeJSON(w, code, errorBody{Error: err.Error(), Code: kind})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Code: "bad_request"})
}
