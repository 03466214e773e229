package server

import (
	"encoding/json"
	"errors"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/lti-tool/internal/serviceerr"
)

// ErrorModel is the JSON body of every failed request.
type ErrorModel struct {
	Error            string  `json:"error"`
	ErrorDescription *string `json:"error_description,omitempty"`
}

func toErrorModel(err error) (model ErrorModel, httpStatus int) {
	var serviceErr *serviceerr.Error
	if !errors.As(err, &serviceErr) {
		serviceErr = serviceerr.ErrUnknown
	}

	return ErrorModel{
		Error:            string(serviceErr.Err),
		ErrorDescription: &serviceErr.Description,
	}, serviceErr.HTTPStatus()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body, status := toErrorModel(err)
	if status >= http.StatusInternalServerError {
		slogctx.Error(r.Context(), "Request failed", "error", err)
	} else {
		slogctx.Info(r.Context(), "Request rejected", "error", err)
	}

	writeJSON(w, r, status, body)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slogctx.Error(r.Context(), "Failed to write response body", "error", err)
	}
}
