package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"backoffice/internal/amqp"
	"backoffice/internal/core"
	"backoffice/internal/export"
	"backoffice/internal/log"
	"backoffice/internal/services"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var fe fieldErrors
	var br badRequest
	switch {
	case errors.As(err, &fe), errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrUnknownGranularity),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMissingID),
		errors.Is(err, amqp.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNegativeQuantity),
		errors.Is(err, core.ErrUnknownRow),
		errors.Is(err, core.ErrDuplicateSupplier),
		errors.Is(err, core.ErrDuplicateRow),
		errors.Is(err, core.ErrDuplicateDate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrExportsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs the failure and writes a JSON error body. Internal
// errors are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var fe fieldErrors
	if errors.As(err, &fe) {
		resp = errorResponse{Error: "invalid request", Fields: fe}
	}

	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithOperation(op).WithError(err).ToSlice()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
		resp = errorResponse{Error: http.StatusText(status)}
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields...)
	}
	writeJSON(w, status, resp)
}

func writeWorkbook(w http.ResponseWriter, r *http.Request, op, filename string, wb *export.Workbook) {
	defer wb.Close()
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := wb.WriteTo(w); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to stream workbook",
			log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	}
}
