package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Mohsinsiddi/w3scan/internal/analytics"
	"github.com/Mohsinsiddi/w3scan/internal/contract"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/network"
	"github.com/Mohsinsiddi/w3scan/internal/scan"
)

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("Failed to write response")
	}
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path": r.URL.Path,
		}).WithError(err).Error("Request failed")
	}
	writeJSON(w, status, envelope{Error: err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, lookup.ErrInvalidInput),
		errors.Is(err, scan.ErrInvalidLimit),
		errors.Is(err, analytics.ErrRangeTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, lookup.ErrNotFound),
		errors.Is(err, contract.ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, network.ErrUnavailableNetwork):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
