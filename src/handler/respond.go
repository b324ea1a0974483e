package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"brokergateway/src/connectors"
	"brokergateway/src/controller"
	"brokergateway/src/security"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// writeControllerError maps gateway errors onto HTTP statuses. Broker
// auth failures are 502, not 401: the caller's own authentication is
// fine, the stored broker credentials are not.
func writeControllerError(w http.ResponseWriter, err error) {
	var validation *controller.ValidationError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Error()})
	case errors.Is(err, controller.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, controller.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is no longer modifiable"})
	case errors.Is(err, connectors.ErrBrokerAuth):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	case errors.Is(err, connectors.ErrBrokerUnreachable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, connectors.ErrBrokerProtocol):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	case errors.Is(err, security.ErrCrypto):
		logger.WithError(err).Error("credential decryption failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "credential storage error"})
	default:
		logger.WithError(err).Error("unhandled controller error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
}

func uintURLParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}
