package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"

	"brokergateway/src/auth"
	"brokergateway/src/connectors"
	"brokergateway/src/controller"
	"brokergateway/src/model"
)

type connectAccountPayload struct {
	BrokerType  string                 `json:"broker_type"`
	Credentials connectors.Credentials `json:"credentials"`
}

// ConnectBrokerAccountHandler links a broker account. Credentials are
// verified against the live broker before anything is stored.
func ConnectBrokerAccountHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload connectAccountPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid connect account payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		account, err := gateway.ConnectBrokerAccount(r.Context(), user.ID, strings.TrimSpace(payload.BrokerType), payload.Credentials)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, account)
	}
}

func ListBrokerAccountsHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		accounts, err := gateway.ListBrokerAccounts(r.Context(), user.ID)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, accounts)
	}
}

func GetBrokerAccountHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		accountID, err := uintURLParam(r, "accountID")
		if err != nil {
			http.Error(w, "invalid account id", http.StatusBadRequest)
			return
		}

		account, err := gateway.GetBrokerAccount(r.Context(), user.ID, accountID)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, account)
	}
}

type syncResponse struct {
	Account *model.BrokerAccount    `json:"account"`
	Summary *controller.SyncSummary `json:"summary"`
}

// SyncBrokerAccountHandler triggers an on-demand reconciliation against
// the broker. A broker failure leaves local state untouched and maps to
// 502/503.
func SyncBrokerAccountHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		accountID, err := uintURLParam(r, "accountID")
		if err != nil {
			http.Error(w, "invalid account id", http.StatusBadRequest)
			return
		}

		account, summary, err := gateway.SyncBrokerAccount(r.Context(), user.ID, accountID)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, syncResponse{Account: account, Summary: summary})
	}
}

// CheckBrokerConnectionHandler re-checks the stored credentials against
// the live broker. Nothing broker-issued is echoed back.
func CheckBrokerConnectionHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		accountID, err := uintURLParam(r, "accountID")
		if err != nil {
			http.Error(w, "invalid account id", http.StatusBadRequest)
			return
		}

		if err := gateway.CheckBrokerConnection(r.Context(), user.ID, accountID); err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func DeleteBrokerAccountHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		accountID, err := uintURLParam(r, "accountID")
		if err != nil {
			http.Error(w, "invalid account id", http.StatusBadRequest)
			return
		}

		if err := gateway.DeleteBrokerAccount(r.Context(), user.ID, accountID); err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func AccountSummaryHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		summaries, err := gateway.GetAccountSummary(r.Context(), user.ID)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, summaries)
	}
}
