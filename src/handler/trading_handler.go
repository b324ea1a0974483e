package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"brokergateway/src/auth"
	"brokergateway/src/connectors"
	"brokergateway/src/controller"
)

// PlaceOrderHandler routes a new order to the account's broker. The
// request is validated before any broker call; rejected orders leave no
// trace.
func PlaceOrderHandler(gateway *controller.Gateway) http.HandlerFunc {
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

		var req connectors.OrderRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			logger.WithError(err).Warn("invalid place order payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		order, err := gateway.PlaceOrder(r.Context(), user.ID, accountID, req)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

func ModifyOrderHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		orderID, err := uintURLParam(r, "orderID")
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var patch connectors.OrderPatch
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&patch); err != nil {
			logger.WithError(err).Warn("invalid modify order payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		order, err := gateway.ModifyOrder(r.Context(), user.ID, orderID, patch)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func CancelOrderHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		orderID, err := uintURLParam(r, "orderID")
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := gateway.CancelOrder(r.Context(), user.ID, orderID)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func ListPositionsHandler(gateway *controller.Gateway) http.HandlerFunc {
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

		positions, err := gateway.ListOpenPositions(r.Context(), user.ID, accountID)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, positions)
	}
}

func ListOrdersHandler(gateway *controller.Gateway) http.HandlerFunc {
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

		orders, err := gateway.ListOrders(r.Context(), user.ID, accountID)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

// ListTradesHandler returns executions across the user's accounts, or a
// single account when ?accountId= is given.
func ListTradesHandler(gateway *controller.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var accountID *uint
		if accountParam := r.URL.Query().Get("accountId"); accountParam != "" {
			id, err := strconv.ParseUint(accountParam, 10, 64)
			if err != nil {
				http.Error(w, "invalid accountId", http.StatusBadRequest)
				return
			}
			account := uint(id)
			accountID = &account
		}

		trades, err := gateway.ListTrades(r.Context(), user.ID, accountID)
		if err != nil {
			writeControllerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, trades)
	}
}
