package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"brokergateway/src/auth"
	"brokergateway/src/controller"
	"brokergateway/src/handler"
)

// NewRouter mounts every route. Registration and the healthcheck are
// public; everything else requires an authenticated principal.
func NewRouter(gateway *controller.Gateway) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Post("/users", handler.RegisterUserHandler())

	r.Group(func(r chi.Router) {
		r.Use(auth.BasicAuthMiddleware)

		r.Get("/users/me", handler.CurrentUserHandler())

		r.Route("/broker-accounts", func(r chi.Router) {
			r.Post("/", handler.ConnectBrokerAccountHandler(gateway))
			r.Get("/", handler.ListBrokerAccountsHandler(gateway))
			r.Get("/summary", handler.AccountSummaryHandler(gateway))
			r.Route("/{accountID}", func(r chi.Router) {
				r.Get("/", handler.GetBrokerAccountHandler(gateway))
				r.Delete("/", handler.DeleteBrokerAccountHandler(gateway))
				r.Post("/sync", handler.SyncBrokerAccountHandler(gateway))
				r.Post("/test", handler.CheckBrokerConnectionHandler(gateway))
				r.Get("/positions", handler.ListPositionsHandler(gateway))
				r.Get("/orders", handler.ListOrdersHandler(gateway))
				r.Post("/orders", handler.PlaceOrderHandler(gateway))
			})
		})

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Put("/", handler.ModifyOrderHandler(gateway))
			r.Delete("/", handler.CancelOrderHandler(gateway))
		})

		r.Get("/trades", handler.ListTradesHandler(gateway))
	})

	return r
}

func StartServer(port string, gateway *controller.Gateway) {
	r := NewRouter(gateway)

	// Graceful server
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
