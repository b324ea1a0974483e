package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"brokergateway/src/connectors"
	"brokergateway/src/controller"
	"brokergateway/src/database"
	"brokergateway/src/security"
	"brokergateway/src/server"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	// The credential key has no default. A missing or malformed key is a
	// startup failure, never a silent fallback.
	vault, err := security.NewVault(security.GetConfig().CredentialsKey)
	if err != nil {
		logger.WithError(err).Fatal("Invalid broker credentials key")
	}

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	registry := connectors.NewRegistry()
	gateway := controller.NewGateway(database.MainDB, registry, vault)

	server.StartServer(server.GetConfig().Port, gateway)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
