package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"brokergateway/src/connectors"
	"brokergateway/src/controller"
	"brokergateway/src/database"
	"brokergateway/src/security"
	"brokergateway/src/server"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Broker Gateway CMD"
	app.Usage = "The broker gateway command line interface"

	app.Commands = []cli.Command{
		serveCMD,
		genKeyCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the broker gateway API server",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the broker gateway API server`,
	}
	genKeyCMD = cli.Command{
		Name:        "genkey",
		Usage:       "generate a broker credentials encryption key",
		Action:      genKeyAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Generate a fresh BROKER_CREDENTIALS_KEY value`,
	}
)

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting broker gateway server")

	vault, err := security.NewVault(security.GetConfig().CredentialsKey)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid broker credentials key")
	}

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	registry := connectors.NewRegistry()
	gateway := controller.NewGateway(database.MainDB, registry, vault)

	server.StartServer(server.GetConfig().Port, gateway)
	return nil
}

func genKeyAction(_ *cli.Context) error {
	key, err := security.GenerateKey()
	if err != nil {
		logrus.WithError(err).Error("Generating key")
		return err
	}

	fmt.Println(key)
	return nil
}
