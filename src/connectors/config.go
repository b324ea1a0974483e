package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	TradovateDemoBaseURL string `envconfig:"TRADOVATE_DEMO_BASE_URL" default:"https://demo.tradovateapi.com/v1"`
	TradovateLiveBaseURL string `envconfig:"TRADOVATE_LIVE_BASE_URL" default:"https://live.tradovateapi.com/v1"`
	TradovateAppID       string `envconfig:"TRADOVATE_APP_ID" default:"TradingPlatform"`
	TradovateAppVersion  string `envconfig:"TRADOVATE_APP_VERSION" default:"1.0"`
	TradovateClientID    int    `envconfig:"TRADOVATE_CLIENT_ID" default:"8"`

	TopStepBaseURL string `envconfig:"TOPSTEP_BASE_URL" default:"https://api.projectx.com/v1"`

	RequestTimeout time.Duration `envconfig:"BROKER_REQUEST_TIMEOUT" default:"30s"`
	RetryAttempts  int           `envconfig:"BROKER_RETRY_ATTEMPTS" default:"3"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
