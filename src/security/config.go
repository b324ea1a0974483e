package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config carries the credential encryption key. There is deliberately no
// default value: a missing or malformed key must abort startup instead of
// silently substituting a weak key.
type Config struct {
	CredentialsKey string `envconfig:"BROKER_CREDENTIALS_KEY" required:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
