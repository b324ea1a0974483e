package connectors

import (
	"errors"
	"fmt"
)

// Broker failures fall into exactly three classes. Callers decide retry
// policy from the class alone: unreachable is transient, auth is
// terminal, protocol means the broker answered with a shape we do not
// understand. Raw transport errors never escape a connector.
var (
	ErrBrokerUnreachable = errors.New("broker unreachable")
	ErrBrokerAuth        = errors.New("broker authentication failed")
	ErrBrokerProtocol    = errors.New("unexpected broker response")
)

// brokerUnreachable wraps a transport-level failure. The underlying
// error text is kept, it carries no credentials at this layer.
func brokerUnreachable(broker string, err error) error {
	return fmt.Errorf("%s: %w: %v", broker, ErrBrokerUnreachable, err)
}

// brokerAuthFailed deliberately drops the broker response body, which can
// echo submitted credentials back in error messages.
func brokerAuthFailed(broker string) error {
	return fmt.Errorf("%s: %w", broker, ErrBrokerAuth)
}

func brokerProtocol(broker, detail string) error {
	return fmt.Errorf("%s: %w: %s", broker, ErrBrokerProtocol, detail)
}
