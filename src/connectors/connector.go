package connectors

import (
	"context"
	"fmt"

	"brokergateway/src/model"
)

// BrokerConnector is the capability contract every supported broker
// implements. All operations take the decrypted credentials explicitly:
// connectors hold no per-account state, so one connector instance serves
// every account of its broker type. Errors are always one of the three
// classes in errors.go.
type BrokerConnector interface {
	Authenticate(ctx context.Context, creds Credentials) (*AuthResult, error)
	FetchAccountSnapshot(ctx context.Context, creds Credentials) (*AccountSnapshot, error)
	FetchPositions(ctx context.Context, creds Credentials) ([]NormalizedPosition, error)
	FetchOrders(ctx context.Context, creds Credentials) ([]NormalizedOrder, error)
	PlaceOrder(ctx context.Context, creds Credentials, req OrderRequest) (*OrderResult, error)
	ModifyOrder(ctx context.Context, creds Credentials, brokerOrderID string, patch OrderPatch) (*OrderResult, error)
	CancelOrder(ctx context.Context, creds Credentials, brokerOrderID string) (*OrderResult, error)
}

// Registry resolves a connector from a broker type. Resolution happens
// once per gateway call.
type Registry map[model.BrokerType]BrokerConnector

// NewRegistry wires the default connectors from config.
func NewRegistry() Registry {
	config := GetConfig()
	return Registry{
		model.BrokerTypeTradovate: NewTradovateConnector(config),
		model.BrokerTypeTopStep:   NewTopStepConnector(config),
	}
}

// ConnectorFor returns the connector registered for the broker type.
func (r Registry) ConnectorFor(brokerType model.BrokerType) (BrokerConnector, error) {
	connector, ok := r[brokerType]
	if !ok {
		return nil, fmt.Errorf("no connector registered for broker type %q", brokerType)
	}
	return connector, nil
}
