package connectors

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// classifyStatus maps a non-transport HTTP status into the error
// taxonomy. 2xx passes, 401/403 is terminal auth failure, 5xx is
// transient, everything else means the broker answered in a way the
// connector does not understand.
func classifyStatus(broker string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 401 || code == 403:
		return brokerAuthFailed(broker)
	case code >= 500:
		return brokerUnreachable(broker, statusError(code))
	default:
		return brokerProtocol(broker, statusDetail(code))
	}
}

func statusError(code int) error {
	return fmt.Errorf("HTTP %d", code)
}

func statusDetail(code int) string {
	return fmt.Sprintf("HTTP %d", code)
}

func strconv64(id int64) string {
	return strconv.FormatInt(id, 10)
}

func floatPtrToDecimal(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

// rawString renders an untyped JSON scalar as a string. Broker order ids
// arrive as numbers from some venues and strings from others.
func rawString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
