package gateway

import "fmt"

// AuthError reports a failed brokerage login. The engine stays idle until
// re-authentication succeeds.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway auth failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("gateway auth failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// OrderError reports a rejected order. The caller rolls back the intended
// instrument state change so ledger and brokerage cannot diverge.
type OrderError struct {
	Symbol string
	Side   string
	Err    error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order rejected: %s %s: %v", e.Side, e.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }
