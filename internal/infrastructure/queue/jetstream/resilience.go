package jetstream

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/infrastructure/resilience"
)

func classifyBrokerError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Classification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrNoResponders) {
		return resilience.Classification{Retryable: true, RecordFailure: true}
	}
	return resilience.Classification{RecordFailure: true}
}

// wrapBrokerIfNeeded marks connectivity failures as broker errors so the
// dispatcher can distinguish "broker down" (fall back inline) from a bad
// task (surface to the caller).
func wrapBrokerIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrBroker) {
		return err
	}
	class := classifyBrokerError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrBroker, operation, err)
	}
	return err
}
