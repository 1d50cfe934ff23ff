// Package services orchestrates storage, the exchange-rate cache and the
// sync event publisher for the HTTP handlers and the CLI.
package services

import (
	"context"
	"time"

	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/metrics"
)

// Publisher sends mirror sync events. *amqp.Client satisfies it.
type Publisher interface {
	PublishSync(ctx context.Context, recurso string, id, version int64) error
	PublishDelete(ctx context.Context, recurso string, id int64) error
}

// Actor is the authenticated user performing a request.
type Actor struct {
	Username string
	Rol      string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Rol == core.RolAdmin }

// SystemActor is recorded in historial when no user is attached to the context.
const SystemActor = "sistema"

type actorKey struct{}

// WithActor attaches the acting user to ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the acting user stored in ctx, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok && a.Username != ""
}

func usuario(ctx context.Context) string {
	if a, ok := ActorFrom(ctx); ok {
		return a.Username
	}
	return SystemActor
}

// notifier publishes sync events after a local write. Failures never reach
// the caller: the row is already stored and the worker sweep retries it.
type notifier struct {
	pub    Publisher
	logger *log.Logger
}

func newNotifier(pub Publisher, logger *log.Logger) notifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return notifier{pub: pub, logger: logger.WithComponent(log.ComponentAMQP)}
}

func (n notifier) synced(ctx context.Context, recurso string, id, version int64) {
	if n.pub == nil {
		n.logger.DebugContext(ctx, "AMQP publisher not configured, skipping sync event",
			log.FieldRecurso, recurso, log.FieldRecursoID, id)
		return
	}
	n.result(ctx, recurso, id, n.pub.PublishSync(ctx, recurso, id, version))
}

func (n notifier) deleted(ctx context.Context, recurso string, id int64) {
	if n.pub == nil {
		return
	}
	n.result(ctx, recurso, id, n.pub.PublishDelete(ctx, recurso, id))
}

func (n notifier) result(ctx context.Context, recurso string, id int64, err error) {
	if err != nil {
		metrics.EventsPublished.WithLabelValues(recurso, "error").Inc()
		n.logger.ErrorContext(ctx, "Failed to publish sync event",
			log.FieldRecurso, recurso, log.FieldRecursoID, id, log.FieldError, err)
		return
	}
	metrics.EventsPublished.WithLabelValues(recurso, "ok").Inc()
}

func mutated(recurso, accion string) {
	metrics.Mutations.WithLabelValues(recurso, accion).Inc()
}

// clock is overridden in tests.
type clock func() time.Time
