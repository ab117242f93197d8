package core

import (
	"context"
	"errors"

	"github.com/timzifer/rtqueue/internal/telemetry"
)

// Stage beschreibt einen Schritt beim Aufbau eines Objekts.
//
// Prepare reserviert die Ressource des Schritts und liefert Publish-/Abort-
// Callbacks. Erst wenn alle Schritte erfolgreich vorbereitet wurden, ruft der
// Orchestrator die Publish-Callbacks auf. Bei Fehlern oder Kontextabbruch
// werden die Abort-Callbacks der bereits vorbereiteten Schritte in umgekehrter
// Reihenfolge ausgeführt.
type Stage interface {
	Prepare(ctx context.Context) (publish func(), abort func(), err error)
}

// StageFunc adapts a plain function to Stage.
type StageFunc func(ctx context.Context) (publish func(), abort func(), err error)

// Prepare calls f.
func (f StageFunc) Prepare(ctx context.Context) (func(), func(), error) { return f(ctx) }

// Orchestrator führt eine feste Folge von Stages aus.
type Orchestrator struct {
	stages  []Stage
	metrics *telemetry.BuildMetrics
}

type observerKey struct{}

// WithObserver returns a context that notifies observer about the final
// outcome of Run. On success the observer is invoked immediately before the
// publish callbacks are executed; on failure it is invoked after the abort
// callbacks ran and before the error is returned to the caller.
func WithObserver(ctx context.Context, observer func(error)) context.Context {
	if observer == nil {
		return ctx
	}
	return context.WithValue(ctx, observerKey{}, observer)
}

// NewOrchestrator erzeugt einen Orchestrator. metrics darf nil sein.
func NewOrchestrator(metrics *telemetry.BuildMetrics, stages ...Stage) *Orchestrator {
	return &Orchestrator{
		stages:  append([]Stage(nil), stages...),
		metrics: metrics,
	}
}

// Run bereitet alle Stages vor und veröffentlicht sie, oder rollt alles zurück.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	finish := o.metrics.Trace()
	defer func() { finish(err) }()

	observer, _ := ctx.Value(observerKey{}).(func(error))

	publishes := make([]func(), 0, len(o.stages))
	aborts := make([]func(), 0, len(o.stages))

	for _, stage := range o.stages {
		if err = ctx.Err(); err != nil {
			break
		}
		if stage == nil {
			err = errors.New("core: nil stage")
			break
		}
		var publish, abort func()
		publish, abort, err = stage.Prepare(ctx)
		if err != nil {
			break
		}
		if publish == nil {
			publish = func() {}
		}
		if abort == nil {
			abort = func() {}
		}
		publishes = append(publishes, publish)
		aborts = append(aborts, abort)
	}

	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		for i := len(aborts) - 1; i >= 0; i-- {
			aborts[i]()
		}
		if observer != nil {
			observer(err)
		}
		return err
	}

	if observer != nil {
		observer(nil)
	}
	for _, publish := range publishes {
		publish()
	}
	return nil
}
