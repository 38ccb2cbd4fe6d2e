// Package notifier delivers game change events to observers.
package notifier

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
)

type Notifier interface {
	Notify(ctx context.Context, message entity.GameMessage) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, message entity.GameMessage) error

func (that Func) Notify(ctx context.Context, message entity.GameMessage) error {
	return that(ctx, message)
}

// Fanout delivers every event to all its notifiers, even when some of them fail.
type Fanout []Notifier

func NewFanout(notifiers ...Notifier) Fanout {
	return Fanout(notifiers)
}

func (that Fanout) Notify(ctx context.Context, message entity.GameMessage) error {
	var errs []error
	for _, n := range that {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Nop drops every event.
var Nop = Func(func(context.Context, entity.GameMessage) error { return nil })
