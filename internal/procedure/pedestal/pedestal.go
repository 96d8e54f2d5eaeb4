// Package pedestal implements the pedestal data acquisition procedure.
// It records baseline detector readings in batches so a long run can be
// interrupted between batches without losing the data already taken.
package pedestal

import (
	"context"
	"fmt"

	qcerrors "github.com/umdcms/qcmanager/internal/errors"
	"github.com/umdcms/qcmanager/internal/procedure"
)

const (
	// DefaultEvents is the total number of events acquired per run.
	DefaultEvents = 5000
	// DefaultBatchSize caps how many events a single acquisition takes.
	DefaultBatchSize = 1000
)

// Pedestal acquires baseline readings from an unstimulated board.
type Pedestal struct {
	// Events is the total number of events to acquire.
	Events int `mapstructure:"events"`
	// BatchSize is the number of events per acquisition batch.
	BatchSize int `mapstructure:"batch_size"`
}

// New returns a pedestal procedure with default settings.
func New() *Pedestal {
	return &Pedestal{
		Events:    DefaultEvents,
		BatchSize: DefaultBatchSize,
	}
}

// Register adds the pedestal procedure to a registry.
func Register(r *procedure.Registry) {
	r.Register(procedure.Entry{
		Name:          "pedestal",
		Description:   "acquire baseline pedestal data from an unstimulated board",
		NeedsHardware: true,
	}, func() procedure.Procedure { return New() })
}

// Name implements procedure.Procedure.
func (p *Pedestal) Name() string { return "pedestal" }

// Description implements procedure.Procedure.
func (p *Pedestal) Description() string {
	return "acquire baseline pedestal data from an unstimulated board"
}

// Arguments implements procedure.Procedure.
func (p *Pedestal) Arguments() map[string]interface{} {
	return map[string]interface{}{
		"events":     p.Events,
		"batch_size": p.BatchSize,
	}
}

// Run acquires p.Events events in batches of p.BatchSize, storing each
// batch as its own data file.
func (p *Pedestal) Run(ctx context.Context, env *procedure.RunEnv) error {
	if p.Events <= 0 {
		return qcerrors.New(qcerrors.ErrProcedure,
			fmt.Sprintf("event count must be positive, got %d", p.Events))
	}
	if p.BatchSize <= 0 {
		return qcerrors.New(qcerrors.ErrProcedure,
			fmt.Sprintf("batch size must be positive, got %d", p.BatchSize))
	}

	batches := (p.Events + p.BatchSize - 1) / p.BatchSize
	env.Logger.Info("starting pedestal acquisition",
		"events", p.Events, "batches", batches)

	remaining := p.Events
	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		env.Progress("pedestal batches", i, batches)

		take := p.BatchSize
		if remaining < take {
			take = remaining
		}
		name := fmt.Sprintf("pedestal_batch%d.raw", i)
		desc := fmt.Sprintf("pedestal batch %d/%d (%d events)", i+1, batches, take)
		if _, err := env.AcquireEvents(ctx, take, name, desc); err != nil {
			return err
		}
		remaining -= take
	}
	env.Progress("pedestal batches", batches, batches)
	return nil
}
