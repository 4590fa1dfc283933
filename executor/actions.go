package executor

import (
	"context"
	"fmt"

	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/notify"
)

// warn sends the warning e-mail
func (d *Dispatcher) warn(ctx context.Context, rec inventory.Record, msg notify.Message, out Outcome) Outcome {
	logger := d.logger.WithContext(ctx)

	if d.options.DryRun {
		out.Status = StatusWarned
		logger.Info().
			Str("workspace_id", rec.ID).
			Str("decision", out.Decision.String()).
			Msg("dry run: would warn owner")
		d.record(ctx, "notify", out)
		return out
	}

	if err := d.sender.Send(ctx, d.recipients(rec), msg.Subject, msg.HTML); err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: %w", ErrNotificationFailed, err)
		logger.Error().
			Err(err).
			Str("workspace_id", rec.ID).
			Msg("warning notification failed")
		d.record(ctx, "notify", out)
		return out
	}

	out.Status = StatusWarned
	logger.Info().
		Str("workspace_id", rec.ID).
		Str("owner", rec.Owner).
		Int("days_remaining", out.Decision.DaysRemaining).
		Msg("owner warned")
	d.record(ctx, "notify", out)
	return out
}

// terminate removes the workspace, then tells the owner. A failed e-mail
// does not change the fact that the workspace is gone.
func (d *Dispatcher) terminate(ctx context.Context, rec inventory.Record, msg notify.Message, out Outcome) Outcome {
	logger := d.logger.WithContext(ctx)

	if d.options.DryRun {
		out.Status = StatusTerminated
		logger.Info().
			Str("workspace_id", rec.ID).
			Str("decision", out.Decision.String()).
			Msg("dry run: would terminate workspace")
		d.record(ctx, "terminate", out)
		return out
	}

	err := d.exec.Run(ctx, "Terminate", func(ctx context.Context) error {
		return d.terminator.Terminate(ctx, rec.ID)
	})
	if err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: %w", ErrTerminationFailed, err)
		logger.Error().
			Err(err).
			Str("workspace_id", rec.ID).
			Msg("termination failed")
		d.record(ctx, "terminate", out)
		return out
	}

	out.Status = StatusTerminated
	logger.Warn().
		Str("workspace_id", rec.ID).
		Str("owner", rec.Owner).
		Str("reason", string(out.Decision.Reason)).
		Msg("workspace terminated")
	d.record(ctx, "terminate", out)

	if err := d.sender.Send(ctx, d.recipients(rec), msg.Subject, msg.HTML); err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrNotificationFailed, err)
		logger.Error().
			Err(err).
			Str("workspace_id", rec.ID).
			Msg("termination notice failed")
	}
	d.record(ctx, "notify", out)
	return out
}
