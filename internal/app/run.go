package app

import (
	"context"
	"fmt"

	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/dispatch"
	"github.com/vk/dashboot/internal/loader"
)

// Run executes one bootstrap: fetch the configuration, then dispatch it to
// the configured unit. Every call is an independent run. With the health
// check server enabled, a successful run stays idle until ctx is done so the
// final phase stays observable.
func (a *App) Run(ctx context.Context) error {
	ctx = a.runContext(ctx)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer func() { _ = a.closeHealthcheckServer(ctx) }()
	}

	if err := a.pipeline(ctx); err != nil {
		a.setPhase(PhaseFailed)
		return err
	}

	if a.httpServer != nil {
		a.logger.Info("Idle, waiting for shutdown signal.", "phase", string(a.Phase()))
		<-ctx.Done()
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) pipeline(ctx context.Context) error {
	a.setPhase(PhaseFetching)
	var res loader.Result
	select {
	case res = <-loader.Start(ctx, a.loader):
	case <-ctx.Done():
		return fmt.Errorf("configuration fetch abandoned: %w", ctx.Err())
	}

	if res.Err != nil {
		if a.config.OnFailure == config.FailureSurface {
			return fmt.Errorf("failed to load configuration: %w", res.Err)
		}
		a.setPhase(PhaseSkipped)
		a.logger.Warn("Configuration unavailable, dispatch skipped.", "error", res.Err, "on_failure", string(a.config.OnFailure))
		return nil
	}
	a.logger.Info("Configuration loaded.")

	a.setPhase(PhaseDispatching)
	d := dispatch.New(a.registry, dispatch.UnitSpec{
		Name:        a.config.Unit,
		Args:        a.config.UnitArgs,
		EvalContext: a.config.EvalContext,
	})
	if err := d.Dispatch(ctx, res.Config); err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}

	a.setPhase(PhaseIdle)
	a.logger.Info("🏁 Dispatch finished.")
	return nil
}
