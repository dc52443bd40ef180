package app

// Phase is the position of the pipeline in its one-way lifecycle.
type Phase string

const (
	PhaseStarting    Phase = "starting"
	PhaseFetching    Phase = "fetching"
	PhaseDispatching Phase = "dispatching"
	PhaseIdle        Phase = "idle"
	PhaseSkipped     Phase = "skipped"
	PhaseFailed      Phase = "failed"
)

func (a *App) setPhase(p Phase) {
	a.phase.Store(p)
}

// Phase reports the current pipeline phase.
func (a *App) Phase() Phase {
	p, _ := a.phase.Load().(Phase)
	return p
}
