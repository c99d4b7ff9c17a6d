package activation

// Result of reconciling the persisted activation flag with the observed
// process state.
type Result struct {
	Active bool
	// NeedsPersist is set when the stored flag is stale and must be
	// rewritten as false.
	NeedsPersist bool
}

// Reconcile is active only when the flag is set and the process is alive.
// A running process without the flag is not reported as active.
func Reconcile(persisted, running bool) Result {
	if persisted && !running {
		return Result{Active: false, NeedsPersist: true}
	}

	return Result{Active: persisted && running}
}
