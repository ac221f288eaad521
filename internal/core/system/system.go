package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: script reloads, external commands
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: advance every pool one phase step
	PhasePostUpdate              // 3: gameplay reactions (spawns, expiry)
	PhaseOutput                  // 4: metrics sampling
	PhasePersist                 // 5: journal flush
	PhaseCleanup                 // 6: grant requests, reclaim killed slots
)

var phaseNames = [...]string{"input", "pre_update", "update", "post_update", "output", "persist", "cleanup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
