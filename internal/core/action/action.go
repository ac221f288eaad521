package action

// Action is a lifecycle phase shared by pooled entities and coarse processes.
// Values are ordered: phases only ever advance forward, except when a slot is
// reallocated and restarts at Constructing.
type Action int

const (
	Nothing        Action = iota // 0: no work, or killed and waiting for reuse
	Constructing                 // 1: slot allocated, critical fields safe
	Initializing                 // 2: (re)initialization
	Processing                   // 3: fully active
	Deinitializing               // 4: tearing down what Initializing built
	Destructing                  // 5: final destruction

	// Waiting is entity-only: destructed, lingering until final removal.
	Waiting
)

// Process naming for the same values.
const (
	Beginning = Constructing
	Entering  = Initializing
	Running   = Processing
	Leaving   = Deinitializing
	Finishing = Destructing
)

var names = [...]string{
	Nothing:        "nothing",
	Constructing:   "constructing",
	Initializing:   "initializing",
	Processing:     "processing",
	Deinitializing: "deinitializing",
	Destructing:    "destructing",
	Waiting:        "waiting",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(names) {
		return "unknown"
	}
	return names[a]
}

// Valid reports whether a is a known phase.
func (a Action) Valid() bool {
	return a >= Nothing && a <= Waiting
}

// ProcessString names a as a process phase.
func (a Action) ProcessString() string {
	switch a {
	case Nothing:
		return "invalid"
	case Beginning:
		return "beginning"
	case Entering:
		return "entering"
	case Running:
		return "running"
	case Leaving:
		return "leaving"
	case Finishing:
		return "finishing"
	}
	return "unknown"
}
