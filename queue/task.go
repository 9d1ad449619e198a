package queue

// Processor is the consumer side shared by every discipline.
type Processor[T any] interface {
	// ProcessAll hands every visible task to fn and returns how many ran.
	ProcessAll(fn func(T)) int
	Stats() Stats
}

var (
	_ Processor[func()] = (*LockFree[func()])(nil)
	_ Processor[func()] = (*Locking[func()])(nil)
	_ Processor[func()] = (*Serial[func()])(nil)
)

// Run calls task. It is the fn to pass to ProcessAll when the queued values
// are plain functions.
func Run(task func()) {
	task()
}

type drainCount struct {
	processed int
	skipped   int
	spilled   int
}

// reentry guards ProcessAll against being called from one of its own tasks.
type reentry bool

func (r *reentry) enter() {
	if *r {
		panic(ErrReentrant)
	}
	*r = true
}

func (r *reentry) exit() {
	*r = false
}
