package fabric

import (
	"errors"
	"fmt"
)

var (
	// errAbandoned unwinds the carrier of a task left parked at shutdown.
	errAbandoned = errors.New("task abandoned at shutdown")

	errDoubleRelease = errors.New("carrier released twice")
)

type transitionError struct {
	taskID uint64
	from   State
	to     State
	actual State
}

func (e *transitionError) Error() string {
	return fmt.Sprintf("task %d: cannot move %s -> %s, task is %s", e.taskID, e.from, e.to, e.actual)
}
