package vesting

// journal holds undo operations for the state mutations of the current call.
type journal struct {
	undo []func()
}

func (j *journal) record(fn func()) {
	j.undo = append(j.undo, fn)
}

func (j *journal) checkpoint() int {
	return len(j.undo)
}

// revertTo undoes, newest first, every mutation recorded after cp.
func (j *journal) revertTo(cp int) {
	for i := len(j.undo) - 1; i >= cp; i-- {
		j.undo[i]()
	}
	j.undo = j.undo[:cp]
}

func (j *journal) commit() {
	j.undo = j.undo[:0]
}
