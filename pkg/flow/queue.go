package flow

// Queue records the actions of one test body during the build phase.
// It is not safe for concurrent use; a body builds its queue synchronously.
type Queue struct {
	actions []Action
	err     error
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an action. It is a no-op once the queue has failed.
func (q *Queue) Push(a Action) {
	if q.err != nil {
		return
	}
	q.actions = append(q.actions, a)
}

// index maps a possibly negative offset to a position.
func (q *Queue) index(i int) (int, bool) {
	if i < 0 {
		i += len(q.actions)
	}
	if i < 0 || i >= len(q.actions) {
		return 0, false
	}
	return i, true
}

// Inspect returns the action at offset i. Negative offsets count from the
// tail: Inspect(-1) is the last action.
func (q *Queue) Inspect(i int) (Action, bool) {
	pos, ok := q.index(i)
	if !ok {
		return nil, false
	}
	return q.actions[pos], true
}

// Replace overwrites the action at offset i, with the same offset rules as
// Inspect. It reports whether the offset existed.
func (q *Queue) Replace(i int, a Action) bool {
	if q.err != nil {
		return false
	}
	pos, ok := q.index(i)
	if !ok {
		return false
	}
	q.actions[pos] = a
	return true
}

// Len returns the number of recorded actions.
func (q *Queue) Len() int {
	return len(q.actions)
}

// Snapshot returns a copy of the recorded actions.
func (q *Queue) Snapshot() []Action {
	out := make([]Action, len(q.actions))
	copy(out, q.actions)
	return out
}

// Reset empties the queue and clears any recorded error.
func (q *Queue) Reset() {
	q.actions = nil
	q.err = nil
}

// Fail records a build error. Only the first error is kept.
func (q *Queue) Fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// Err returns the first build error, if any.
func (q *Queue) Err() error {
	return q.err
}
