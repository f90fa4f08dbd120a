package cy

import "github.com/devicelab-dev/cyrunner/pkg/flow"

// BuildQueue runs body against a fresh entry and returns the recorded
// actions. The first build error aborts the build; no partial queue is
// returned with it.
func BuildQueue(body func(cy *Entry), opts ...Option) ([]flow.Action, error) {
	q := flow.NewQueue()
	body(New(q, opts...))
	if err := q.Err(); err != nil {
		return nil, err
	}
	return q.Snapshot(), nil
}
