package pipeline

import (
	"sort"
	"sync"
)

// Report collects per-session outcomes across a batch run.  A batch keeps
// going past individual session failures, the report is how callers find
// out which sessions made it.
type Report struct {
	mu        sync.Mutex
	succeeded []string
	failures  map[string]error
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{
		failures: make(map[string]error),
	}
}

// ok records a session that completed
func (r *Report) ok(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.succeeded = append(r.succeeded, key)
}

// fail records a session that could not be processed
func (r *Report) fail(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[key] = err
}

// Succeeded returns the keys of completed sessions in sorted order.
func (r *Report) Succeeded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.succeeded))
	copy(out, r.succeeded)
	sort.Strings(out)

	return out
}

// Failures returns each failed session's key and cause.
func (r *Report) Failures() map[string]error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]error, len(r.failures))

	for key, err := range r.failures {
		out[key] = err
	}

	return out
}

// Partial reports whether some sessions failed while others completed.
func (r *Report) Partial() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.failures) > 0 && len(r.succeeded) > 0
}

// Empty reports whether no session completed at all.
func (r *Report) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.succeeded) == 0
}
