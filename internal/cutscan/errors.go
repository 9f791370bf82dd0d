package cutscan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/cutscan/internal/events"
)

// ErrSourceUnavailable aliases the event-source sentinel so callers of this
// package can match it without importing events.
var ErrSourceUnavailable = events.ErrSourceUnavailable

// ErrDegenerateSample is returned when an efficiency would divide by a zero
// event total.
var ErrDegenerateSample = errors.New("degenerate sample")

// DegenerateSampleError names the sample(s) whose total is zero.
type DegenerateSampleError struct {
	Role   events.Role
	Labels []string
}

func (e *DegenerateSampleError) Error() string {
	return fmt.Sprintf("%s: %s total is zero (%s), efficiency undefined",
		ErrDegenerateSample, e.Role, strings.Join(e.Labels, ", "))
}

// Is matches ErrDegenerateSample.
func (e *DegenerateSampleError) Is(target error) bool {
	return target == ErrDegenerateSample
}

// sourceError wraps an adapter failure with the sample label and the query
// that failed. Errors that do not already carry ErrSourceUnavailable are
// marked with it: any failing sample aborts the scan.
func sourceError(label, op string, err error) error {
	if errors.Is(err, ErrSourceUnavailable) {
		return fmt.Errorf("sample %q: %s: %w", label, op, err)
	}
	return fmt.Errorf("sample %q: %s: %v: %w", label, op, err, ErrSourceUnavailable)
}
