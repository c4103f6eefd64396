package condition

import (
	"errors"
	"fmt"

	"github.com/smoynes/idio/internal/value"
)

// Raise is the Go-error carrier for a raised condition (spec.md §4.3): any primitive or VM
// operation that needs to raise returns one, and internal/vm's executor recognizes it (via
// [AsRaise]) and performs the actual trap-stack walk, since only the executor has access to the
// thread's stack of installed traps.
type Raise struct {
	Continuable bool
	Condition   value.Value
	typeName    string
}

func (r *Raise) Error() string {
	return fmt.Sprintf("condition raised: %s (continuable=%t)", r.typeName, r.Continuable)
}

// NewRaise wraps cond (of the named condition type) as a Raise error.
func NewRaise(typeName string, continuable bool, cond value.Value) *Raise {
	return &Raise{Continuable: continuable, Condition: cond, typeName: typeName}
}

// AsRaise unwraps err looking for a *Raise, following wrapped errors.
func AsRaise(err error) (*Raise, bool) {
	var r *Raise

	if errors.As(err, &r) {
		return r, true
	}

	return nil, false
}
