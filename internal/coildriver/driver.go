package coildriver

import "github.com/edumag/edumag/internal/fieldsolver"

// Driver is the subset of the channel that control sessions use.
type Driver interface {
	SetTargetCurrents(fieldsolver.CurrentVector) error
	Reset() error
}

var (
	_ Driver = (*Channel)(nil)
	_ Driver = DisabledDriver{}
)

// DisabledDriver accepts every command and does nothing. It lets sessions
// run with no board attached.
type DisabledDriver struct{}

func (DisabledDriver) SetTargetCurrents(fieldsolver.CurrentVector) error { return nil }
func (DisabledDriver) Reset() error                                      { return nil }
