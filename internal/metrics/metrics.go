// Package metrics records registration and pool activity.
package metrics

// Registration outcomes passed to RecordRegistration.
const (
	ResultAssigned        = "assigned"
	ResultAlreadyAssigned = "already_assigned"
	ResultInvalid         = "invalid"
	ResultExhausted       = "exhausted"
	ResultError           = "error"
)

type Collector interface {
	RecordRegistration(result string)
	RecordReset()
	SetRemaining(n int)
}

// Nop discards everything.
type Nop struct{}

var _ Collector = Nop{}

func (Nop) RecordRegistration(string) {}
func (Nop) RecordReset()              {}
func (Nop) SetRemaining(int)          {}
