package control

import (
	"errors"
	"fmt"
)

// ErrNotLinked is returned when a handle whose device reports the slave role
// has no Group reference to route through. Dropping a user-initiated playback
// command silently would be worse than failing it.
var ErrNotLinked = errors.New("device not linked to an active group")

// IncompatibleVersionError means two devices report protocol versions whose
// major generations differ and cannot be grouped. It is raised before any
// command is dispatched.
type IncompatibleVersionError struct {
	MasterVersion string
	SlaveVersion  string
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf("incompatible protocol version: master %s, slave %s", e.MasterVersion, e.SlaveVersion)
}

// VerificationError means the join command was accepted but the slave never
// reported the expected role. CrossSubnet is set when the two addresses do not
// share a subnet prefix, the usual reason neither admission mode can succeed.
type VerificationError struct {
	SlaveAddress  string
	MasterAddress string
	CrossSubnet   bool
	Err           error
}

func (e *VerificationError) Error() string {
	if e.CrossSubnet {
		return fmt.Sprintf("join of %s to %s not confirmed: devices appear to be on different subnets", e.SlaveAddress, e.MasterAddress)
	}
	if e.Err != nil {
		return fmt.Sprintf("join of %s to %s not confirmed: %v", e.SlaveAddress, e.MasterAddress, e.Err)
	}
	return fmt.Sprintf("join of %s to %s not confirmed: device still reports solo", e.SlaveAddress, e.MasterAddress)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// MemberError records one member's failure during a group-wide fan-out.
// Fan-out operations report per-member errors instead of collapsing them into
// one, so the caller can tell which device needs attention.
type MemberError struct {
	Address string
	Err     error
}

func (e MemberError) Error() string {
	return fmt.Sprintf("%s: %v", e.Address, e.Err)
}

func (e MemberError) Unwrap() error { return e.Err }
