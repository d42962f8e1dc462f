package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyName is returned when registering a venue without a display name.
	ErrEmptyName = errors.New("venue name is empty")
	// ErrInfrastructure is returned when registering an infrastructure program as a venue.
	ErrInfrastructure = errors.New("program is infrastructure")
	// ErrOffCurve is returned when a signer address is not an ed25519 point.
	ErrOffCurve = errors.New("address is off the ed25519 curve")
)

// AddressError reports an invalid base58 address.
type AddressError struct {
	Address string
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %v", e.Address, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}
