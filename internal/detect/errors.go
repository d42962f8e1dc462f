package detect

import "errors"

var (
	// ErrMissingData is returned when a transaction lacks the balance
	// snapshots or metadata needed to infer a swap.
	ErrMissingData = errors.New("missing transaction data")

	// ErrMalformedInstruction marks an instruction that was ignored for
	// evidence purposes (bad program index or undecodable data).
	ErrMalformedInstruction = errors.New("malformed instruction")
)
