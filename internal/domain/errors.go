package domain

import "errors"

var (
	// ErrInvalidInput reports a caller-supplied value outside the documented
	// domain, such as a non-positive water volume or a negative salt mass.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataShape reports a provider record that lacks a field the core
	// cannot do without, such as a network record with no code.
	ErrDataShape = errors.New("malformed provider data")
)
