// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnknownKey is returned when a caller references a key that was
	// never registered in the type registry.
	ErrUnknownKey = errors.New("config: unknown key")

	// ErrTypeMismatch is returned when a Get/Set call's generic type
	// parameter disagrees with the key's registered ValueType.
	ErrTypeMismatch = errors.New("config: type mismatch")

	// ErrOutOfRange is returned when a numeric Set value falls outside the
	// key's registered [min,max]. Per spec this is a rejected write, not a
	// panic: the caller should log it and continue.
	ErrOutOfRange = errors.New("config: value out of range")
)
