// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package colorize

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is wrapped by every ConfigError.
	ErrConfiguration = errors.New("colorize: invalid configuration")

	// ErrDevice is wrapped by every DeviceError.
	ErrDevice = errors.New("colorize: device failure")
)

// ConfigError reports an invalid option, colorscheme or frame. It is raised
// before any device work starts.
type ConfigError struct {
	Field  string
	Reason string

	// Err is an optional underlying cause, such as palette.ErrEmptyPalette.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("colorize: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("colorize: %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrConfiguration and the underlying cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// DeviceError reports a failure of the compute device for one image:
// adapter acquisition, allocation, upload, submission or readback.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("colorize: device %s: %v", e.Op, e.Err)
}

// Unwrap returns ErrDevice and the underlying cause.
func (e *DeviceError) Unwrap() []error {
	return []error{ErrDevice, e.Err}
}
