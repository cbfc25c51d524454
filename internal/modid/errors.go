// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modid

import "fmt"

// InvalidIdError indicates that a module-id string failed to parse.
type InvalidIdError struct {
	Input   string
	Message string
}

func (e InvalidIdError) Error() string {
	return fmt.Sprintf("invalid module id %q: %s", e.Input, e.Message)
}

// InvalidQueryError indicates that a module-id-query string failed to parse.
type InvalidQueryError struct {
	Input   string
	Message string
}

func (e InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid module id query %q: %s", e.Input, e.Message)
}
