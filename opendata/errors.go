// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package opendata

import (
	"errors"
	"fmt"
)

// User-facing messages.
const (
	DefaultUserMessage = "Erreur lors du chargement des associations. Vérifiez votre connexion internet."
	ToiletsUserMessage = "Erreur lors du chargement des toilettes. Vérifiez votre connexion internet."
)

// FetchError is an unrecoverable fetch failure carrying a message fit for
// end users.
type FetchError struct {
	Dataset string
	Message string
	Timeout bool
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Dataset, e.Err)
	}

	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UserMessage returns the message to show for a loading failure.
func UserMessage(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Message != "" {
		return fetchErr.Message
	}

	return DefaultUserMessage
}
