package service

import "errors"

var (
	// ErrAuthInvalid the marketplace rejected the refresh token, the account must re-authorize
	ErrAuthInvalid = errors.New("ebay authorization invalid")
	// ErrCredentialUnreadable a stored credential no longer decrypts with the configured key
	ErrCredentialUnreadable = errors.New("stored credential unreadable")
	// ErrOrdersIncomplete the order walk finished but some orders could not be stored
	ErrOrdersIncomplete = errors.New("some orders failed to sync")
)
