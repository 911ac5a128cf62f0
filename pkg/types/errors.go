package types

import "errors"

var (
	ErrInvalidUserID      = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrInvalidAgentName   = errors.New("agent name must be 1-100 characters")
	ErrInvalidKarma       = errors.New("agent karma cannot be negative")
	ErrEmptyText          = errors.New("chat text cannot be empty")
	ErrTextTooLarge       = errors.New("chat text exceeds 2000 character limit")
)
