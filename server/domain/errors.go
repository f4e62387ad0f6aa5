package domain

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrNotIdentified    = errors.New("connection is not identified")
	ErrConnectionClosed = errors.New("connection is closed")
	ErrIdentityMismatch = errors.New("event identity does not match connection")
	ErrNotMember        = errors.New("user has not joined the room")
)
