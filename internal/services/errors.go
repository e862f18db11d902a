package services

import "errors"

// ErrInvalidInput marks a request the services reject before touching the store.
var ErrInvalidInput = errors.New("invalid input")
