package models

import "errors"

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidQuote     = errors.New("invalid quote (high < low)")
	ErrInvalidVolume    = errors.New("invalid volume")
)
