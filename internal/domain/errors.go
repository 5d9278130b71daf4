package domain

import "errors"

var (
	ErrDuplicateProbe = errors.New("duplicate probe name")
	ErrUnknownKind    = errors.New("unknown probe kind")
	ErrTargetNotFound = errors.New("target not found")
	ErrTimeout        = errors.New("timeout")
)
