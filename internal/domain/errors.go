package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrNoDataset       = errors.New("no dataset loaded")
	ErrNothingToCommit = errors.New("no pending result to commit")
	ErrExternalCall    = errors.New("completion call failed")
	ErrInvalidArgument = errors.New("invalid argument")
)
