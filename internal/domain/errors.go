package domain

import "errors"

var (
	ErrModNotFound        = errors.New("mod not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrGroupNotFound      = errors.New("option group not found")
	ErrInvalidGamePath    = errors.New("invalid game path")
	ErrGamePathTooLong    = errors.New("game path too long")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrTooManyOptions     = errors.New("too many options in multi group")
	ErrInvalidSetting     = errors.New("invalid group setting")
	ErrQueueClosed        = errors.New("task queue closed")
)
