package server

import "errors"

var (
	// ErrRankerRequired is returned by New when no ranker is supplied.
	ErrRankerRequired = errors.New("ranker is required")
)
