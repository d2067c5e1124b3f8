package handlers

import "errors"

var (
	errNotAuthenticated = errors.New("not authenticated")
	errBadID            = errors.New("id must be a positive integer")
)
