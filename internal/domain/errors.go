package domain

import "errors"

var ErrNotFound = errors.New("not found")

// Precondition errors: reported synchronously, before any network activity.
var (
	ErrNotConfigured = errors.New("api client is not configured")
	ErrNoStreamURL   = errors.New("no stream url resolved")
	ErrNoCredentials = errors.New("login session cookie not found")
)

// ErrNoData marks a transfer that completed without delivering a single byte.
var ErrNoData = errors.New("no data received")
