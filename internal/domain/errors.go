package domain

import "errors"

var (
	// ErrConfig marks configuration problems that must stop the run at startup.
	ErrConfig = errors.New("configuration error")
	// ErrFetch marks network, timeout and HTTP status failures.
	ErrFetch = errors.New("fetch failed")
	// ErrPaywalled is returned by sources when an article sits behind a paywall.
	ErrPaywalled = errors.New("article is paywalled")
	// ErrExtraction is returned when required fields cannot be extracted.
	ErrExtraction = errors.New("article extraction failed")
	// ErrDuplicate reports that a record already exists in storage.
	ErrDuplicate = errors.New("record already exists")
)
