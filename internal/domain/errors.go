package domain

import "errors"

// Sentinel errors shared by the pipeline. Callers wrap them with %w and
// check them with errors.Is.
var (
	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("penpal: element not found")

	// ErrTimeout is returned when a bounded wait elapses.
	ErrTimeout = errors.New("penpal: wait timed out")

	// ErrCaptchaUnsolved is returned when the challenge could not be defeated.
	ErrCaptchaUnsolved = errors.New("penpal: captcha unsolved")

	// ErrUnrecognized is returned when transcription produced no text.
	ErrUnrecognized = errors.New("penpal: audio not recognized")

	// ErrLoginExhausted is returned after the last login attempt fails.
	ErrLoginExhausted = errors.New("penpal: login attempts exhausted")

	// ErrExtraction is returned when a detail page lacks a mandatory field.
	ErrExtraction = errors.New("penpal: record extraction failed")

	// ErrPageUnavailable is returned when a listing page never shows its rows.
	ErrPageUnavailable = errors.New("penpal: listing page unavailable")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("penpal: invalid configuration")

	// ErrInvalidTransition is returned by state machines on an illegal move.
	ErrInvalidTransition = errors.New("penpal: invalid state transition")

	// ErrBrowserClosed is returned when the browser session was released.
	ErrBrowserClosed = errors.New("penpal: browser closed")
)
