package model

import "errors"

var (
	// ErrInvalidInput marks caller mistakes (bad path, blank text); never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidLanguage is returned for a language code outside the supported set.
	ErrInvalidLanguage = errors.New("invalid language")

	// ErrInvalidChecklist is returned when the do-checklist is empty or contains blank items.
	ErrInvalidChecklist = errors.New("checklist must be a non-empty list of non-blank items")

	// ErrFileTooLarge is returned before any network call for oversized audio.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

	// ErrUnsupportedFormat is returned before any network call for audio
	// extensions outside a provider's supported set.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyTranscription marks a transport-successful transcription with no text.
	ErrEmptyTranscription = errors.New("transcription returned an empty result")

	// ErrEmptyResponse marks a transport-successful chat call with no message content.
	ErrEmptyResponse = errors.New("backend returned an empty response")

	// ErrUnknownService is returned by the factory for an unrecognized backend selector.
	ErrUnknownService = errors.New("unknown AI service")
)
