package types

import (
	"errors"

	"github.com/zeebo/errs"
)

// Error classes. Every error that leaves an internal package carries exactly
// one of these, so callers can use Class.Has to decide how to react.
var (
	// ConfigurationError means a required mapping or default is missing.
	ConfigurationError = errs.Class("configuration")
	// ContainerFormatError means an expected entry or table is absent or unreadable.
	ContainerFormatError = errs.Class("container format")
	// EncodingError means a logical value could not be turned into its physical form.
	EncodingError = errs.Class("encoding")
	// IOError means a filesystem operation failed.
	IOError = errs.Class("io")
)

// Sentinel errors wrapped by the classes above.
var (
	ErrUnknownHandedness    = errors.New("unknown handedness token")
	ErrUnknownSex           = errors.New("sex must be Male or Female")
	ErrNotInteger           = errors.New("value is not an integer")
	ErrLineBreak            = errors.New("value contains a line break")
	ErrUnknownKind          = errors.New("unrecognized container extension")
	ErrMissingMapping       = errors.New("missing field mapping")
	ErrMissingDefault       = errors.New("missing default value")
	ErrHandednessTable      = errors.New("handedness table must map exactly two tokens")
	ErrSettingsTableMissing = errors.New("settings table not found")
	ErrInfoEntryMissing     = errors.New("info entry not found in archive")
	ErrUnsafeEntryName      = errors.New("archive entry name escapes extraction directory")
)
