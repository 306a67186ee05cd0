// Package types defines the logical metadata record, the field-map
// configuration document, and the error classes shared by the actimeta
// mutation engine and its callers.
//
// Callers branch on the error classes (ConfigurationError,
// ContainerFormatError, EncodingError, IOError), never on message text.
package types
