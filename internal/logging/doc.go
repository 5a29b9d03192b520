// Package logging configures slog for papermill.
//
// It provides console and JSON handlers, standardized field keys, attribute
// helper aliases, and context-derived logger augmentation so components emit
// consistent structured logs without repeating glue code.
package logging
