// Package convert orchestrates the conversion pipeline end to end: input
// retrieval, artifact cache lookup, serialized converter execution inside a
// staged workspace, and outcome delivery.
package convert
