// Package services holds cross-cutting helpers shared by papermill
// components: the sentinel error taxonomy used to classify conversion
// failures, Wrap for tagging errors with component context, and context
// annotation helpers for structured logging.
package services
