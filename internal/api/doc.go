// Package api exposes conversion submission and daemon status over a small
// JSON HTTP surface.
package api
