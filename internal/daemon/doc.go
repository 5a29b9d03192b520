// Package daemon ties the API server, conversion service, and staging
// housekeeping into a single-instance background process.
package daemon
