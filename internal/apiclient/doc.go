// Package apiclient is the CLI's HTTP client for a running papermilld.
package apiclient
