// Package job defines the conversion job and its terminal outcome.
package job
