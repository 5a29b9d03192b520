// Command papermill is the operator CLI for the papermill daemon.
package main
