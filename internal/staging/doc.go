// Package staging allocates and reclaims per-job temp workspaces.
//
// Stage writes the input document into a uniquely named job directory with a
// paired output directory; Release removes the whole workspace and is invoked
// on every job exit path. CleanStale sweeps leftovers from crashed runs.
package staging
