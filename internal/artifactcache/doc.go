// Package artifactcache persists converted artifacts keyed by input
// checksum so identical documents skip reconversion.
package artifactcache
