//go:build !sqlite

package storage

import "fmt"

// newSQLiteStore fails in builds without the sqlite tag so run records are
// never silently routed to another backend.
func newSQLiteStore(path string) (Store, error) {
	return nil, fmt.Errorf("%w: sqlite store at %q requires a build with -tags sqlite", ErrBackendUnavailable, path)
}
