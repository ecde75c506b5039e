//go:build windows

package config

import "os"

// flock is a no-op on Windows builds. os.OpenFile opens files in shared
// read/write mode there, so pairing.json access is not locked across
// processes on Windows.
func flock(f *os.File) (unlock func(), err error) {
	return func() {}, nil
}
