//go:build unix

package config

import (
	"os"

	"golang.org/x/sys/unix"
)

// flock takes an exclusive advisory lock on f for the lifetime of the
// returned unlock function. Used to serialize reads/writes of pairing.json
// across processes (the CLI and the running agent may both touch it).
func flock(f *os.File) (unlock func(), err error) {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return nil, err
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}, nil
}
