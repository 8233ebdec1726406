package lockwait

import (
	"os"

	"golang.org/x/sys/unix"
)

// FlockProber attempts a non-blocking exclusive flock on the recording. A
// successful lock is the proxy for "no other process is writing it"; the
// lock is released immediately after the probe.
type FlockProber struct{}

// Probe reports true when an exclusive lock could be taken.
func (FlockProber) Probe(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	fd := int(file.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if err == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, err
	}
	_ = unix.Flock(fd, unix.LOCK_UN)
	return true, nil
}
