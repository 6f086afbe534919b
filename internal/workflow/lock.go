package workflow

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"promap/internal/services"
)

// LockName is the run lock file inside log_dir.
const LockName = "promap.lock"

func acquireLock(logDir string) (*flock.Flock, error) {
	path := filepath.Join(logDir, LockName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrRunInProgress, "", "acquire run lock", "another promap run holds "+path, nil)
	}
	return lock, nil
}
