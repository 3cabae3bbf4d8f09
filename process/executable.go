package process

import (
	"fmt"
	"os"
)

// IsExecutable reports whether path is a regular file with an execute bit set.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// MakeExecutable sets the execute bits on every path that lacks them and
// returns how many files were changed.
func MakeExecutable(paths ...string) (int, error) {
	changed := 0
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return changed, fmt.Errorf("missing executable %s: %w", p, err)
		}
		if !info.Mode().IsRegular() {
			return changed, fmt.Errorf("%s is not a regular file", p)
		}
		mode := info.Mode().Perm()
		if mode&0o111 == 0o111 {
			continue
		}
		if err := os.Chmod(p, mode|0o111); err != nil {
			return changed, fmt.Errorf("making %s executable: %w", p, err)
		}
		changed++
	}
	return changed, nil
}
