package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AppName is the binary name that rendezvous paths are derived from.
const AppName = "pomobar"

// DeriveIdentity folds the decimal digits of a socket path into an integer,
// so two instances bound at different paths persist under different keys.
// Overflow wraps.
func DeriveIdentity(socketPath string) int64 {
	var id int64
	for _, r := range socketPath {
		if r >= '0' && r <= '9' {
			id = id*10 + int64(r-'0')
		}
	}
	return id
}

// SocketPath returns the rendezvous path for instance n under dir. An empty
// dir means os.TempDir().
func SocketPath(dir, appName string, n int) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("%s%d.sock", appName, n))
}

// Discover lists every entry in dir whose name contains appName. An empty
// dir means os.TempDir(). A missing or unreadable directory yields no paths.
func Discover(dir, appName string) []string {
	if dir == "" {
		dir = os.TempDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(entry.Name(), appName) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}
