package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/edumag/edumag/internal/fsutil"
)

// DefaultSettingsPath is the file that remembers the last selected port.
const DefaultSettingsPath = "SerialSettings.txt"

// LoadPortSetting returns the port name stored at path. A missing file is
// not an error and yields "".
func LoadPortSetting(fsys fsutil.FileSystem, path string) (string, error) {
	data, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read port setting: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// SavePortSetting stores port as the single line of path.
func SavePortSetting(fsys fsutil.FileSystem, path, port string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := fsys.WriteFile(path, []byte(strings.TrimSpace(port)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write port setting: %w", err)
	}
	return nil
}
