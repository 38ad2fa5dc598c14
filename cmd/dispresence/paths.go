package main

import (
	"os"
	"path/filepath"

	"tools.zach/dev/dispresence/internal/paths"
)

// DataPaths aliases [paths.DataDir] so command code can name data files
// without qualifying the internal package.
type DataPaths = paths.DataDir

// defaultDataDir returns ~/.dispresence, or ./.dispresence when the home
// directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}
