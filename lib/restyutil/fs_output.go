package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput dumps formatted HTTP messages into a directory, one
// file per message id. The directory is wiped on construction so every
// run starts from a clean capture set.
type FilesystemOutput struct {
	dir string
}

func NewFilesystemOutput(dir string) FilesystemOutput {
	os.RemoveAll(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(err)
	}
	return FilesystemOutput{dir: dir}
}

func (o FilesystemOutput) Write(id string, contents string) {
	path := filepath.Join(o.dir, id)
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		slog.Warn("failed to dump http message", "path", path, "err", err)
	}
}
