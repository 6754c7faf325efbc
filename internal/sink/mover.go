package sink

import (
	"io"
	"os"
	"path/filepath"

	"github.com/callsight-ai/callsight/internal/utils"
)

// MoveFile relocates src to dst, creating dst's directory as needed. Rename
// is tried first; when it fails (typically a cross-device move out of a
// mounted inbox) the file is copied and the source removed.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return utils.WrapIfNotNil(err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return utils.WrapIfNotNil(os.Remove(src))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return utils.WrapIfNotNil(err)
	}
	return utils.WrapIfNotNil(out.Close())
}
