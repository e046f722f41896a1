package patcher

import (
	"io"
	"os"
	"path/filepath"
)

// ignoreDirs lists VCS/cache/vendor directory names. The Patcher backs up
// only the individual files a step touches, so nothing here consults it.
var ignoreDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".sentryd": true,
	"__pycache__": true, ".venv": true, "venv": true,
}

// backupFile copies src into dst, creating dst's parent directories. It is
// a no-op, reporting existed=false, when src does not exist — a new file
// has no prior content to preserve.
func backupFile(src, dst string) (existed bool, err error) {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return false, err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return false, err
	}
	return true, nil
}

// restoreFile copies src (a backup copy) back onto dst, creating dst's
// parent directories as needed.
func restoreFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
