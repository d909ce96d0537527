// Package file provides the filesystem helpers the relay uses when writing
// extracted assets and logs. Directory and file writes enforce owner-only
// permissions.
package file

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/openlifting/liftcast/config/params"
	"github.com/pkg/errors"
)

// ExpandPath expands a file path
// 1. replace tilde with users home dir
// 2. expands embedded environment variables
// 3. cleans the path, e.g. /a/b/../c -> /a/c
func ExpandPath(p string) (string, error) {
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~\\") {
		if home := HomeDir(); home != "" {
			p = home + p[1:]
		}
	}
	return filepath.Abs(filepath.Clean(os.ExpandEnv(p)))
}

// HomeDir returns the home directory for the executing user.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// MkdirAll takes in a path, expands it if necessary, and creates the directory
// accordingly with standardized, owner-only permissions. If a directory already
// exists as this path, then the method returns without making any changes.
func MkdirAll(dirPath string) error {
	expanded, err := ExpandPath(dirPath)
	if err != nil {
		return err
	}
	exists, err := HasDir(expanded)
	if err != nil {
		return err
	}
	if exists {
		info, err := os.Stat(expanded)
		if err != nil {
			return err
		}
		if info.Mode().Perm() != params.RelayIoConfig().ReadWriteExecutePermissions {
			return errors.New("dir already exists without proper 0700 permissions")
		}
		return nil
	}
	return os.MkdirAll(expanded, params.RelayIoConfig().ReadWriteExecutePermissions)
}

// WriteFile is the static-analysis enforced method for writing binary data to
// a file in the relay, enforcing owner-only permissions.
func WriteFile(fileName string, data []byte) error {
	expanded, err := ExpandPath(fileName)
	if err != nil {
		return err
	}
	if Exists(expanded) {
		info, err := os.Stat(expanded)
		if err != nil {
			return err
		}
		if info.Mode() != params.RelayIoConfig().ReadWritePermissions {
			return errors.New("file already exists without proper 0600 permissions")
		}
	}
	return os.WriteFile(expanded, data, params.RelayIoConfig().ReadWritePermissions)
}

// HasDir checks if a directory indeed exists at the specified path.
func HasDir(dirPath string) (bool, error) {
	fullPath, err := ExpandPath(dirPath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if info == nil {
		return false, err
	}
	return info.IsDir(), err
}

// Exists returns true if a file is not a directory and exists at the
// specified path.
func Exists(filename string) bool {
	expanded, err := ExpandPath(filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(expanded)
	if err != nil || info == nil {
		return false
	}
	return !info.IsDir()
}
