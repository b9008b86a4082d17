package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"repnote/internal/domain"
)

// readJSON decodes path into v. A missing file maps to ErrNotFound and a
// decode failure to ErrMalformedDocument; anything else is an IOError.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return domain.NewIOError("read", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedDocument, path, err)
	}
	return nil
}

// writeJSON writes the whole document to a temp file in the same directory
// and renames it over path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return domain.NewIOError("create", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.NewIOError("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return domain.NewIOError("close", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return domain.NewIOError("rename", path, err)
	}
	return nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, domain.NewIOError("stat", path, err)
}

// ValidateName rejects names that cannot be a single path element.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: name is empty", domain.ErrValidation)
	case name == "." || name == "..":
		return "", fmt.Errorf("%w: invalid name %q", domain.ErrValidation, name)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%w: name %q contains a path separator", domain.ErrValidation, name)
	case strings.HasPrefix(name, "."):
		return "", fmt.Errorf("%w: name %q starts with a dot", domain.ErrValidation, name)
	}
	return name, nil
}
