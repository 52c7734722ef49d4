package driver

import (
	"fmt"
	"os"
	"path/filepath"
)

// staging is the temporary area holding uploaded bytes between Submit and
// run, one directory per task.
type staging struct {
	root string
}

func newStaging(root string) (*staging, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "termstat-staging")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &staging{root: root}, nil
}

func (s *staging) dir(taskID string) string {
	return filepath.Join(s.root, taskID)
}

// write stores each upload under the task's directory. Filenames are reduced
// to their base name so a crafted name cannot escape the staging area.
func (s *staging) write(taskID string, uploads []Upload) error {
	dir := s.dir(taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, u := range uploads {
		name := filepath.Base(u.Filename)
		if err := os.WriteFile(filepath.Join(dir, name), u.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// read loads every staged file for a task, keyed by file name.
func (s *staging) read(taskID string) (map[string][]byte, error) {
	dir := s.dir(taskID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		files[entry.Name()] = data
	}
	return files, nil
}

// remove deletes the task's staged bytes.
func (s *staging) remove(taskID string) error {
	return os.RemoveAll(s.dir(taskID))
}
