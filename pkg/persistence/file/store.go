package file

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// collection stores one entity type as individual JSON documents in a
// subdirectory of the persistence root. notFound is the sentinel returned
// for missing ids so callers can match with errors.Is.
type collection[T any] struct {
	root     string
	dir      string
	notFound error
}

func newCollection[T any](root, dir string, notFound error) *collection[T] {
	return &collection[T]{root: root, dir: dir, notFound: notFound}
}

func (c *collection[T]) entityPath(id string) string {
	return filepath.Clean(path.Join(c.root, c.dir, id+".json"))
}

func (c *collection[T]) get(id string) (*T, error) {
	body, err := os.ReadFile(c.entityPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", id, c.notFound)
		}

		return nil, fmt.Errorf("failed to read %s %s: %w", c.dir, id, err)
	}

	var entity T
	if err := json.Unmarshal(body, &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", c.dir, id, err)
	}

	return &entity, nil
}

func (c *collection[T]) list() ([]*T, error) {
	if _, err := os.Stat(path.Join(c.root, c.dir)); os.IsNotExist(err) {
		return []*T{}, nil
	}

	root := os.DirFS(path.Join(c.root, c.dir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.dir, err)
	}

	entities := make([]*T, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		entity, err := c.get(id)
		if err != nil {
			return nil, err
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

func (c *collection[T]) save(id string, entity *T) error {
	if err := os.MkdirAll(path.Join(c.root, c.dir), 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", c.dir, err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", c.dir, id, err)
	}

	return os.WriteFile(c.entityPath(id), data, 0600)
}

func (c *collection[T]) delete(id string) error {
	err := os.Remove(c.entityPath(id))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", c.dir, id, err)
	}

	return nil
}
