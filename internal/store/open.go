package store

import (
	"fmt"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// Open returns the record store backend named by kind: "json", "sqlite" or "memory".
func Open(kind, path string) (model.RecordStore, error) {
	switch kind {
	case "json":
		return NewJSONStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", kind)
	}
}
