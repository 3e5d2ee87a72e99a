package store

import (
	"fmt"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// collection is an ordered, id-indexed set of records. Insertion order is kept.
type collection struct {
	records []model.Record
	index   map[string]int
}

func newCollection(records []model.Record) (*collection, error) {
	c := &collection{
		records: make([]model.Record, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, rec := range records {
		if _, dup := c.index[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate record id %q", rec.ID)
		}
		c.index[rec.ID] = len(c.records)
		c.records = append(c.records, rec)
	}
	return c, nil
}

func (c *collection) clone() *collection {
	out := &collection{
		records: make([]model.Record, len(c.records)),
		index:   make(map[string]int, len(c.index)),
	}
	copy(out.records, c.records)
	for k, v := range c.index {
		out.index[k] = v
	}
	return out
}

// upsert appends rec or merges it into the stored record with the same id.
func (c *collection) upsert(rec model.Record) error {
	i, ok := c.index[rec.ID]
	if !ok {
		c.index[rec.ID] = len(c.records)
		c.records = append(c.records, rec)
		return nil
	}
	cur := c.records[i]
	if err := cur.Merge(rec); err != nil {
		return err
	}
	c.records[i] = cur
	return nil
}

func (c *collection) all() []model.Record {
	out := make([]model.Record, len(c.records))
	copy(out, c.records)
	return out
}

func (c *collection) keys() map[string]struct{} {
	out := make(map[string]struct{}, len(c.index))
	for id := range c.index {
		out[id] = struct{}{}
	}
	return out
}
