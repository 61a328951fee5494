package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// Checklist is the set of confirmed qualification item ids, stored as a JSON
// array column. Order is not meaningful; persistence is sorted for stable rows.
type Checklist []string

func (c Checklist) Contains(item string) bool {
	for _, it := range c {
		if it == item {
			return true
		}
	}
	return false
}

// Union merges items into the checklist without duplicates. Confirmed items
// are never removed by a merge.
func (c Checklist) Union(items []string) Checklist {
	out := make(Checklist, len(c))
	copy(out, c)
	for _, it := range items {
		if it == "" || out.Contains(it) {
			continue
		}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

func (c Checklist) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Checklist) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("checklist: cannot scan %T", src)
	}
}
