package core

import "fmt"

// SelectColumns restricts the table to the named columns in the given order.
// An empty selection leaves the table unchanged; repeated names keep their
// first position. Unknown names fail with *UnknownColumnError and leave the
// table untouched.
func (t *Table) SelectColumns(columns []string) error {
	if len(columns) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(columns))
	ordered := make([]string, 0, len(columns))
	for _, name := range columns {
		if !t.HasColumn(name) {
			return &UnknownColumnError{Column: name}
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		ordered = append(ordered, name)
	}

	if err := t.replace(t.frame.Select(ordered)); err != nil {
		return fmt.Errorf("select columns: %w", err)
	}
	return nil
}
