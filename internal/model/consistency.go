package model

import (
	"fmt"

	"dirview/internal/role"

	"go.uber.org/zap"
)

// IsConsistent checks the model's internal invariants: every item is found
// at its own index, the list is in order, and every child sits below its
// parent one level deeper. It is a diagnostic; nothing relies on it.
func (m *Model) IsConsistent() error {
	err := m.checkConsistency()
	if err != nil {
		m.log.Error("model is inconsistent", zap.Error(err))
	}
	return err
}

func (m *Model) checkConsistency() error {
	if len(m.index) > len(m.entries) {
		return fmt.Errorf("index holds %d urls for %d items", len(m.index), len(m.entries))
	}
	for i, e := range m.entries {
		if e == nil || e.item == nil {
			return fmt.Errorf("item %d is nil", i)
		}
		if got := m.Index(e.item.URL()); got != i {
			return fmt.Errorf("item %d (%s) has index %d", i, e.item.URL(), got)
		}
		if i > 0 && !m.lessThan(m.entries[i-1], e) {
			return fmt.Errorf("items %d (%s) and %d (%s) are out of order",
				i-1, m.entries[i-1].item.URL(), i, e.item.URL())
		}

		p := e.parent
		if p == nil {
			continue
		}
		if v, ok := e.values[role.ExpandedParentsCount]; ok && int(valueInt(v)) != p.level()+1 {
			return fmt.Errorf("item %d (%s) has level %d, its parent %s has level %d",
				i, e.item.URL(), valueInt(v), p.item.URL(), p.level())
		}
		if pi := m.Index(p.item.URL()); pi < 0 || pi >= i {
			return fmt.Errorf("parent %s of item %d (%s) is at index %d", p.item.URL(), i, e.item.URL(), pi)
		}
	}
	return nil
}
