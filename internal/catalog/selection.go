package catalog

// Selection tracks which tables are picked for export.
// Keys are reported in the order they were selected.
type Selection struct {
	tables []Table
	order  []string
	set    map[string]bool
}

// NewSelection creates an empty selection over tables.
func NewSelection(tables []Table) *Selection {
	return &Selection{
		tables: tables,
		set:    make(map[string]bool),
	}
}

// Toggle adds key if absent and removes it otherwise.
// Keys outside the catalog are ignored.
func (s *Selection) Toggle(key string) {
	if s.set[key] {
		s.remove(key)
		return
	}
	if !s.known(key) {
		return
	}
	s.set[key] = true
	s.order = append(s.order, key)
}

// ToggleAll clears the selection when every table is selected,
// otherwise selects every table.
func (s *Selection) ToggleAll() {
	if s.AllSelected() {
		s.Clear()
		return
	}
	for _, t := range s.tables {
		if !s.set[t.Key] {
			s.set[t.Key] = true
			s.order = append(s.order, t.Key)
		}
	}
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.order = nil
	s.set = make(map[string]bool)
}

// IsSelected reports whether key is selected.
func (s *Selection) IsSelected(key string) bool {
	return s.set[key]
}

// AllSelected reports whether every catalog table is selected.
func (s *Selection) AllSelected() bool {
	return len(s.tables) > 0 && len(s.order) == len(s.tables)
}

// Len returns the number of selected tables.
func (s *Selection) Len() int {
	return len(s.order)
}

// Keys returns the selected keys in selection order.
func (s *Selection) Keys() []string {
	return append([]string(nil), s.order...)
}

func (s *Selection) remove(key string) {
	delete(s.set, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Selection) known(key string) bool {
	for _, t := range s.tables {
		if t.Key == key {
			return true
		}
	}
	return false
}
