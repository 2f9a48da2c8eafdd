package banners

// Section is an ordered, duplicate-free rail bounded by SectionCapacity.
type Section struct {
	items []Property
}

// Len returns the number of members.
func (s *Section) Len() int {
	return len(s.items)
}

// Items returns a copy of the members in display order.
func (s *Section) Items() []Property {
	out := make([]Property, len(s.items))
	copy(out, s.items)
	return out
}

// IDs returns member identifiers in display order.
func (s *Section) IDs() []string {
	ids := make([]string, 0, len(s.items))
	for _, item := range s.items {
		ids = append(ids, item.ID)
	}
	return ids
}

// Contains reports whether the id is a member.
func (s *Section) Contains(id string) bool {
	return s.indexOf(id) >= 0
}

// Room returns how many members can still be appended.
func (s *Section) Room() int {
	return SectionCapacity - len(s.items)
}

// Append adds properties at the end, skipping duplicates and anything past
// capacity. It returns the number of members actually added.
func (s *Section) Append(props ...Property) int {
	added := 0
	for _, prop := range props {
		if s.Room() <= 0 {
			break
		}
		if prop.ID == "" || s.Contains(prop.ID) {
			continue
		}
		s.items = append(s.items, prop)
		added++
	}
	return added
}

// Remove drops the member with the given id; it reports whether anything changed.
func (s *Section) Remove(id string) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return true
}

// RemoveMany drops every member whose id is in ids, in a single pass.
func (s *Section) RemoveMany(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.items[:0]
	removed := 0
	for _, item := range s.items {
		if _, ok := drop[item.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	return removed
}

// Reset empties the section.
func (s *Section) Reset() {
	s.items = nil
}

func (s *Section) indexOf(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
