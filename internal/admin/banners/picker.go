package banners

import "strings"

const (
	// PendingLimit caps how many candidates can be checked in a single add flow.
	PendingLimit = SectionCapacity
	// PickerPageSize is the number of candidates listed per picker page.
	PickerPageSize = 20
)

// picker tracks the add-property modal. The zero value is closed.
type picker struct {
	open    bool
	kind    SectionKind
	pending []string
	filter  string
	page    int
}

func (p *picker) reset() {
	*p = picker{}
}

func (p *picker) start(kind SectionKind) {
	*p = picker{open: true, kind: kind, page: 1}
}

func (p *picker) isPending(id string) bool {
	for _, candidate := range p.pending {
		if candidate == id {
			return true
		}
	}
	return false
}

// toggle flips a candidate. Selecting beyond PendingLimit is ignored.
func (p *picker) toggle(id string, candidates []Property) {
	if !p.open || !containsProperty(candidates, id) {
		return
	}
	if p.isPending(id) {
		p.pending = removeString(p.pending, id)
	} else if len(p.pending) < PendingLimit {
		p.pending = append(p.pending, id)
	}
}

// toggleAll selects the first unselected candidates up to PendingLimit, or
// clears the selection when nothing more can be selected.
func (p *picker) toggleAll(candidates []Property) {
	if !p.open || len(candidates) == 0 {
		return
	}
	if p.allSelected(candidates) {
		p.pending = nil
		return
	}
	for _, candidate := range candidates {
		if len(p.pending) >= PendingLimit {
			break
		}
		if p.isPending(candidate.ID) {
			continue
		}
		p.pending = append(p.pending, candidate.ID)
	}
}

// allSelected reports whether select-all is engaged for candidates: there is
// at least one and none is left to check.
func (p *picker) allSelected(candidates []Property) bool {
	return len(candidates) > 0 && p.saturated(candidates)
}

// saturated reports whether no further candidate can be checked.
func (p *picker) saturated(candidates []Property) bool {
	if len(p.pending) >= PendingLimit {
		return true
	}
	if len(candidates) == 0 {
		return false
	}
	for _, candidate := range candidates {
		if !p.isPending(candidate.ID) {
			return false
		}
	}
	return true
}

func (p *picker) setFilter(query string) {
	p.filter = strings.TrimSpace(query)
	p.page = 1
}

func (p *picker) setPage(page int) {
	if page < 1 {
		page = 1
	}
	p.page = page
}

// filterCandidates applies the case-insensitive text filter over name and locality.
func filterCandidates(candidates []Property, query string) []Property {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return candidates
	}
	out := make([]Property, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.Contains(strings.ToLower(candidate.Name), query) ||
			strings.Contains(strings.ToLower(candidate.Locality), query) {
			out = append(out, candidate)
		}
	}
	return out
}

// paginate returns the requested page (1-based) and the total page count.
func paginate(items []Property, page, size int) ([]Property, int, int) {
	if size <= 0 {
		size = PickerPageSize
	}
	pages := (len(items) + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page, pages
}

func containsProperty(props []Property, id string) bool {
	for _, prop := range props {
		if prop.ID == id {
			return true
		}
	}
	return false
}

func removeString(values []string, target string) []string {
	out := values[:0]
	for _, v := range values {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
