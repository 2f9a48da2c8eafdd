package banners

// View is an immutable snapshot of the editor used by templates.
type View struct {
	City             string
	Cities           []string
	PropertiesLoaded bool
	PropertyCount    int
	ReadError        string
	Interacted       bool
	Saving           bool
	Sections         []SectionView
	Hero             *HeroBanner
	HeroForm         *HeroFormView
	Picker           *PickerView
	Menu             Menu
	Notices          []Notice
}

// SectionView describes one rail.
type SectionView struct {
	Kind      SectionKind
	Label     string
	Items     []Property
	Selected  map[string]bool
	Room      int
	Full      bool
	AllMarked bool
}

// PickerView describes the open add-property modal.
type PickerView struct {
	Kind       SectionKind
	Label      string
	Candidates []Property
	Pending    map[string]bool
	Count      int
	Limit      int
	Room       int
	SelectAll  bool
	Filter     string
	Page       int
	Pages      int
	Total      int
}

// HeroFormView describes the open hero editor.
type HeroFormView struct {
	Title        string
	ImageURL     string
	PreviewToken string
	PreviewName  string
	Error        string
	Saving       bool
}

// View snapshots the editor and drains queued notices.
func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	view := View{
		City:             e.city,
		Cities:           append([]string(nil), e.cities...),
		PropertiesLoaded: e.propertiesLoaded,
		PropertyCount:    len(e.properties),
		ReadError:        e.readError,
		Interacted:       e.interacted,
		Saving:           e.saving,
		Menu:             e.menu,
		Notices:          e.notices,
	}
	e.notices = nil

	if e.city == "" {
		return view
	}

	for _, kind := range SectionKinds {
		section := e.sections[kind]
		selected := make(map[string]bool, len(e.removal[kind]))
		for id := range e.removal[kind] {
			selected[id] = true
		}
		view.Sections = append(view.Sections, SectionView{
			Kind:      kind,
			Label:     kind.Label(),
			Items:     section.Items(),
			Selected:  selected,
			Room:      section.Room(),
			Full:      section.Room() <= 0,
			AllMarked: section.Len() > 0 && len(selected) == section.Len(),
		})
	}

	if e.hero != nil {
		hero := *e.hero
		view.Hero = &hero
	}

	if e.form != nil {
		form := &HeroFormView{
			Title:    e.form.title,
			ImageURL: e.form.imageURL,
			Error:    e.form.err,
			Saving:   e.form.saving,
		}
		if e.form.staged != nil {
			form.PreviewToken = e.form.staged.Token
			form.PreviewName = e.form.staged.Name
		}
		view.HeroForm = form
	}

	if e.picker.open {
		candidates := filterCandidates(e.candidatesLocked(), e.picker.filter)
		pageItems, page, pages := paginate(candidates, e.picker.page, PickerPageSize)
		pending := make(map[string]bool, len(e.picker.pending))
		for _, id := range e.picker.pending {
			pending[id] = true
		}
		view.Picker = &PickerView{
			Kind:       e.picker.kind,
			Label:      e.picker.kind.Label(),
			Candidates: pageItems,
			Pending:    pending,
			Count:      len(e.picker.pending),
			Limit:      PendingLimit,
			Room:       e.sections[e.picker.kind].Room(),
			SelectAll:  e.picker.allSelected(candidates),
			Filter:     e.picker.filter,
			Page:       page,
			Pages:      pages,
			Total:      len(candidates),
		}
	}
	return view
}

// Section returns the member ids of a rail, mainly for tests and logging.
func (e *Editor) Section(kind SectionKind) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	section, ok := e.sections[kind]
	if !ok {
		return nil
	}
	return section.IDs()
}

// Hero returns a copy of the current hero banner.
func (e *Editor) Hero() *HeroBanner {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hero == nil {
		return nil
	}
	hero := *e.hero
	return &hero
}

// PendingIDs returns the picker selection in order.
func (e *Editor) PendingIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.picker.pending...)
}
