package banners

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

// LoadTicket identifies one activation of a city and one read within it.
// Activation only changes on SelectCity; Generation also changes on Reload.
// Reads carrying a stale Generation are discarded, writes carrying a stale
// Activation are discarded.
type LoadTicket struct {
	City       string
	Activation uint64
	Generation uint64
}

// ReconcileOutcome reports what happened to a server customization response.
type ReconcileOutcome string

const (
	ReconcileApplied    ReconcileOutcome = "applied"
	ReconcileStale      ReconcileOutcome = "stale"
	ReconcileSuppressed ReconcileOutcome = "suppressed"
	ReconcileDone       ReconcileOutcome = "already_reconciled"
	ReconcileNotReady   ReconcileOutcome = "properties_not_loaded"
)

// MenuKind enumerates the dropdowns on the editor page.
type MenuKind string

const (
	MenuNone           MenuKind = ""
	MenuCity           MenuKind = "city"
	MenuSectionActions MenuKind = "section"
)

// Menu is the single open dropdown, if any.
type Menu struct {
	Kind    MenuKind
	Section SectionKind
}

// NoticeTone classifies a flash notice.
type NoticeTone string

const (
	ToneSuccess NoticeTone = "success"
	ToneError   NoticeTone = "error"
	ToneInfo    NoticeTone = "info"
)

// Notice is a flash message shown once on the next render.
type Notice struct {
	Tone    NoticeTone
	Message string
}

// Editor is the banner editor session of one admin. All state is scoped to
// the active city and guarded by a mutex because overlapping htmx requests
// may reach the same session.
type Editor struct {
	mu sync.Mutex

	id  string
	now func() time.Time

	cities []string

	city             string
	activation       uint64
	generation       uint64
	properties       []Property
	index            map[string]Property
	propertiesLoaded bool
	readError        string

	sections map[SectionKind]*Section
	removal  map[SectionKind]map[string]struct{}
	hero     *HeroBanner

	interacted bool
	reconciled bool
	saving     bool

	picker  picker
	form    *heroForm
	menu    Menu
	notices []Notice

	lastUsed time.Time
}

// NewEditor constructs an empty editor session.
func NewEditor(id string, now func() time.Time) *Editor {
	if now == nil {
		now = time.Now
	}
	e := &Editor{
		id:  id,
		now: now,
	}
	e.resetCityState()
	e.lastUsed = now()
	return e
}

// ID returns the owning admin session identifier.
func (e *Editor) ID() string {
	return e.id
}

// City returns the active city or an empty string.
func (e *Editor) City() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.city
}

// Interacted reports whether a local mutation happened since the last city switch.
func (e *Editor) Interacted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interacted
}

// SetCities stores the list of cities offered by the city selector.
func (e *Editor) SetCities(cities []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cities = append([]string(nil), cities...)
}

// HasCities reports whether the city list has been loaded.
func (e *Editor) HasCities() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cities) > 0
}

// SelectCity activates a city. All city-scoped state is cleared before the
// caller starts any reload, and the returned ticket tags that reload.
func (e *Editor) SelectCity(city string) (LoadTicket, error) {
	city = NormalizeCity(city)
	if city == "" {
		return LoadTicket{}, ErrNoCity
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touchLocked()

	e.city = city
	e.activation++
	e.generation++
	e.resetCityState()
	return e.ticketLocked(), nil
}

// Reload issues a fresh ticket for the active city without discarding local
// state. It is the retry path after a failed read.
func (e *Editor) Reload() (LoadTicket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touchLocked()
	if e.city == "" {
		return LoadTicket{}, ErrNoCity
	}
	e.generation++
	e.readError = ""
	return e.ticketLocked(), nil
}

// ApplyProperties installs the property catalogue for the activation
// identified by the ticket. Stale tickets are ignored.
func (e *Editor) ApplyProperties(t LoadTicket, props []Property) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentLocked(t) {
		return false
	}
	e.properties = make([]Property, 0, len(props))
	e.index = make(map[string]Property, len(props))
	for _, prop := range props {
		if prop.ID == "" {
			continue
		}
		if _, dup := e.index[prop.ID]; dup {
			continue
		}
		e.properties = append(e.properties, prop)
		e.index[prop.ID] = prop
	}
	e.propertiesLoaded = true
	return true
}

// FailLoad records a read failure for the ticket and surfaces a retry notice.
func (e *Editor) FailLoad(t LoadTicket, message string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentLocked(t) {
		return false
	}
	e.readError = message
	e.notices = append(e.notices, Notice{Tone: ToneError, Message: message})
	return true
}

// NeedsReconciliation reports whether a customization read for the ticket
// could still be applied.
func (e *Editor) NeedsReconciliation(t LoadTicket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLocked(t) && !e.interacted && !e.reconciled
}

// Reconcile merges the saved customization and hero banner into local state.
// It runs at most once per activation and never after a local mutation; saved
// ids missing from the loaded catalogue are dropped.
func (e *Editor) Reconcile(t LoadTicket, saved Customization, hero *HeroBanner) ReconcileOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case !e.currentLocked(t):
		return ReconcileStale
	case e.interacted:
		return ReconcileSuppressed
	case e.reconciled:
		return ReconcileDone
	case !e.propertiesLoaded:
		return ReconcileNotReady
	}

	for _, kind := range SectionKinds {
		section := &Section{}
		for _, id := range saved.IDs(kind) {
			prop, ok := e.index[id]
			if !ok {
				continue
			}
			section.Append(prop)
		}
		e.sections[kind] = section
	}
	if hero != nil {
		copied := *hero
		e.hero = &copied
	} else {
		e.hero = nil
	}
	e.reconciled = true
	return ReconcileApplied
}

// AddProperties appends catalogue properties to a rail and returns how many
// were added. Unknown and already present ids are skipped; the rail is
// capped at SectionCapacity.
func (e *Editor) AddProperties(kind SectionKind, ids []string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addLocked(kind, ids)
}

func (e *Editor) addLocked(kind SectionKind, ids []string) (int, error) {
	section, err := e.sectionLocked(kind)
	if err != nil {
		return 0, err
	}
	e.touchLocked()
	props := make([]Property, 0, len(ids))
	for _, id := range ids {
		if prop, ok := e.index[id]; ok {
			props = append(props, prop)
		}
	}
	added := section.Append(props...)
	e.interacted = true
	return added, nil
}

// RemoveProperty drops one member from a rail.
func (e *Editor) RemoveProperty(kind SectionKind, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	section, err := e.sectionLocked(kind)
	if err != nil {
		return false, err
	}
	e.touchLocked()
	removed := section.Remove(id)
	delete(e.removal[kind], id)
	e.interacted = true
	return removed, nil
}

// RemoveMany drops every listed member from a rail in one pass.
func (e *Editor) RemoveMany(kind SectionKind, ids []string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeManyLocked(kind, ids)
}

// RemoveSelected drops the members currently selected for removal.
func (e *Editor) RemoveSelected(kind SectionKind) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.sectionLocked(kind); err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(e.removal[kind]))
	for id := range e.removal[kind] {
		ids = append(ids, id)
	}
	return e.removeManyLocked(kind, ids)
}

func (e *Editor) removeManyLocked(kind SectionKind, ids []string) (int, error) {
	section, err := e.sectionLocked(kind)
	if err != nil {
		return 0, err
	}
	e.touchLocked()
	removed := section.RemoveMany(ids)
	for _, id := range ids {
		delete(e.removal[kind], id)
	}
	e.interacted = true
	return removed, nil
}

// ToggleRemoval flips the removal checkbox of a rail member. Selection is
// local only and does not count as an edit.
func (e *Editor) ToggleRemoval(kind SectionKind, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	section, err := e.sectionLocked(kind)
	if err != nil {
		return err
	}
	if !section.Contains(id) {
		return nil
	}
	selected := e.removal[kind]
	if _, ok := selected[id]; ok {
		delete(selected, id)
	} else {
		selected[id] = struct{}{}
	}
	return nil
}

// SelectAllForRemoval toggles selection of exactly the current rail members.
func (e *Editor) SelectAllForRemoval(kind SectionKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	section, err := e.sectionLocked(kind)
	if err != nil {
		return err
	}
	ids := section.IDs()
	if len(ids) > 0 && len(e.removal[kind]) == len(ids) {
		e.removal[kind] = make(map[string]struct{})
		return nil
	}
	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}
	e.removal[kind] = selected
	return nil
}

// ClearRemoval empties the removal selection of a rail.
func (e *Editor) ClearRemoval(kind SectionKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.sectionLocked(kind); err != nil {
		return err
	}
	e.removal[kind] = make(map[string]struct{})
	return nil
}

// OpenPicker opens the add-property modal for a rail with an empty selection.
func (e *Editor) OpenPicker(kind SectionKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.sectionLocked(kind); err != nil {
		return err
	}
	e.touchLocked()
	e.picker.start(kind)
	e.menu = Menu{}
	return nil
}

// TogglePending flips a picker candidate.
func (e *Editor) TogglePending(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.picker.toggle(id, e.candidatesLocked())
}

// TogglePendingAll engages or clears select-all over the visible candidates.
func (e *Editor) TogglePendingAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.picker.toggleAll(filterCandidates(e.candidatesLocked(), e.picker.filter))
}

// FilterPicker narrows the visible candidates by name or locality.
func (e *Editor) FilterPicker(query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.picker.open {
		e.picker.setFilter(query)
	}
}

// SetPickerPage moves the picker listing to a page.
func (e *Editor) SetPickerPage(page int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.picker.open {
		e.picker.setPage(page)
	}
}

// ConfirmPicker adds the pending selection to the target rail, closes the
// modal and queues a confirmation notice.
func (e *Editor) ConfirmPicker() (SectionKind, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.picker.open {
		return "", 0, nil
	}
	kind := e.picker.kind
	pending := append([]string(nil), e.picker.pending...)
	e.picker.reset()
	if len(pending) == 0 {
		return kind, 0, nil
	}
	added, err := e.addLocked(kind, pending)
	if err != nil {
		return kind, 0, err
	}
	e.notices = append(e.notices, Notice{Tone: ToneSuccess, Message: addedMessage(added, kind)})
	return kind, added, nil
}

// CancelPicker closes the modal without touching any rail.
func (e *Editor) CancelPicker() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.picker.reset()
}

// ToggleMenu opens the given dropdown, closing any other; toggling the open
// dropdown closes it.
func (e *Editor) ToggleMenu(menu Menu) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.menu == menu {
		e.menu = Menu{}
		return
	}
	e.menu = menu
}

// OpenHeroForm switches the hero banner into editing mode.
func (e *Editor) OpenHeroForm() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.city == "" {
		return ErrNoCity
	}
	e.touchLocked()
	e.form.release()
	form := &heroForm{}
	if e.hero != nil {
		form.title = e.hero.Title
		form.imageURL = e.hero.Image
	}
	e.form = form
	return nil
}

// StageHeroImage holds a newly chosen file for preview until the form is
// saved or closed. It returns the preview token.
func (e *Editor) StageHeroImage(img StagedImage) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.form == nil {
		return "", &ValidationError{Field: "image", Message: "Open the banner editor first."}
	}
	return e.form.stage(img), nil
}

// SetHeroTitle records the title typed into the open form.
func (e *Editor) SetHeroTitle(title string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.form != nil {
		e.form.title = title
	}
}

// RejectHeroImage shows message on the open form without touching the staged image.
func (e *Editor) RejectHeroImage(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.form != nil {
		e.form.err = message
	}
}

// Preview resolves a preview token of the open form.
func (e *Editor) Preview(token string) (StagedImage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.form == nil || e.form.staged == nil || e.form.staged.Token != token || token == "" {
		return StagedImage{}, false
	}
	staged := *e.form.staged
	staged.Data = append([]byte(nil), staged.Data...)
	return staged, true
}

// CloseHeroForm returns to viewing mode and releases any preview.
func (e *Editor) CloseHeroForm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form.release()
	e.form = nil
}

// heroSave is the snapshot a hero save works from while the editor is unlocked.
type heroSave struct {
	ticket   LoadTicket
	title    string
	imageURL string
	staged   *StagedImage
}

func (e *Editor) beginHeroSave(title string) (heroSave, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.city == "" {
		return heroSave{}, ErrNoCity
	}
	if e.form == nil {
		return heroSave{}, &ValidationError{Field: "form", Message: "Open the banner editor first."}
	}
	e.touchLocked()
	e.form.title = title
	var staged *StagedImage
	if e.form.staged != nil {
		copied := *e.form.staged
		staged = &copied
	}
	cleaned, err := validateHero(title, e.form.imageURL, staged)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			e.form.err = verr.Message
		}
		return heroSave{}, err
	}
	e.form.saving = true
	e.form.err = ""
	return heroSave{ticket: e.ticketLocked(), title: cleaned, imageURL: e.form.imageURL, staged: staged}, nil
}

func (e *Editor) commitHero(t LoadTicket, banner HeroBanner) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.activeLocked(t) {
		return false
	}
	e.hero = &banner
	e.interacted = true
	e.form.release()
	e.form = nil
	e.notices = append(e.notices, Notice{Tone: ToneSuccess, Message: "Hero banner saved."})
	return true
}

func (e *Editor) failHeroSave(t LoadTicket, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.activeLocked(t) {
		return
	}
	if e.form != nil {
		e.form.saving = false
		e.form.err = message
	}
	e.notices = append(e.notices, Notice{Tone: ToneError, Message: message})
}

func (e *Editor) heroTicket() (LoadTicket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.city == "" {
		return LoadTicket{}, ErrNoCity
	}
	e.touchLocked()
	return e.ticketLocked(), nil
}

func (e *Editor) clearHero(t LoadTicket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.activeLocked(t) {
		return false
	}
	e.hero = nil
	e.interacted = true
	e.form.release()
	e.form = nil
	e.notices = append(e.notices, Notice{Tone: ToneSuccess, Message: "Hero banner removed."})
	return true
}

// Snapshot returns the current rails serialised as a customization record.
func (e *Editor) Snapshot() (Customization, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.city == "" {
		return Customization{}, ErrNoCity
	}
	return e.snapshotLocked(), nil
}

func (e *Editor) snapshotLocked() Customization {
	return Customization{
		City:        e.city,
		Featured:    e.sections[SectionFeatured].IDs(),
		Recommended: e.sections[SectionRecommended].IDs(),
		Recent:      e.sections[SectionRecent].IDs(),
	}
}

func (e *Editor) beginSave() (LoadTicket, Customization, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.city == "" {
		return LoadTicket{}, Customization{}, ErrNoCity
	}
	// Until the saved record has been read or the rails edited, the empty
	// rails do not reflect the server and must not replace it.
	if !e.reconciled && !e.interacted {
		return LoadTicket{}, Customization{}, &ValidationError{
			Field:   "form",
			Message: "The saved banners for " + e.city + " have not loaded yet. Retry loading before saving.",
		}
	}
	e.touchLocked()
	e.saving = true
	return e.ticketLocked(), e.snapshotLocked(), nil
}

func (e *Editor) finishSave(t LoadTicket, err error, failure string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.activeLocked(t) {
		return
	}
	e.saving = false
	if err != nil {
		e.notices = append(e.notices, Notice{Tone: ToneError, Message: failure})
		return
	}
	// The saved state is now the server state; a late customization read for
	// this activation must not replace it.
	e.reconciled = true
	e.notices = append(e.notices, Notice{Tone: ToneSuccess, Message: "Banner configuration saved for " + e.city + "."})
}

// AddNotice queues a flash notice.
func (e *Editor) AddNotice(tone NoticeTone, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notices = append(e.notices, Notice{Tone: tone, Message: message})
}

// LastUsed returns the time of the last state-changing access.
func (e *Editor) LastUsed() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

// Close releases staged previews. It is called when the session is evicted.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form.release()
	e.form = nil
	e.picker.reset()
}

func (e *Editor) resetCityState() {
	e.properties = nil
	e.index = make(map[string]Property)
	e.propertiesLoaded = false
	e.readError = ""
	e.sections = make(map[SectionKind]*Section, len(SectionKinds))
	e.removal = make(map[SectionKind]map[string]struct{}, len(SectionKinds))
	for _, kind := range SectionKinds {
		e.sections[kind] = &Section{}
		e.removal[kind] = make(map[string]struct{})
	}
	e.hero = nil
	e.interacted = false
	e.reconciled = false
	e.saving = false
	e.picker.reset()
	e.form.release()
	e.form = nil
	e.menu = Menu{}
}

func (e *Editor) ticketLocked() LoadTicket {
	return LoadTicket{City: e.city, Activation: e.activation, Generation: e.generation}
}

// currentLocked reports whether t belongs to the latest read of the active city.
func (e *Editor) currentLocked(t LoadTicket) bool {
	return e.activeLocked(t) && t.Generation == e.generation
}

// activeLocked reports whether t was issued during the current city activation.
func (e *Editor) activeLocked(t LoadTicket) bool {
	return e.city != "" && t.City == e.city && t.Activation == e.activation
}

func (e *Editor) sectionLocked(kind SectionKind) (*Section, error) {
	if e.city == "" {
		return nil, ErrNoCity
	}
	section, ok := e.sections[kind]
	if !ok {
		return nil, &ValidationError{Field: "section", Message: "Unknown section."}
	}
	return section, nil
}

func (e *Editor) candidatesLocked() []Property {
	if !e.picker.open {
		return nil
	}
	section := e.sections[e.picker.kind]
	out := make([]Property, 0, len(e.properties))
	for _, prop := range e.properties {
		if section != nil && section.Contains(prop.ID) {
			continue
		}
		out = append(out, prop)
	}
	return out
}

func (e *Editor) touchLocked() {
	e.lastUsed = e.now()
}

func addedMessage(n int, kind SectionKind) string {
	switch n {
	case 0:
		return "No properties were added to " + kind.Label() + "."
	case 1:
		return "Added 1 property to " + kind.Label() + "."
	default:
		return "Added " + strconv.Itoa(n) + " properties to " + kind.Label() + "."
	}
}
