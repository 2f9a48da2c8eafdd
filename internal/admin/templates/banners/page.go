package banners

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/estate-admin/internal/admin/banners"
	"finitefield.org/estate-admin/internal/admin/templates/helpers"
	"finitefield.org/estate-admin/internal/admin/templates/layouts"
)

// Page renders the full banner editor page.
func Page(data PageData) templ.Component {
	return layouts.Base("Banners", Editor(data))
}

// Editor renders the swappable editor fragment.
func Editor(data PageData) templ.Component {
	return helpers.Component(func(ctx context.Context, w *helpers.Writer) {
		v := data.View

		w.Raw(`<div id="banner-editor" class="banner-editor"`)
		w.Attr("data-city", v.City)
		w.Raw(`>`)
		notices(w, v.Notices)

		w.Raw(`<div class="editor-header"><h1>Banner customization</h1>`)
		cityMenu(ctx, w, data)
		w.Raw(`</div>`)

		if v.ReadError != "" {
			w.Raw(`<div class="notice notice-error" role="alert" data-read-error><span>`)
			w.Text(v.ReadError)
			w.Raw(`</span>`)
			actionForm(ctx, w, "/banners/reload", func() {
				w.Raw(`<button type="submit" class="btn btn-small">Retry</button>`)
			})
			w.Raw(`</div>`)
		}

		switch {
		case v.City == "":
			w.Raw(`<p class="empty-state" data-empty-city>Choose a city to edit its banners.</p>`)
		case !v.PropertiesLoaded:
			w.Raw(`<p class="empty-state" data-loading>Properties for `)
			w.Text(v.City)
			w.Raw(` are not loaded yet.</p>`)
		default:
			heroCard(ctx, w, data)
			for _, section := range v.Sections {
				rail(ctx, w, data, section)
			}
			saveBar(ctx, w, data)
		}

		if v.Picker != nil {
			pickerModal(ctx, w, *v.Picker)
		}
		if v.HeroForm != nil {
			heroFormModal(ctx, w, v.City, *v.HeroForm)
		}
		w.Raw(`</div>`)
	})
}

func notices(w *helpers.Writer, list []banners.Notice) {
	if len(list) == 0 {
		return
	}
	w.Raw(`<div class="notices" aria-live="polite">`)
	for _, n := range list {
		w.Raw(`<p`)
		w.Attr("class", helpers.NoticeClass(string(n.Tone)))
		w.Attr("data-notice", string(n.Tone))
		w.Raw(`>`)
		w.Text(n.Message)
		w.Raw(`</p>`)
	}
	w.Raw(`</div>`)
}

func cityMenu(ctx context.Context, w *helpers.Writer, data PageData) {
	v := data.View
	open := data.menuOpen(banners.MenuCity, "")

	w.Raw(`<div class="dropdown" data-city-menu>`)
	menuToggle(ctx, w, banners.MenuCity, "", open, func() {
		if v.City == "" {
			w.Text("Select a city")
		} else {
			w.Text(v.City)
		}
	})
	if open {
		w.Raw(`<ul class="dropdown-menu" role="menu">`)
		if len(v.Cities) == 0 {
			w.Raw(`<li class="dropdown-empty">No cities available.</li>`)
		}
		for _, city := range v.Cities {
			w.Raw(`<li>`)
			actionForm(ctx, w, "/banners/city", func() {
				hidden(w, "city", city)
				w.Raw(`<button type="submit" role="menuitem"`)
				w.Attr("class", activeClass("dropdown-item", city == v.City))
				w.Raw(`>`)
				w.Text(city)
				w.Raw(`</button>`)
			})
			w.Raw(`</li>`)
		}
		w.Raw(`</ul>`)
	}
	w.Raw(`</div>`)
}

func rail(ctx context.Context, w *helpers.Writer, data PageData, s banners.SectionView) {
	kind := string(s.Kind)
	base := "/banners/" + kind

	w.Raw(`<section class="rail"`)
	w.Attr("data-section", kind)
	w.Raw(`><header class="rail-header"><h2>`)
	w.Text(s.Label)
	w.Raw(`</h2><span class="rail-count" data-count>`)
	w.Text(strconv.Itoa(len(s.Items)) + "/" + strconv.Itoa(banners.SectionCapacity))
	w.Raw(`</span>`)

	if data.CanManage {
		open := data.menuOpen(banners.MenuSectionActions, s.Kind)
		w.Raw(`<div class="dropdown" data-section-menu>`)
		menuToggle(ctx, w, banners.MenuSectionActions, s.Kind, open, func() { w.Text("Actions") })
		if open {
			selected := len(s.Selected)
			w.Raw(`<ul class="dropdown-menu" role="menu"><li>`)
			actionForm(ctx, w, base+"/picker", func() {
				menuItem(w, "Add properties", s.Full, "data-action-add")
			})
			w.Raw(`</li><li>`)
			actionForm(ctx, w, base+"/selection/all", func() {
				label := "Select all"
				if s.AllMarked {
					label = "Clear selection"
				}
				menuItem(w, label, len(s.Items) == 0, "data-action-select-all")
			})
			w.Raw(`</li><li>`)
			actionForm(ctx, w, base+"/remove-selected", func() {
				menuItem(w, "Remove selected ("+strconv.Itoa(selected)+")", selected == 0, "data-action-remove-selected")
			})
			w.Raw(`</li></ul>`)
		}
		w.Raw(`</div>`)
	}
	w.Raw(`</header>`)

	if len(s.Items) == 0 {
		w.Raw(`<p class="rail-empty">No properties in this section yet.</p>`)
	} else {
		w.Raw(`<ol class="cards">`)
		for _, p := range s.Items {
			w.Raw(`<li class="card"`)
			w.Attr("data-property-id", p.ID)
			w.Raw(`>`)
			propertySummary(w, p, "")
			if data.CanManage {
				w.Raw(`<div class="card-actions">`)
				actionForm(ctx, w, base+"/selection/toggle", func() {
					hidden(w, "id", p.ID)
					w.Raw(`<button type="submit" class="btn btn-small" data-mark`)
					w.Attr("aria-pressed", strconv.FormatBool(s.Selected[p.ID]))
					w.Raw(`>`)
					if s.Selected[p.ID] {
						w.Text("Marked")
					} else {
						w.Text("Mark")
					}
					w.Raw(`</button>`)
				})
				actionForm(ctx, w, base+"/remove", func() {
					hidden(w, "id", p.ID)
					w.Raw(`<button type="submit" class="btn btn-small btn-danger" data-remove>Remove</button>`)
				})
				w.Raw(`</div>`)
			}
			w.Raw(`</li>`)
		}
		w.Raw(`</ol>`)
	}
	w.Raw(`</section>`)
}

func saveBar(ctx context.Context, w *helpers.Writer, data PageData) {
	v := data.View
	w.Raw(`<div class="save-bar">`)
	if v.Interacted {
		w.Raw(`<span class="save-status" data-dirty>Changes are not saved yet.</span>`)
	}
	if data.CanManage {
		actionForm(ctx, w, "/banners/save", func() {
			w.Raw(`<button type="submit" class="btn btn-primary" data-save`)
			w.BoolAttr("disabled", v.Saving || v.ReadError != "")
			w.Raw(`>`)
			if v.Saving {
				w.Text("Saving…")
			} else {
				w.Text("Save configuration")
			}
			w.Raw(`</button>`)
		})
	}
	w.Raw(`</div>`)
}

func propertySummary(w *helpers.Writer, p banners.Property, highlight string) {
	if p.Image != "" {
		w.Raw(`<img class="card-image" loading="lazy"`)
		w.Attr("src", p.Image)
		w.Attr("alt", p.Name)
		w.Raw(`>`)
	}
	w.Raw(`<div class="card-body"><strong class="card-title">`)
	if highlight != "" {
		w.Highlight(p.Name, highlight)
	} else {
		w.Text(p.Name)
	}
	w.Raw(`</strong><span class="card-meta">`)
	if p.Locality != "" {
		w.Text(p.Locality + " · ")
	}
	w.Text(helpers.Price(p.Price))
	w.Raw(`</span></div>`)
}

// actionForm writes a POST form that htmx swaps into the editor and that
// degrades to a plain post/redirect/get without JavaScript.
func actionForm(ctx context.Context, w *helpers.Writer, suffix string, body func()) {
	action := helpers.Path(ctx, suffix)
	w.Raw(`<form method="post" class="inline-form"`)
	w.Attr("action", action)
	w.Attr("hx-post", action)
	w.Attr("hx-target", EditorTarget)
	w.Raw(` hx-swap="outerHTML">`)
	layouts.CSRFField(ctx, w)
	body()
	w.Raw(`</form>`)
}

func menuToggle(ctx context.Context, w *helpers.Writer, kind banners.MenuKind, section banners.SectionKind, open bool, label func()) {
	actionForm(ctx, w, "/banners/menu", func() {
		hidden(w, "kind", string(kind))
		if section != "" {
			hidden(w, "section", string(section))
		}
		w.Raw(`<button type="submit" class="btn dropdown-toggle" aria-haspopup="menu"`)
		w.Attr("aria-expanded", strconv.FormatBool(open))
		w.Raw(`>`)
		label()
		w.Raw(`</button>`)
	})
}

func menuItem(w *helpers.Writer, label string, disabled bool, marker string) {
	w.Raw(`<button type="submit" class="dropdown-item" role="menuitem" `, marker)
	w.BoolAttr("disabled", disabled)
	w.Raw(`>`)
	w.Text(label)
	w.Raw(`</button>`)
}

func hidden(w *helpers.Writer, name, value string) {
	w.Raw(`<input type="hidden"`)
	w.Attr("name", name)
	w.Attr("value", value)
	w.Raw(`>`)
}

func activeClass(base string, active bool) string {
	if active {
		return base + " active"
	}
	return base
}
