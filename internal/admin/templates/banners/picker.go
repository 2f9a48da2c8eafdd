package banners

import (
	"context"
	"strconv"

	"finitefield.org/estate-admin/internal/admin/banners"
	"finitefield.org/estate-admin/internal/admin/templates/helpers"
	"finitefield.org/estate-admin/internal/admin/templates/layouts"
)

func pickerModal(ctx context.Context, w *helpers.Writer, p banners.PickerView) {
	capacity := min(p.Limit, p.Room)

	w.Raw(`<div class="modal-backdrop"><div class="modal" role="dialog" aria-modal="true"`)
	w.Attr("data-picker", string(p.Kind))
	w.Raw(`><header class="modal-header"><h2>Add properties to `)
	w.Text(p.Label)
	w.Raw(`</h2><p class="modal-sub" data-picker-count>`)
	w.Text(strconv.Itoa(p.Count) + " selected · " + strconv.Itoa(p.Room) + " free slots")
	w.Raw(`</p></header>`)

	filter := helpers.Path(ctx, "/banners/picker/filter")
	w.Raw(`<form method="post" class="picker-filter" role="search"`)
	w.Attr("action", filter)
	w.Raw(`>`)
	layouts.CSRFField(ctx, w)
	w.Raw(`<input type="search" id="picker-filter" hx-preserve name="q" placeholder="Filter by name or locality" hx-trigger="input changed delay:300ms, search"`)
	w.Attr("value", p.Filter)
	w.Attr("hx-post", filter)
	w.Attr("hx-target", EditorTarget)
	w.Raw(` hx-swap="outerHTML"></form>`)

	actionForm(ctx, w, "/banners/picker/select-all", func() {
		w.Raw(`<button type="submit" class="btn btn-small" data-picker-select-all`)
		w.BoolAttr("disabled", p.Total == 0)
		w.Raw(`>`)
		if p.SelectAll {
			w.Text("Clear selection")
		} else {
			w.Text("Select first " + strconv.Itoa(p.Limit))
		}
		w.Raw(`</button>`)
	})

	if len(p.Candidates) == 0 {
		w.Raw(`<p class="empty-state" data-picker-empty>No properties available.</p>`)
	} else {
		w.Raw(`<ul class="picker-list">`)
		for _, c := range p.Candidates {
			pending := p.Pending[c.ID]
			w.Raw(`<li`)
			w.Attr("class", activeClass("picker-item", pending))
			w.Attr("data-candidate", c.ID)
			w.Raw(`>`)
			actionForm(ctx, w, "/banners/picker/toggle", func() {
				hidden(w, "id", c.ID)
				w.Raw(`<button type="submit" class="picker-toggle"`)
				w.Attr("aria-pressed", strconv.FormatBool(pending))
				w.BoolAttr("disabled", !pending && p.Count >= p.Limit)
				w.Raw(`>`)
				propertySummary(w, c, p.Filter)
				w.Raw(`</button>`)
			})
			w.Raw(`</li>`)
		}
		w.Raw(`</ul>`)
	}

	if p.Pages > 1 {
		w.Raw(`<nav class="pager" data-picker-pager>`)
		pageButton(ctx, w, p.Page-1, "Previous", p.Page <= 1)
		w.Raw(`<span class="pager-status">`)
		w.Text("Page " + strconv.Itoa(p.Page) + " of " + strconv.Itoa(p.Pages))
		w.Raw(`</span>`)
		pageButton(ctx, w, p.Page+1, "Next", p.Page >= p.Pages)
		w.Raw(`</nav>`)
	}

	w.Raw(`<footer class="modal-footer">`)
	actionForm(ctx, w, "/banners/picker/cancel", func() {
		w.Raw(`<button type="submit" class="btn" data-picker-cancel>Cancel</button>`)
	})
	actionForm(ctx, w, "/banners/picker/confirm", func() {
		w.Raw(`<button type="submit" class="btn btn-primary" data-picker-confirm`)
		w.BoolAttr("disabled", p.Count == 0)
		w.Raw(`>`)
		w.Text("Add " + strconv.Itoa(min(p.Count, capacity)))
		w.Raw(`</button>`)
	})
	w.Raw(`</footer></div></div>`)
}

func pageButton(ctx context.Context, w *helpers.Writer, page int, label string, disabled bool) {
	actionForm(ctx, w, "/banners/picker/page", func() {
		hidden(w, "page", strconv.Itoa(page))
		w.Raw(`<button type="submit" class="btn btn-small"`)
		w.BoolAttr("disabled", disabled)
		w.Raw(`>`)
		w.Text(label)
		w.Raw(`</button>`)
	})
}
