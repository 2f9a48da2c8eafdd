package banners

import (
	"context"
	"strconv"

	"finitefield.org/estate-admin/internal/admin/banners"
	"finitefield.org/estate-admin/internal/admin/templates/helpers"
	"finitefield.org/estate-admin/internal/admin/templates/layouts"
)

func heroCard(ctx context.Context, w *helpers.Writer, data PageData) {
	hero := data.View.Hero

	w.Raw(`<section class="hero-card" data-hero>`)
	if hero == nil {
		w.Raw(`<p class="hero-empty" data-hero-empty>No hero banner for `)
		w.Text(data.View.City)
		w.Raw(` yet.</p>`)
	} else {
		w.Raw(`<img class="hero-image"`)
		w.Attr("src", hero.Image)
		w.Attr("alt", hero.Title)
		w.Raw(`><div class="hero-body"><h2 data-hero-title>`)
		w.Text(hero.Title)
		w.Raw(`</h2>`)
		if hero.UpdatedAt != nil {
			w.Raw(`<span class="hero-meta">Updated `)
			w.Text(helpers.Date(*hero.UpdatedAt, "02 Jan 2006 15:04"))
			w.Raw(`</span>`)
		}
		w.Raw(`</div>`)
	}

	if data.CanEditHero {
		w.Raw(`<div class="hero-actions">`)
		actionForm(ctx, w, "/banners/hero/form", func() {
			w.Raw(`<button type="submit" class="btn" data-hero-edit>`)
			if hero == nil {
				w.Text("Add hero banner")
			} else {
				w.Text("Edit hero banner")
			}
			w.Raw(`</button>`)
		})
		if hero != nil {
			actionForm(ctx, w, "/banners/hero/delete", func() {
				w.Raw(`<button type="submit" class="btn btn-danger" data-hero-delete hx-confirm="Remove the hero banner?">Remove</button>`)
			})
		}
		w.Raw(`</div>`)
	}
	w.Raw(`</section>`)
}

// heroFormModal renders the hero editor. One multipart form serves both the
// preview and the save action so the title survives an image change.
func heroFormModal(ctx context.Context, w *helpers.Writer, city string, f banners.HeroFormView) {
	stage := helpers.Path(ctx, "/banners/hero/image")
	save := helpers.Path(ctx, "/banners/hero")

	w.Raw(`<div class="modal-backdrop"><div class="modal" role="dialog" aria-modal="true" data-hero-form>`)
	w.Raw(`<header class="modal-header"><h2>Hero banner for `)
	w.Text(city)
	w.Raw(`</h2></header>`)

	w.Raw(`<form method="post" enctype="multipart/form-data" hx-encoding="multipart/form-data"`)
	w.Attr("action", save)
	w.Attr("hx-target", EditorTarget)
	w.Raw(` hx-swap="outerHTML">`)
	layouts.CSRFField(ctx, w)

	w.Raw(`<div class="hero-preview" data-hero-preview>`)
	switch {
	case f.PreviewToken != "":
		w.Raw(`<img`)
		w.Attr("src", helpers.Path(ctx, "/banners/hero/preview/"+f.PreviewToken))
		w.Attr("alt", f.PreviewName)
		w.Raw(`>`)
	case f.ImageURL != "":
		w.Raw(`<img`)
		w.Attr("src", f.ImageURL)
		w.Attr("alt", f.Title)
		w.Raw(`>`)
	default:
		w.Raw(`<span class="hero-empty">No image selected.</span>`)
	}
	w.Raw(`</div>`)

	w.Raw(`<label class="field"><span>Image</span><input type="file" name="image" accept="image/jpeg,image/png,image/webp"`)
	w.Attr("hx-post", stage)
	w.Raw(` hx-trigger="change"></label>`)

	w.Raw(`<label class="field"><span>Title</span><input type="text" name="title" required`)
	w.Attr("maxlength", strconv.Itoa(banners.MaxHeroTitleLength))
	w.Attr("value", f.Title)
	w.Raw(`></label>`)

	if f.Error != "" {
		w.Raw(`<p class="field-error" role="alert" data-hero-error>`)
		w.Text(f.Error)
		w.Raw(`</p>`)
	}

	w.Raw(`<footer class="modal-footer"><button type="submit" class="btn" data-hero-stage`)
	w.Attr("formaction", stage)
	w.Attr("hx-post", stage)
	w.Raw(`>Preview</button><button type="submit" class="btn btn-primary" data-hero-save`)
	w.Attr("hx-post", save)
	w.BoolAttr("disabled", f.Saving)
	w.Raw(`>`)
	if f.Saving {
		w.Text("Saving…")
	} else {
		w.Text("Save hero banner")
	}
	w.Raw(`</button></footer></form>`)

	actionForm(ctx, w, "/banners/hero/form/close", func() {
		w.Raw(`<button type="submit" class="btn btn-link" data-hero-close>Close</button>`)
	})
	w.Raw(`</div></div>`)
}
