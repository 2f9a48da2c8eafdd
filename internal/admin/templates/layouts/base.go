package layouts

import (
	"context"

	"github.com/a-h/templ"

	"finitefield.org/estate-admin/internal/admin/httpserver/middleware"
	"finitefield.org/estate-admin/internal/admin/templates/helpers"
)

const (
	productName = "Estate Admin"
	htmxSource  = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"
)

// Base renders the full document shell around body. The CSRF token is sent
// on every htmx request through hx-headers.
func Base(title string, body templ.Component) templ.Component {
	return helpers.Component(func(ctx context.Context, w *helpers.Writer) {
		csrf := middleware.CSRFTokenFromContext(ctx)

		w.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.Raw(`<title>`)
		if title != "" {
			w.Text(title + " | ")
		}
		w.Text(productName)
		w.Raw(`</title><meta name="csrf-token"`)
		w.Attr("content", csrf)
		w.Raw(`><link rel="stylesheet" href="/public/static/admin.css">`)
		w.Raw(`<script defer`)
		w.Attr("src", htmxSource)
		w.Raw(`></script></head><body`)
		w.Attr("hx-headers", `{"X-CSRF-Token":"`+csrf+`"}`)
		w.Raw(`>`)
		w.Component(ctx, Topbar())
		w.Raw(`<main class="container">`)
		w.Component(ctx, body)
		w.Raw(`</main></body></html>`)
	})
}

// Topbar renders the environment badge, signed-in user and logout form.
func Topbar() templ.Component {
	return helpers.Component(func(ctx context.Context, w *helpers.Writer) {
		env := middleware.EnvironmentFromContext(ctx)

		w.Raw(`<header class="topbar"><a class="brand"`)
		w.Attr("href", helpers.Path(ctx, "/banners"))
		w.Raw(`>`)
		w.Text(productName)
		w.Raw(`</a><span data-environment-badge`)
		w.Attr("title", env)
		w.Attr("class", helpers.BadgeClass(badgeTone(env)))
		w.Raw(`>`)
		w.Text(helpers.EnvironmentBadge(env))
		w.Raw(`</span>`)

		if label := helpers.UserLabel(ctx); label != "" {
			w.Raw(`<div class="user-menu" data-user-menu><span class="user-label">`)
			w.Text(label)
			w.Raw(`</span><form method="post" data-user-menu-logout`)
			w.Attr("action", helpers.Path(ctx, "/logout"))
			w.Raw(`>`)
			CSRFField(ctx, w)
			w.Raw(`<button type="submit" class="btn btn-link">Sign out</button></form></div>`)
		}
		w.Raw(`</header>`)
	})
}

// CSRFField writes the hidden token input for plain form posts.
func CSRFField(ctx context.Context, w *helpers.Writer) {
	w.Raw(`<input type="hidden"`)
	w.Attr("name", middleware.CSRFFormField)
	w.Attr("value", middleware.CSRFTokenFromContext(ctx))
	w.Raw(`>`)
}

func badgeTone(env string) string {
	switch helpers.EnvironmentBadge(env) {
	case "PRD":
		return "danger"
	case "STG":
		return "warning"
	default:
		return "success"
	}
}
