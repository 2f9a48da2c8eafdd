package auth

import (
	"context"

	"github.com/a-h/templ"

	"finitefield.org/estate-admin/internal/admin/templates/helpers"
	"finitefield.org/estate-admin/internal/admin/templates/layouts"
)

// LoginPage renders the sign-in form. The browser exchanges the staff
// credentials for a Firebase ID token and posts it as id_token.
func LoginPage(data LoginPageData) templ.Component {
	return layouts.Base("Sign in", helpers.Component(func(ctx context.Context, w *helpers.Writer) {
		w.Raw(`<section class="login-card"><h1>Sign in</h1>`)
		if data.Message != "" {
			w.Raw(`<p class="notice notice-info" data-login-message>`)
			w.Text(data.Message)
			w.Raw(`</p>`)
		}
		if data.Error != "" {
			w.Raw(`<p class="notice notice-error" role="alert" data-login-error>`)
			w.Text(data.Error)
			w.Raw(`</p>`)
		}

		w.Raw(`<form method="post" class="login-form" data-login-form`)
		w.Attr("action", data.LoginPath)
		w.Raw(`>`)
		layouts.CSRFField(ctx, w)
		if data.Next != "" {
			w.Raw(`<input type="hidden" name="next"`)
			w.Attr("value", data.Next)
			w.Raw(`>`)
		}
		w.Raw(`<label class="field"><span>Email</span><input type="email" name="email" autocomplete="username"`)
		w.Attr("value", data.Email)
		w.Raw(`></label>`)
		w.Raw(`<label class="field"><span>ID token</span><input type="password" name="id_token" required autocomplete="off"></label>`)
		w.Raw(`<button type="submit" class="btn btn-primary">Sign in</button></form></section>`)
	}))
}
