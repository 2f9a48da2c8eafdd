package ui

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/estate-admin/internal/admin/banners"
	custommw "finitefield.org/estate-admin/internal/admin/httpserver/middleware"
	"finitefield.org/estate-admin/internal/admin/observability"
	"finitefield.org/estate-admin/internal/admin/rbac"
	appsession "finitefield.org/estate-admin/internal/admin/session"
	bannerstpl "finitefield.org/estate-admin/internal/admin/templates/banners"
	"finitefield.org/estate-admin/internal/admin/uploads"
)

// editorRequest is the per-request view of the caller's editor session.
type editorRequest struct {
	editor  *banners.Editor
	session *appsession.Session
	token   string
}

func (h *Handlers) editorRequest(w http.ResponseWriter, r *http.Request) (editorRequest, bool) {
	ctx := r.Context()
	user, ok := custommw.UserFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return editorRequest{}, false
	}
	sess, ok := custommw.SessionFromContext(ctx)
	if !ok {
		observability.FromContext(ctx).Error("banners: request without session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return editorRequest{}, false
	}
	return editorRequest{
		editor:  h.registry.Get(sess.ID()),
		session: sess,
		token:   user.Token,
	}, true
}

// BannersPage renders the editor. The city list is fetched once per session
// and the last city chosen in this session is restored.
func (h *Handlers) BannersPage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.controller.LoadCities(ctx, req.editor, req.token); errors.Is(err, banners.ErrNotConfigured) {
		h.unavailable(w, r, err)
		return
	}
	if req.editor.City() == "" && req.session.City() != "" {
		h.finish(w, r, req, h.controller.SelectCity(ctx, req.editor, req.token, req.session.City()))
		return
	}
	h.respond(w, r, req)
}

// BannersSelectCity activates the posted city.
func (h *Handlers) BannersSelectCity(w http.ResponseWriter, r *http.Request) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	err := h.controller.SelectCity(r.Context(), req.editor, req.token, r.PostFormValue("city"))
	req.session.SetCity(req.editor.City())
	h.finish(w, r, req, err)
}

// BannersReload retries the reads of the active city.
func (h *Handlers) BannersReload(w http.ResponseWriter, r *http.Request) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	h.finish(w, r, req, h.controller.Reload(r.Context(), req.editor, req.token))
}

// BannersToggleMenu opens or closes the city selector or a section menu.
func (h *Handlers) BannersToggleMenu(w http.ResponseWriter, r *http.Request) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	menu := banners.Menu{Kind: banners.MenuKind(r.PostFormValue("kind"))}
	switch menu.Kind {
	case banners.MenuCity:
	case banners.MenuSectionActions:
		kind, err := banners.ParseSectionKind(r.PostFormValue("section"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		menu.Section = kind
	default:
		http.Error(w, "unknown menu", http.StatusBadRequest)
		return
	}
	req.editor.ToggleMenu(menu)
	h.respond(w, r, req)
}

// BannersOpenPicker opens the add-property modal for the routed section.
func (h *Handlers) BannersOpenPicker(w http.ResponseWriter, r *http.Request) {
	h.sectionAction(w, r, func(req editorRequest, kind banners.SectionKind) error {
		return req.editor.OpenPicker(kind)
	})
}

// BannersPickerToggle flips one candidate of the open picker.
func (h *Handlers) BannersPickerToggle(w http.ResponseWriter, r *http.Request) {
	h.editorAction(w, r, func(req editorRequest) error {
		req.editor.TogglePending(r.PostFormValue("id"))
		return nil
	})
}

// BannersPickerSelectAll engages or clears select-all on the open picker.
func (h *Handlers) BannersPickerSelectAll(w http.ResponseWriter, r *http.Request) {
	h.editorAction(w, r, func(req editorRequest) error {
		req.editor.TogglePendingAll()
		return nil
	})
}

// BannersPickerFilter narrows the picker candidates.
func (h *Handlers) BannersPickerFilter(w http.ResponseWriter, r *http.Request) {
	h.editorAction(w, r, func(req editorRequest) error {
		req.editor.FilterPicker(r.PostFormValue("q"))
		return nil
	})
}

// BannersPickerPage moves the picker listing to the posted page.
func (h *Handlers) BannersPickerPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("page")))
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	h.editorAction(w, r, func(req editorRequest) error {
		req.editor.SetPickerPage(page)
		return nil
	})
}

// BannersPickerConfirm adds the pending selection to the target section.
func (h *Handlers) BannersPickerConfirm(w http.ResponseWriter, r *http.Request) {
	h.editorAction(w, r, func(req editorRequest) error {
		_, _, err := req.editor.ConfirmPicker()
		return err
	})
}

// BannersPickerCancel closes the picker without changes.
func (h *Handlers) BannersPickerCancel(w http.ResponseWriter, r *http.Request) {
	h.editorAction(w, r, func(req editorRequest) error {
		req.editor.CancelPicker()
		return nil
	})
}

// BannersRemove drops one property from the routed section.
func (h *Handlers) BannersRemove(w http.ResponseWriter, r *http.Request) {
	h.sectionAction(w, r, func(req editorRequest, kind banners.SectionKind) error {
		_, err := req.editor.RemoveProperty(kind, r.PostFormValue("id"))
		return err
	})
}

// BannersRemoveSelected drops every property marked for removal.
func (h *Handlers) BannersRemoveSelected(w http.ResponseWriter, r *http.Request) {
	h.sectionAction(w, r, func(req editorRequest, kind banners.SectionKind) error {
		_, err := req.editor.RemoveSelected(kind)
		return err
	})
}

// BannersSelectionToggle marks or unmarks one property for removal.
func (h *Handlers) BannersSelectionToggle(w http.ResponseWriter, r *http.Request) {
	h.sectionAction(w, r, func(req editorRequest, kind banners.SectionKind) error {
		return req.editor.ToggleRemoval(kind, r.PostFormValue("id"))
	})
}

// BannersSelectionAll marks every property of the section for removal.
func (h *Handlers) BannersSelectionAll(w http.ResponseWriter, r *http.Request) {
	h.sectionAction(w, r, func(req editorRequest, kind banners.SectionKind) error {
		return req.editor.SelectAllForRemoval(kind)
	})
}

// BannersSelectionClear clears the removal marks of the section.
func (h *Handlers) BannersSelectionClear(w http.ResponseWriter, r *http.Request) {
	h.sectionAction(w, r, func(req editorRequest, kind banners.SectionKind) error {
		return req.editor.ClearRemoval(kind)
	})
}

// BannersSave submits the three sections as a full replace.
func (h *Handlers) BannersSave(w http.ResponseWriter, r *http.Request) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	h.finish(w, r, req, h.controller.SaveConfiguration(r.Context(), req.editor, req.token))
}

// BannersHeroForm switches the hero card into editing mode.
func (h *Handlers) BannersHeroForm(w http.ResponseWriter, r *http.Request) {
	h.editorAction(w, r, func(req editorRequest) error {
		return req.editor.OpenHeroForm()
	})
}

// BannersHeroFormClose discards the open hero form and its preview.
func (h *Handlers) BannersHeroFormClose(w http.ResponseWriter, r *http.Request) {
	h.editorAction(w, r, func(req editorRequest) error {
		req.editor.CloseHeroForm()
		return nil
	})
}

// BannersHeroImage stages the chosen file for preview.
func (h *Handlers) BannersHeroImage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	req.editor.SetHeroTitle(r.FormValue("title"))
	if err := h.stageUpload(r, req.editor); noFile(err) {
		req.editor.RejectHeroImage("Choose an image for the banner.")
	}
	h.respond(w, r, req)
}

// BannersHeroPreview streams the staged image of the open hero form.
func (h *Handlers) BannersHeroPreview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	img, found := req.editor.Preview(chi.URLParam(r, "token"))
	if !found {
		http.NotFound(w, r)
		return
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(img.Data)
}

// BannersHeroSave uploads a staged or freshly posted image and persists the banner.
func (h *Handlers) BannersHeroSave(w http.ResponseWriter, r *http.Request) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	title := r.FormValue("title")
	req.editor.SetHeroTitle(title)
	if err := h.stageUpload(r, req.editor); err != nil && !noFile(err) {
		h.respond(w, r, req)
		return
	}
	h.finish(w, r, req, h.controller.SaveHero(r.Context(), req.editor, req.token, title))
}

// BannersHeroDelete removes the hero banner of the active city.
func (h *Handlers) BannersHeroDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	h.finish(w, r, req, h.controller.DeleteHero(r.Context(), req.editor, req.token))
}

// stageUpload reads the multipart "image" field into the open hero form.
// Rejected files leave their message on the form.
func (h *Handlers) stageUpload(r *http.Request, e *banners.Editor) error {
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			e.RejectHeroImage(banners.UploadErrorMessage(uploads.ErrTooLarge))
		}
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		observability.FromContext(r.Context()).Warn("read hero image failed", zap.Error(err))
		e.RejectHeroImage("The image could not be read.")
		return err
	}
	img := uploads.Image{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Purpose:     uploads.PurposeHeroBanner,
	}
	contentType, err := uploads.Validate(img, h.maxUpload)
	if err != nil {
		e.RejectHeroImage(banners.UploadErrorMessage(err))
		return err
	}
	if _, err := e.StageHeroImage(banners.StagedImage{Name: img.Name, ContentType: contentType, Data: data}); err != nil {
		e.AddNotice(banners.ToneError, validationMessage(err))
		return err
	}
	return nil
}

func (h *Handlers) editorAction(w http.ResponseWriter, r *http.Request, action func(editorRequest) error) {
	req, ok := h.editorRequest(w, r)
	if !ok {
		return
	}
	h.finish(w, r, req, action(req))
}

func (h *Handlers) sectionAction(w http.ResponseWriter, r *http.Request, action func(editorRequest, banners.SectionKind) error) {
	kind, err := banners.ParseSectionKind(chi.URLParam(r, "section"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.editorAction(w, r, func(req editorRequest) error {
		return action(req, kind)
	})
}

// finish turns the outcome of an editor operation into a response. Backend
// failures are already queued as notices, so only local errors add one here.
func (h *Handlers) finish(w http.ResponseWriter, r *http.Request, req editorRequest, err error) {
	var verr *banners.ValidationError
	switch {
	case err == nil:
	case errors.Is(err, banners.ErrNotConfigured):
		h.unavailable(w, r, err)
		return
	case errors.Is(err, banners.ErrNoCity):
		req.editor.AddNotice(banners.ToneInfo, "Select a city first.")
	case errors.As(err, &verr):
		if verr.Field == "section" || verr.Field == "form" {
			req.editor.AddNotice(banners.ToneError, verr.Message)
		}
	default:
		observability.FromContext(r.Context()).Debug("banner action failed", zap.Error(err))
	}
	h.respond(w, r, req)
}

// respond renders the editor fragment for htmx swaps and the full page for
// plain GETs. Plain form posts are redirected back to the page so notices
// render once.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, req editorRequest) {
	ctx := r.Context()
	partial := custommw.HTMXInfoFromContext(ctx).Partial()
	if !partial && r.Method != http.MethodGet {
		http.Redirect(w, r, joinBasePath(custommw.BasePathFromContext(ctx), "/banners"), http.StatusSeeOther)
		return
	}

	data := bannerstpl.PageData{
		View:        req.editor.View(),
		CanManage:   custommw.Can(ctx, rbac.CapBannersManage),
		CanEditHero: custommw.Can(ctx, rbac.CapBannersHero),
	}
	if partial {
		templ.Handler(bannerstpl.Editor(data)).ServeHTTP(w, r)
		return
	}
	templ.Handler(bannerstpl.Page(data)).ServeHTTP(w, r)
}

func (h *Handlers) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).Error("banners backend unavailable", zap.Error(err))
	http.Error(w, "The banner service is not configured.", http.StatusServiceUnavailable)
}

// noFile reports a request that carried no image part.
func noFile(err error) bool {
	return errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)
}

func validationMessage(err error) string {
	var verr *banners.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return "The action could not be completed."
}
