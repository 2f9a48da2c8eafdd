package banners

import "finitefield.org/estate-admin/internal/admin/banners"

// PageData is the render state of the banner editor.
type PageData struct {
	View banners.View
	// CanManage allows section edits and saving; CanEditHero allows hero changes.
	CanManage   bool
	CanEditHero bool
}

// EditorTarget is the element every editor action swaps.
const EditorTarget = "#banner-editor"

func (d PageData) menuOpen(kind banners.MenuKind, section banners.SectionKind) bool {
	return d.View.Menu.Kind == kind && d.View.Menu.Section == section
}
