package banners

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func catalogue(prefix string, n int) []Property {
	props := make([]Property, 0, n)
	for i := 1; i <= n; i++ {
		props = append(props, Property{
			ID:       fmt.Sprintf("%s-%02d", prefix, i),
			Name:     fmt.Sprintf("Home %d", i),
			Locality: "Locality",
			Price:    int64(i) * 100000,
		})
	}
	return props
}

func ids(props []Property) []string {
	out := make([]string, 0, len(props))
	for _, p := range props {
		out = append(out, p.ID)
	}
	return out
}

func loadedEditor(t *testing.T, city string, props []Property) (*Editor, LoadTicket) {
	t.Helper()
	e := NewEditor("sess", nil)
	ticket, err := e.SelectCity(city)
	require.NoError(t, err)
	require.True(t, e.ApplyProperties(ticket, props))
	return e, ticket
}

func TestSectionNeverExceedsCapacityOrDuplicates(t *testing.T) {
	t.Parallel()

	props := catalogue("p", 30)
	e, _ := loadedEditor(t, "Pune", props)

	ops := []func(){
		func() { _, _ = e.AddProperties(SectionFeatured, ids(props[:7])) },
		func() { _, _ = e.AddProperties(SectionFeatured, ids(props[3:15])) },
		func() { _, _ = e.RemoveProperty(SectionFeatured, "p-02") },
		func() { _, _ = e.AddProperties(SectionFeatured, []string{"p-02", "p-02", "p-20"}) },
		func() { _, _ = e.RemoveMany(SectionFeatured, []string{"p-01", "p-05", "missing"}) },
		func() { _, _ = e.AddProperties(SectionFeatured, ids(props)) },
	}
	for _, op := range ops {
		op()
		got := e.Section(SectionFeatured)
		require.LessOrEqual(t, len(got), SectionCapacity)
		seen := map[string]bool{}
		for _, id := range got {
			require.False(t, seen[id], "duplicate %s", id)
			seen[id] = true
		}
	}
}

func TestAddPropertiesSkipsUnknownAndExisting(t *testing.T) {
	t.Parallel()

	e, _ := loadedEditor(t, "Pune", catalogue("p", 5))

	added, err := e.AddProperties(SectionRecent, []string{"p-01", "p-02"})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	added, err = e.AddProperties(SectionRecent, []string{"p-02", "nope", "p-03"})
	require.NoError(t, err)
	require.Equal(t, 1, added)
	require.Equal(t, []string{"p-01", "p-02", "p-03"}, e.Section(SectionRecent))
	require.True(t, e.Interacted())
}

func TestRemovePreservesOrder(t *testing.T) {
	t.Parallel()

	e, _ := loadedEditor(t, "Pune", catalogue("p", 6))
	_, err := e.AddProperties(SectionFeatured, []string{"p-01", "p-02", "p-03", "p-04", "p-05"})
	require.NoError(t, err)

	removed, err := e.RemoveMany(SectionFeatured, []string{"p-02", "p-04"})
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	require.Equal(t, []string{"p-01", "p-03", "p-05"}, e.Section(SectionFeatured))
}

func TestSectionOperationsRequireCity(t *testing.T) {
	t.Parallel()

	e := NewEditor("sess", nil)
	_, err := e.AddProperties(SectionFeatured, []string{"x"})
	require.ErrorIs(t, err, ErrNoCity)
	require.ErrorIs(t, e.OpenPicker(SectionFeatured), ErrNoCity)
	_, err = e.SelectCity("   ")
	require.ErrorIs(t, err, ErrNoCity)
}

func TestSelectCityResetsEverything(t *testing.T) {
	t.Parallel()

	e, ticket := loadedEditor(t, "Mumbai", catalogue("mum", 15))
	require.Equal(t, ReconcileApplied, e.Reconcile(ticket, Customization{Featured: []string{"mum-01"}}, &HeroBanner{Image: "https://x/hero.jpg", Title: "Hero"}))
	_, err := e.AddProperties(SectionRecent, []string{"mum-02"})
	require.NoError(t, err)
	require.NoError(t, e.ToggleRemoval(SectionRecent, "mum-02"))
	require.NoError(t, e.OpenHeroForm())
	_, err = e.StageHeroImage(StagedImage{Name: "a.png", Data: []byte("x")})
	require.NoError(t, err)

	next, err := e.SelectCity("Pune")
	require.NoError(t, err)
	require.Greater(t, next.Generation, ticket.Generation)

	view := e.View()
	require.Equal(t, "Pune", view.City)
	require.Nil(t, view.Hero)
	require.Nil(t, view.HeroForm)
	require.Nil(t, view.Picker)
	require.False(t, view.Interacted)
	require.False(t, view.PropertiesLoaded)
	for _, section := range view.Sections {
		require.Empty(t, section.Items)
		require.Empty(t, section.Selected)
	}
}

func TestReconcileDropsUnknownIDsInOrder(t *testing.T) {
	t.Parallel()

	e, ticket := loadedEditor(t, "Mumbai", catalogue("mum", 15))
	saved := Customization{
		City: "Mumbai",
		Featured: []string{
			"mum-03", "mum-16", "mum-01", "mum-07", "mum-17", "mum-02",
			"mum-09", "mum-11", "mum-18", "mum-05", "mum-14", "mum-06",
		},
	}

	require.Equal(t, ReconcileApplied, e.Reconcile(ticket, saved, nil))
	require.Equal(t, []string{
		"mum-03", "mum-01", "mum-07", "mum-02", "mum-09", "mum-11", "mum-05", "mum-14", "mum-06",
	}, e.Section(SectionFeatured))
	require.Nil(t, e.Hero())
	require.False(t, e.Interacted())
}

func TestReconcileTruncatesToCapacity(t *testing.T) {
	t.Parallel()

	props := catalogue("p", 14)
	e, ticket := loadedEditor(t, "Pune", props)
	require.Equal(t, ReconcileApplied, e.Reconcile(ticket, Customization{Recent: ids(props)}, nil))
	require.Equal(t, ids(props[:SectionCapacity]), e.Section(SectionRecent))
}

func TestReconcileGuards(t *testing.T) {
	t.Parallel()

	t.Run("interacted", func(t *testing.T) {
		e, ticket := loadedEditor(t, "Mumbai", catalogue("mum", 15))
		_, err := e.AddProperties(SectionFeatured, []string{"mum-10"})
		require.NoError(t, err)

		// Delayed customization response after a local edit.
		outcome := e.Reconcile(ticket, Customization{Featured: []string{"mum-01", "mum-02"}}, &HeroBanner{Title: "late"})
		require.Equal(t, ReconcileSuppressed, outcome)
		require.Equal(t, []string{"mum-10"}, e.Section(SectionFeatured))
		require.Nil(t, e.Hero())
	})

	t.Run("stale city", func(t *testing.T) {
		e, ticket := loadedEditor(t, "Mumbai", catalogue("mum", 15))
		next, err := e.SelectCity("Pune")
		require.NoError(t, err)
		require.True(t, e.ApplyProperties(next, catalogue("mum", 15)))

		require.False(t, e.ApplyProperties(ticket, catalogue("mum", 3)))
		require.Equal(t, ReconcileStale, e.Reconcile(ticket, Customization{Featured: []string{"mum-01"}}, nil))
		require.Empty(t, e.Section(SectionFeatured))
	})

	t.Run("once per activation", func(t *testing.T) {
		e, ticket := loadedEditor(t, "Mumbai", catalogue("mum", 15))
		require.Equal(t, ReconcileApplied, e.Reconcile(ticket, Customization{Featured: []string{"mum-01"}}, nil))
		require.Equal(t, ReconcileDone, e.Reconcile(ticket, Customization{Featured: []string{"mum-02"}}, nil))
		require.Equal(t, []string{"mum-01"}, e.Section(SectionFeatured))
	})

	t.Run("properties not loaded", func(t *testing.T) {
		e := NewEditor("sess", nil)
		ticket, err := e.SelectCity("Mumbai")
		require.NoError(t, err)
		require.Equal(t, ReconcileNotReady, e.Reconcile(ticket, Customization{}, nil))
	})
}

func TestPickerBoundedSelection(t *testing.T) {
	t.Parallel()

	props := catalogue("p", 20)
	e, _ := loadedEditor(t, "Pune", props)
	require.NoError(t, e.OpenPicker(SectionRecommended))

	for _, p := range props[:11] {
		e.TogglePending(p.ID)
	}
	require.Len(t, e.PendingIDs(), PendingLimit)
	require.Equal(t, ids(props[:10]), e.PendingIDs())

	kind, added, err := e.ConfirmPicker()
	require.NoError(t, err)
	require.Equal(t, SectionRecommended, kind)
	require.Equal(t, 10, added)
	require.Equal(t, ids(props[:10]), e.Section(SectionRecommended))

	view := e.View()
	require.Nil(t, view.Picker)
	require.Len(t, view.Notices, 1)
	require.Equal(t, "Added 10 properties to Recommended.", view.Notices[0].Message)
}

func TestPickerCandidatesExcludeMembers(t *testing.T) {
	t.Parallel()

	e, _ := loadedEditor(t, "Pune", catalogue("p", 5))
	_, err := e.AddProperties(SectionFeatured, []string{"p-01", "p-02"})
	require.NoError(t, err)
	require.NoError(t, e.OpenPicker(SectionFeatured))

	e.TogglePending("p-01")
	require.Empty(t, e.PendingIDs())

	view := e.View()
	require.Equal(t, []string{"p-03", "p-04", "p-05"}, ids(view.Picker.Candidates))
}

func TestPickerSelectAllToggles(t *testing.T) {
	t.Parallel()

	e, _ := loadedEditor(t, "Pune", catalogue("p", 25))
	require.NoError(t, e.OpenPicker(SectionFeatured))

	e.TogglePending("p-05")
	e.TogglePendingAll()
	pending := e.PendingIDs()
	require.Len(t, pending, PendingLimit)
	require.Equal(t, "p-05", pending[0])
	require.True(t, e.View().Picker.SelectAll)

	e.TogglePendingAll()
	require.Empty(t, e.PendingIDs())
}

func TestPickerSelectAllFollowsFilter(t *testing.T) {
	t.Parallel()

	props := catalogue("p", 25)
	props[0].Locality = "Baner"
	props[1].Locality = "Baner"
	e, _ := loadedEditor(t, "Pune", props)
	require.NoError(t, e.OpenPicker(SectionFeatured))

	e.FilterPicker("baner")
	e.TogglePendingAll()
	require.Equal(t, []string{"p-01", "p-02"}, e.PendingIDs())
	require.True(t, e.View().Picker.SelectAll)

	e.FilterPicker("")
	require.False(t, e.View().Picker.SelectAll)
	e.TogglePendingAll()
	pending := e.PendingIDs()
	require.Len(t, pending, PendingLimit)
	require.Equal(t, []string{"p-01", "p-02", "p-03"}, pending[:3])
	require.True(t, e.View().Picker.SelectAll)

	e.FilterPicker("no such place")
	require.False(t, e.View().Picker.SelectAll)
	e.TogglePendingAll()
	require.Len(t, e.PendingIDs(), PendingLimit)
}

func TestPickerConfirmTruncatesToRoom(t *testing.T) {
	t.Parallel()

	props := catalogue("p", 20)
	e, _ := loadedEditor(t, "Pune", props)
	_, err := e.AddProperties(SectionFeatured, ids(props[:7]))
	require.NoError(t, err)

	require.NoError(t, e.OpenPicker(SectionFeatured))
	e.TogglePendingAll()
	require.Len(t, e.PendingIDs(), 10)

	_, added, err := e.ConfirmPicker()
	require.NoError(t, err)
	require.Equal(t, 3, added)
	require.Len(t, e.Section(SectionFeatured), SectionCapacity)
}

func TestPickerCancelLeavesSections(t *testing.T) {
	t.Parallel()

	e, _ := loadedEditor(t, "Pune", catalogue("p", 5))
	require.NoError(t, e.OpenPicker(SectionRecent))
	e.TogglePending("p-01")
	e.CancelPicker()

	require.Empty(t, e.Section(SectionRecent))
	require.False(t, e.Interacted())
	require.Nil(t, e.View().Picker)
}

func TestPickerFilterAndPagination(t *testing.T) {
	t.Parallel()

	props := catalogue("p", 45)
	props[44].Locality = "Koregaon Park"
	e, _ := loadedEditor(t, "Pune", props)
	require.NoError(t, e.OpenPicker(SectionRecent))

	view := e.View()
	require.Equal(t, 3, view.Picker.Pages)
	require.Len(t, view.Picker.Candidates, PickerPageSize)

	e.SetPickerPage(3)
	view = e.View()
	require.Equal(t, 3, view.Picker.Page)
	require.Len(t, view.Picker.Candidates, 5)

	e.FilterPicker("koregaon")
	view = e.View()
	require.Equal(t, 1, view.Picker.Page)
	require.Equal(t, []string{"p-45"}, ids(view.Picker.Candidates))
}

func TestRemovalSelection(t *testing.T) {
	t.Parallel()

	e, _ := loadedEditor(t, "Pune", catalogue("p", 5))
	_, err := e.AddProperties(SectionFeatured, []string{"p-01", "p-02", "p-03"})
	require.NoError(t, err)

	require.NoError(t, e.SelectAllForRemoval(SectionFeatured))
	view := e.View()
	require.True(t, view.Sections[0].AllMarked)
	require.Len(t, view.Sections[0].Selected, 3)

	require.NoError(t, e.SelectAllForRemoval(SectionFeatured))
	require.Empty(t, e.View().Sections[0].Selected)

	require.NoError(t, e.ToggleRemoval(SectionFeatured, "p-02"))
	require.NoError(t, e.ToggleRemoval(SectionFeatured, "p-04"))
	removed, err := e.RemoveSelected(SectionFeatured)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, []string{"p-01", "p-03"}, e.Section(SectionFeatured))
}

func TestToggleMenuKeepsOneOpen(t *testing.T) {
	t.Parallel()

	e := NewEditor("sess", nil)
	e.ToggleMenu(Menu{Kind: MenuCity})
	require.Equal(t, MenuCity, e.View().Menu.Kind)

	section := Menu{Kind: MenuSectionActions, Section: SectionRecent}
	e.ToggleMenu(section)
	require.Equal(t, section, e.View().Menu)

	e.ToggleMenu(section)
	require.Equal(t, Menu{}, e.View().Menu)
}

func TestHeroFormPreviewLifecycle(t *testing.T) {
	t.Parallel()

	e, ticket := loadedEditor(t, "Mumbai", catalogue("mum", 3))
	require.Equal(t, ReconcileApplied, e.Reconcile(ticket, Customization{}, &HeroBanner{Image: "https://x/old.jpg", Title: "Old"}))
	require.NoError(t, e.OpenHeroForm())

	view := e.View()
	require.Equal(t, "Old", view.HeroForm.Title)
	require.Equal(t, "https://x/old.jpg", view.HeroForm.ImageURL)

	first, err := e.StageHeroImage(StagedImage{Name: "a.png", ContentType: "image/png", Data: []byte("one")})
	require.NoError(t, err)
	staged, ok := e.Preview(first)
	require.True(t, ok)
	require.Equal(t, []byte("one"), staged.Data)

	second, err := e.StageHeroImage(StagedImage{Name: "b.png", ContentType: "image/png", Data: []byte("two")})
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	_, ok = e.Preview(first)
	require.False(t, ok)

	e.CloseHeroForm()
	_, ok = e.Preview(second)
	require.False(t, ok)
	require.Equal(t, "Old", e.Hero().Title)
}

func TestHeroValidation(t *testing.T) {
	t.Parallel()

	e, _ := loadedEditor(t, "Pune", catalogue("p", 1))
	require.NoError(t, e.OpenHeroForm())

	_, err := e.beginHeroSave("  <b></b> ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "title", verr.Field)

	_, err = e.beginHeroSave("Monsoon offers")
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "image", verr.Field)
	require.Equal(t, "Choose an image for the banner.", e.View().HeroForm.Error)
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Homes & Villas", CleanTitle("  <script>x</script>Homes &amp; <b>Villas</b> "))
	require.Equal(t, "a b", CleanTitle("a\n\tb"))
}

func TestCloseReleasesPreviews(t *testing.T) {
	t.Parallel()

	e, _ := loadedEditor(t, "Pune", catalogue("p", 1))
	require.NoError(t, e.OpenHeroForm())
	token, err := e.StageHeroImage(StagedImage{Data: []byte("img")})
	require.NoError(t, err)

	e.Close()
	_, ok := e.Preview(token)
	require.False(t, ok)
}

func TestViewDrainsNotices(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	e := NewEditor("sess", func() time.Time { return now })
	e.AddNotice(ToneInfo, "hello")
	require.Len(t, e.View().Notices, 1)
	require.Empty(t, e.View().Notices)
	require.Equal(t, now, e.LastUsed())
}

func TestWritesFromEarlierActivationAreDiscarded(t *testing.T) {
	t.Parallel()

	props := catalogue("mum", 5)
	e, first := loadedEditor(t, "Mumbai", props)
	require.Equal(t, ReconcileApplied, e.Reconcile(first, Customization{City: "Mumbai"}, nil))
	_, err := e.AddProperties(SectionFeatured, []string{"mum-01"})
	require.NoError(t, err)

	saveTicket, _, err := e.beginSave()
	require.NoError(t, err)
	heroTicket, err := e.heroTicket()
	require.NoError(t, err)

	_, err = e.SelectCity("Pune")
	require.NoError(t, err)
	second, err := e.SelectCity("Mumbai")
	require.NoError(t, err)
	require.True(t, e.ApplyProperties(second, props))

	e.finishSave(saveTicket, nil, "")
	require.False(t, e.commitHero(heroTicket, HeroBanner{Image: "https://cdn.example/h.png", Title: "Old"}))
	require.False(t, e.clearHero(heroTicket))
	e.failHeroSave(heroTicket, "upload failed")
	require.False(t, e.Interacted())
	require.Empty(t, e.View().Notices)

	saved := Customization{City: "Mumbai", Featured: []string{"mum-01", "mum-02"}}
	require.Equal(t, ReconcileApplied, e.Reconcile(second, saved, nil))
	require.Equal(t, []string{"mum-01", "mum-02"}, e.Section(SectionFeatured))
}

func TestSaveSurvivesReloadWithinActivation(t *testing.T) {
	t.Parallel()

	e, ticket := loadedEditor(t, "Pune", catalogue("p", 3))
	require.Equal(t, ReconcileApplied, e.Reconcile(ticket, Customization{City: "Pune"}, nil))

	saveTicket, _, err := e.beginSave()
	require.NoError(t, err)
	retry, err := e.Reload()
	require.NoError(t, err)
	require.NotEqual(t, saveTicket.Generation, retry.Generation)
	require.Equal(t, saveTicket.Activation, retry.Activation)

	e.finishSave(saveTicket, nil, "")
	view := e.View()
	require.False(t, view.Saving)
	require.Len(t, view.Notices, 1)
	require.Equal(t, ToneSuccess, view.Notices[0].Tone)
}

func TestSaveRefusedBeforeSavedRecordLoads(t *testing.T) {
	t.Parallel()

	e, ticket := loadedEditor(t, "Mumbai", catalogue("mum", 3))
	require.True(t, e.FailLoad(ticket, "Could not load the saved banners for Mumbai."))

	_, _, err := e.beginSave()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "form", verr.Field)
	require.False(t, e.View().Saving)

	_, err = e.AddProperties(SectionRecent, []string{"mum-02"})
	require.NoError(t, err)
	_, payload, err := e.beginSave()
	require.NoError(t, err)
	require.Equal(t, []string{"mum-02"}, payload.Recent)
}
