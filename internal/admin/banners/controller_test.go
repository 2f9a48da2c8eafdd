package banners

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/estate-admin/internal/admin/uploads"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeService struct {
	mu sync.Mutex

	props   map[string][]Property
	saved   map[string]Customization
	heroes  map[string]HeroBanner
	custErr error
	heroErr error
	saveErr error
	delErr  error
	upErr   error

	started chan struct{}
	release chan struct{}

	saveStarted chan struct{}
	saveRelease chan struct{}

	savedPayloads []Customization
	heroInputs    []HeroBannerInput
	deletes       int
}

func newFakeService() *fakeService {
	return &fakeService{
		props:  map[string][]Property{},
		saved:  map[string]Customization{},
		heroes: map[string]HeroBanner{},
	}
}

func (f *fakeService) ListCities(context.Context, string) ([]string, error) {
	return []string{" Mumbai ", "Pune", ""}, nil
}

func (f *fakeService) ListProperties(_ context.Context, _ string, city string) ([]Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.props[city], nil
}

func (f *fakeService) GetCustomization(ctx context.Context, _ string, city string) (Customization, error) {
	if f.started != nil {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			return Customization{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.custErr != nil {
		return Customization{}, f.custErr
	}
	cust, ok := f.saved[city]
	if !ok {
		return Customization{}, ErrNotFound
	}
	return cust, nil
}

func (f *fakeService) SaveCustomization(_ context.Context, _ string, c Customization) error {
	if f.saveStarted != nil {
		close(f.saveStarted)
		<-f.saveRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedPayloads = append(f.savedPayloads, c)
	f.saved[c.City] = c
	return nil
}

func (f *fakeService) GetHeroBanner(_ context.Context, _ string, city string) (*HeroBanner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.heroErr != nil {
		return nil, f.heroErr
	}
	hero, ok := f.heroes[city]
	if !ok {
		return nil, ErrNotFound
	}
	return &hero, nil
}

func (f *fakeService) UploadHeroBanner(_ context.Context, _ string, city string, input HeroBannerInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upErr != nil {
		return f.upErr
	}
	f.heroInputs = append(f.heroInputs, input)
	f.heroes[city] = HeroBanner{Image: input.Image, Title: input.Title}
	return nil
}

func (f *fakeService) DeleteHeroBanner(_ context.Context, _ string, city string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.heroes[city]; !ok {
		return ErrNotFound
	}
	delete(f.heroes, city)
	return nil
}

type failingUploader struct{ err error }

func (u failingUploader) Upload(context.Context, uploads.Image) (string, error) {
	return "", u.err
}

func TestControllerLoadCitiesNormalizes(t *testing.T) {
	ctrl := NewController(newFakeService(), nil, nil)
	e := NewEditor("s", nil)

	require.NoError(t, ctrl.LoadCities(context.Background(), e, "tok"))
	require.Equal(t, []string{"Mumbai", "Pune"}, e.View().Cities)
}

func TestControllerSelectCityReconciles(t *testing.T) {
	svc := newFakeService()
	svc.props["Mumbai"] = catalogue("mum", 15)
	svc.saved["Mumbai"] = Customization{
		City:     "Mumbai",
		Featured: []string{"mum-03", "mum-16", "mum-01", "mum-07", "mum-17", "mum-02", "mum-09", "mum-11", "mum-18", "mum-05", "mum-14", "mum-06"},
		Recent:   []string{"mum-15"},
	}
	svc.heroes["Mumbai"] = HeroBanner{Image: "https://img/hero.jpg", Title: "Sea view"}

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Mumbai"))

	require.Len(t, e.Section(SectionFeatured), 9)
	require.Equal(t, []string{"mum-15"}, e.Section(SectionRecent))
	require.Empty(t, e.Section(SectionRecommended))
	require.Equal(t, "Sea view", e.Hero().Title)
	require.False(t, e.Interacted())
}

func TestControllerMissingCustomizationReconcilesEmpty(t *testing.T) {
	svc := newFakeService()
	svc.props["Pune"] = catalogue("p", 4)

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Pune"))

	view := e.View()
	require.True(t, view.PropertiesLoaded)
	require.Empty(t, view.Notices)
	require.Nil(t, view.Hero)
	for _, s := range view.Sections {
		require.Empty(t, s.Items)
	}
}

func TestControllerDelayedCustomizationAfterEdit(t *testing.T) {
	svc := newFakeService()
	svc.props["Mumbai"] = catalogue("mum", 15)
	svc.saved["Mumbai"] = Customization{City: "Mumbai", Featured: []string{"mum-01", "mum-02", "mum-03"}}
	svc.started = make(chan struct{})
	svc.release = make(chan struct{})

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)

	done := make(chan error, 1)
	go func() {
		done <- ctrl.SelectCity(context.Background(), e, "tok", "Mumbai")
	}()

	<-svc.started
	_, err := e.AddProperties(SectionFeatured, []string{"mum-09"})
	require.NoError(t, err)
	close(svc.release)
	require.NoError(t, <-done)

	require.Equal(t, []string{"mum-09"}, e.Section(SectionFeatured))
}

func TestControllerReadFailureKeepsStateAndRetries(t *testing.T) {
	svc := newFakeService()
	svc.props["Pune"] = catalogue("p", 5)
	svc.saved["Pune"] = Customization{City: "Pune", Featured: []string{"p-01"}}
	svc.custErr = &BackendError{Status: 500, Message: "boom"}

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)
	err := ctrl.SelectCity(context.Background(), e, "tok", "Pune")
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)

	view := e.View()
	require.NotEmpty(t, view.ReadError)
	require.Len(t, view.Notices, 1)
	require.Equal(t, ToneError, view.Notices[0].Tone)
	require.Empty(t, e.Section(SectionFeatured))

	svc.mu.Lock()
	svc.custErr = nil
	svc.mu.Unlock()
	require.NoError(t, ctrl.Reload(context.Background(), e, "tok"))
	require.Equal(t, []string{"p-01"}, e.Section(SectionFeatured))
	require.Empty(t, e.View().ReadError)
}

func TestControllerSaveConfiguration(t *testing.T) {
	svc := newFakeService()
	svc.props["Pune"] = catalogue("p", 5)

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Pune"))
	_, err := e.AddProperties(SectionRecommended, []string{"p-02", "p-04"})
	require.NoError(t, err)

	require.NoError(t, ctrl.SaveConfiguration(context.Background(), e, "tok"))
	require.Len(t, svc.savedPayloads, 1)
	payload := svc.savedPayloads[0]
	require.Equal(t, "Pune", payload.City)
	require.Equal(t, []string{"p-02", "p-04"}, payload.Recommended)
	require.Empty(t, payload.Featured)

	view := e.View()
	require.Equal(t, ToneSuccess, view.Notices[0].Tone)
	require.Equal(t, []string{"p-02", "p-04"}, e.Section(SectionRecommended))
}

func TestControllerSaveConfigurationFailureKeepsEdits(t *testing.T) {
	svc := newFakeService()
	svc.props["Pune"] = catalogue("p", 5)
	svc.saveErr = errors.New("network down")

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Pune"))
	_, err := e.AddProperties(SectionFeatured, []string{"p-01"})
	require.NoError(t, err)

	require.Error(t, ctrl.SaveConfiguration(context.Background(), e, "tok"))
	require.Equal(t, []string{"p-01"}, e.Section(SectionFeatured))
	view := e.View()
	require.Equal(t, ToneError, view.Notices[0].Tone)
}

func TestControllerSaveAcrossCityRoundTrip(t *testing.T) {
	svc := newFakeService()
	svc.props["Mumbai"] = catalogue("mum", 5)
	svc.props["Pune"] = catalogue("pun", 3)
	svc.saved["Mumbai"] = Customization{City: "Mumbai", Featured: []string{"mum-01"}}

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Mumbai"))
	_, err := e.AddProperties(SectionFeatured, []string{"mum-02"})
	require.NoError(t, err)

	svc.saveStarted = make(chan struct{})
	svc.saveRelease = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- ctrl.SaveConfiguration(context.Background(), e, "tok")
	}()
	<-svc.saveStarted

	_, err = e.SelectCity("Pune")
	require.NoError(t, err)
	ticket, err := e.SelectCity("Mumbai")
	require.NoError(t, err)
	require.True(t, e.ApplyProperties(ticket, svc.props["Mumbai"]))

	close(svc.saveRelease)
	require.NoError(t, <-done)

	svc.mu.Lock()
	saved := svc.saved["Mumbai"]
	svc.mu.Unlock()
	require.Equal(t, []string{"mum-01", "mum-02"}, saved.Featured)

	require.Equal(t, ReconcileApplied, e.Reconcile(ticket, saved, nil))
	require.Equal(t, []string{"mum-01", "mum-02"}, e.Section(SectionFeatured))
	require.False(t, e.Interacted())
}

func TestControllerSaveRefusedAfterFailedRead(t *testing.T) {
	svc := newFakeService()
	svc.props["Mumbai"] = catalogue("mum", 5)
	svc.saved["Mumbai"] = Customization{City: "Mumbai", Featured: []string{"mum-01", "mum-02", "mum-03"}}
	svc.custErr = &BackendError{Status: 503, Message: "unavailable"}

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)
	require.Error(t, ctrl.SelectCity(context.Background(), e, "tok", "Mumbai"))

	err := ctrl.SaveConfiguration(context.Background(), e, "tok")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, svc.savedPayloads)
	require.Equal(t, []string{"mum-01", "mum-02", "mum-03"}, svc.saved["Mumbai"].Featured)
}

func TestControllerSaveHeroUploadsStagedImage(t *testing.T) {
	svc := newFakeService()
	svc.props["Pune"] = catalogue("p", 1)
	store := uploads.NewMemoryUploader("https://cdn.example.com", 0)

	ctrl := NewController(svc, store, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Pune"))
	require.NoError(t, e.OpenHeroForm())
	token, err := e.StageHeroImage(StagedImage{Name: "hero.png", ContentType: "image/png", Data: pngBytes})
	require.NoError(t, err)

	require.NoError(t, ctrl.SaveHero(context.Background(), e, "tok", "  Monsoon <i>offers</i> "))

	require.Equal(t, 1, store.Len())
	require.Len(t, svc.heroInputs, 1)
	require.Equal(t, "Monsoon offers", svc.heroInputs[0].Title)
	require.Contains(t, svc.heroInputs[0].Image, "https://cdn.example.com/banners/hero/pune/")

	hero := e.Hero()
	require.NotNil(t, hero)
	require.Equal(t, svc.heroInputs[0].Image, hero.Image)
	require.NotNil(t, hero.UpdatedAt)
	require.True(t, e.Interacted())
	require.Nil(t, e.View().HeroForm)
	_, ok := e.Preview(token)
	require.False(t, ok)
}

func TestControllerSaveHeroUploadFailureKeepsPriorHero(t *testing.T) {
	svc := newFakeService()
	svc.props["Pune"] = catalogue("p", 1)
	svc.heroes["Pune"] = HeroBanner{Image: "https://img/old.jpg", Title: "Old"}

	ctrl := NewController(svc, failingUploader{err: errors.New("bucket unavailable")}, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Pune"))
	require.NoError(t, e.OpenHeroForm())
	_, err := e.StageHeroImage(StagedImage{Name: "hero.png", ContentType: "image/png", Data: pngBytes})
	require.NoError(t, err)

	err = ctrl.SaveHero(context.Background(), e, "tok", "New")
	require.ErrorIs(t, err, ErrUploadFailed)
	require.Empty(t, svc.heroInputs)
	require.Equal(t, "Old", e.Hero().Title)

	view := e.View()
	require.NotNil(t, view.HeroForm)
	require.False(t, view.HeroForm.Saving)
	require.NotEmpty(t, view.HeroForm.PreviewToken)
	require.NotEmpty(t, view.HeroForm.Error)
}

func TestControllerSaveHeroValidatesBeforeNetwork(t *testing.T) {
	svc := newFakeService()
	svc.props["Pune"] = catalogue("p", 1)

	ctrl := NewController(svc, failingUploader{err: errors.New("should not be called")}, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Pune"))
	require.NoError(t, e.OpenHeroForm())

	err := ctrl.SaveHero(context.Background(), e, "tok", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, svc.heroInputs)
}

func TestControllerDeleteHeroTreatsNotFoundAsSuccess(t *testing.T) {
	svc := newFakeService()
	svc.props["Pune"] = catalogue("p", 1)

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Pune"))

	require.NoError(t, ctrl.DeleteHero(context.Background(), e, "tok"))
	require.Equal(t, 1, svc.deletes)
	require.Nil(t, e.Hero())
	for _, n := range e.View().Notices {
		require.NotEqual(t, ToneError, n.Tone)
	}
}

func TestControllerDeleteHeroFailureKeepsHero(t *testing.T) {
	svc := newFakeService()
	svc.props["Pune"] = catalogue("p", 1)
	svc.heroes["Pune"] = HeroBanner{Image: "https://img/a.jpg", Title: "A"}

	ctrl := NewController(svc, nil, nil)
	e := NewEditor("s", nil)
	require.NoError(t, ctrl.SelectCity(context.Background(), e, "tok", "Pune"))
	svc.delErr = &BackendError{Status: 503, Message: "unavailable"}

	require.Error(t, ctrl.DeleteHero(context.Background(), e, "tok"))
	require.Equal(t, "A", e.Hero().Title)
}

func TestControllerRequiresService(t *testing.T) {
	ctrl := NewController(nil, nil, nil)
	require.ErrorIs(t, ctrl.SelectCity(context.Background(), NewEditor("s", nil), "", "Pune"), ErrNotConfigured)
}
