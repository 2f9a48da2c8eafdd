package banners

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtureFS embed.FS

// Fixture is the seed data of a StaticService.
type Fixture struct {
	Cities         []FixtureCity `yaml:"cities"`
	Customizations []struct {
		City        string   `yaml:"city"`
		Featured    []string `yaml:"featured"`
		Recommended []string `yaml:"recommended"`
		Recent      []string `yaml:"recent"`
	} `yaml:"customizations"`
	Heroes []struct {
		City  string `yaml:"city"`
		Image string `yaml:"image"`
		Title string `yaml:"title"`
	} `yaml:"heroes"`
}

// FixtureCity lists the catalogue of one city.
type FixtureCity struct {
	Name       string     `yaml:"name"`
	Properties []Property `yaml:"properties"`
}

// StaticService is an in-memory Service used for local development and tests.
type StaticService struct {
	mu             sync.RWMutex
	cities         []string
	properties     map[string][]Property
	customizations map[string]Customization
	heroes         map[string]HeroBanner
	now            func() time.Time

	// Err, when set, is returned by every call.
	Err error
}

// NewStaticService seeds the service from the embedded fixture.
func NewStaticService() *StaticService {
	svc, err := LoadStaticService("fixtures/seed.yaml")
	if err != nil {
		panic(err)
	}
	return svc
}

// LoadStaticService seeds the service from an embedded fixture file.
func LoadStaticService(name string) (*StaticService, error) {
	raw, err := fixtureFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("banners: read fixture %s: %w", name, err)
	}
	var fixture Fixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return nil, fmt.Errorf("banners: parse fixture %s: %w", name, err)
	}
	return NewStaticServiceFrom(fixture), nil
}

// NewStaticServiceFrom builds a service from an explicit fixture.
func NewStaticServiceFrom(fixture Fixture) *StaticService {
	s := &StaticService{
		properties:     make(map[string][]Property),
		customizations: make(map[string]Customization),
		heroes:         make(map[string]HeroBanner),
		now:            time.Now,
	}
	for _, city := range fixture.Cities {
		name := NormalizeCity(city.Name)
		if name == "" {
			continue
		}
		s.cities = append(s.cities, name)
		props := make([]Property, 0, len(city.Properties))
		for _, prop := range city.Properties {
			if prop.City == "" {
				prop.City = name
			}
			props = append(props, prop)
		}
		s.properties[name] = props
	}
	sort.Strings(s.cities)
	for _, c := range fixture.Customizations {
		name := NormalizeCity(c.City)
		s.customizations[name] = Customization{City: name, Featured: c.Featured, Recommended: c.Recommended, Recent: c.Recent}
	}
	for _, h := range fixture.Heroes {
		name := NormalizeCity(h.City)
		s.heroes[name] = HeroBanner{Image: h.Image, Title: h.Title}
	}
	return s
}

// ListCities implements Service.
func (s *StaticService) ListCities(ctx context.Context, token string) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.cities...), nil
}

// ListProperties implements Service.
func (s *StaticService) ListProperties(ctx context.Context, token, city string) ([]Property, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Property(nil), s.properties[NormalizeCity(city)]...), nil
}

// GetCustomization implements Service.
func (s *StaticService) GetCustomization(ctx context.Context, token, city string) (Customization, error) {
	if s.Err != nil {
		return Customization{}, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cust, ok := s.customizations[NormalizeCity(city)]
	if !ok {
		return Customization{}, ErrNotFound
	}
	return cloneCustomization(cust), nil
}

// SaveCustomization implements Service.
func (s *StaticService) SaveCustomization(ctx context.Context, token string, customization Customization) error {
	if s.Err != nil {
		return s.Err
	}
	city := NormalizeCity(customization.City)
	if city == "" {
		return ErrNoCity
	}
	customization.City = city
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customizations[city] = cloneCustomization(customization)
	return nil
}

// GetHeroBanner implements Service.
func (s *StaticService) GetHeroBanner(ctx context.Context, token, city string) (*HeroBanner, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	hero, ok := s.heroes[NormalizeCity(city)]
	if !ok {
		return nil, ErrNotFound
	}
	return &hero, nil
}

// UploadHeroBanner implements Service.
func (s *StaticService) UploadHeroBanner(ctx context.Context, token, city string, input HeroBannerInput) error {
	if s.Err != nil {
		return s.Err
	}
	city = NormalizeCity(city)
	if city == "" {
		return ErrNoCity
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heroes[city] = HeroBanner{Image: input.Image, Title: input.Title, UpdatedAt: &now}
	return nil
}

// DeleteHeroBanner implements Service.
func (s *StaticService) DeleteHeroBanner(ctx context.Context, token, city string) error {
	if s.Err != nil {
		return s.Err
	}
	city = NormalizeCity(city)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.heroes[city]; !ok {
		return ErrNotFound
	}
	delete(s.heroes, city)
	return nil
}

func cloneCustomization(c Customization) Customization {
	return Customization{
		City:        c.City,
		Featured:    append([]string(nil), c.Featured...),
		Recommended: append([]string(nil), c.Recommended...),
		Recent:      append([]string(nil), c.Recent...),
	}
}
