package banners

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"finitefield.org/estate-admin/internal/admin/uploads"
)

// FirestoreConfig tunes the Firestore-backed banner store.
type FirestoreConfig struct {
	CustomizationCollection string
	HeroCollection          string
	CityCollection          string
	PropertyCollection      string
	PropertyLimit           int
	Now                     func() time.Time
	Logger                  *zap.Logger
	// Catalogue serves cities and properties when set; otherwise they are
	// read from CityCollection and PropertyCollection.
	Catalogue Service
}

// FirestoreService stores customizations and hero banners as Firestore documents.
type FirestoreService struct {
	client         *firestore.Client
	customizations string
	heroes         string
	cities         string
	properties     string
	propertyLimit  int
	now            func() time.Time
	logger         *zap.Logger
	catalogue      Service
}

type customizationDocument struct {
	City        string    `firestore:"city"`
	Featured    []string  `firestore:"featuredProperties"`
	Recommended []string  `firestore:"recommendedProperties"`
	Recent      []string  `firestore:"recentProperties"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

type heroDocument struct {
	City      string    `firestore:"city"`
	Image     string    `firestore:"image"`
	Title     string    `firestore:"title"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewFirestoreService constructs a Firestore-backed Service.
func NewFirestoreService(client *firestore.Client, cfg FirestoreConfig) *FirestoreService {
	if client == nil {
		panic("banners: firestore client is required")
	}
	if cfg.CustomizationCollection == "" {
		cfg.CustomizationCollection = "banner_customizations"
	}
	if cfg.HeroCollection == "" {
		cfg.HeroCollection = "hero_banners"
	}
	if cfg.CityCollection == "" {
		cfg.CityCollection = "cities"
	}
	if cfg.PropertyCollection == "" {
		cfg.PropertyCollection = "properties"
	}
	if cfg.PropertyLimit <= 0 {
		cfg.PropertyLimit = 500
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &FirestoreService{
		client:         client,
		customizations: cfg.CustomizationCollection,
		heroes:         cfg.HeroCollection,
		cities:         cfg.CityCollection,
		properties:     cfg.PropertyCollection,
		propertyLimit:  cfg.PropertyLimit,
		now:            cfg.Now,
		logger:         cfg.Logger,
		catalogue:      cfg.Catalogue,
	}
}

// ListCities implements Service.
func (s *FirestoreService) ListCities(ctx context.Context, token string) ([]string, error) {
	if s.catalogue != nil {
		return s.catalogue.ListCities(ctx, token)
	}
	iter := s.client.Collection(s.cities).Documents(ctx)
	defer iter.Stop()

	var cities []string
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("banners: list cities: %w", err)
		}
		name, _ := snap.Data()["name"].(string)
		if name = NormalizeCity(name); name == "" {
			name = snap.Ref.ID
		}
		cities = append(cities, name)
	}
	sort.Strings(cities)
	return cities, nil
}

// ListProperties implements Service.
func (s *FirestoreService) ListProperties(ctx context.Context, token, city string) ([]Property, error) {
	if s.catalogue != nil {
		return s.catalogue.ListProperties(ctx, token, city)
	}
	iter := s.client.Collection(s.properties).
		Where("city", "==", city).
		Limit(s.propertyLimit).
		Documents(ctx)
	defer iter.Stop()

	var props []Property
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("banners: list properties: %w", err)
		}
		var prop Property
		if err := snap.DataTo(&prop); err != nil {
			s.logger.Warn("skip property document", zap.String("path", snap.Ref.Path), zap.Error(err))
			continue
		}
		if prop.ID == "" {
			prop.ID = snap.Ref.ID
		}
		props = append(props, prop)
	}
	return props, nil
}

// GetCustomization implements Service.
func (s *FirestoreService) GetCustomization(ctx context.Context, _ string, city string) (Customization, error) {
	ref, err := s.doc(s.customizations, city)
	if err != nil {
		return Customization{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Customization{}, mapFirestoreError("get customization", err)
	}
	var doc customizationDocument
	if err := snap.DataTo(&doc); err != nil {
		return Customization{}, fmt.Errorf("banners: decode customization %s: %w", snap.Ref.ID, err)
	}
	return Customization{
		City:        city,
		Featured:    doc.Featured,
		Recommended: doc.Recommended,
		Recent:      doc.Recent,
	}, nil
}

// SaveCustomization replaces the whole document so the last save wins.
func (s *FirestoreService) SaveCustomization(ctx context.Context, _ string, customization Customization) error {
	city := NormalizeCity(customization.City)
	if city == "" {
		return ErrNoCity
	}
	doc := customizationDocument{
		City:        city,
		Featured:    nonNil(customization.Featured),
		Recommended: nonNil(customization.Recommended),
		Recent:      nonNil(customization.Recent),
		UpdatedAt:   s.now().UTC(),
	}
	ref, err := s.doc(s.customizations, city)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, doc); err != nil {
		return mapFirestoreError("save customization", err)
	}
	return nil
}

// GetHeroBanner implements Service.
func (s *FirestoreService) GetHeroBanner(ctx context.Context, _ string, city string) (*HeroBanner, error) {
	ref, err := s.doc(s.heroes, city)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, mapFirestoreError("get hero banner", err)
	}
	var doc heroDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("banners: decode hero banner %s: %w", snap.Ref.ID, err)
	}
	banner := &HeroBanner{Image: doc.Image, Title: doc.Title}
	if !doc.UpdatedAt.IsZero() {
		updated := doc.UpdatedAt
		banner.UpdatedAt = &updated
	}
	return banner, nil
}

// UploadHeroBanner implements Service.
func (s *FirestoreService) UploadHeroBanner(ctx context.Context, _ string, city string, input HeroBannerInput) error {
	city = NormalizeCity(city)
	if city == "" {
		return ErrNoCity
	}
	doc := heroDocument{
		City:      city,
		Image:     input.Image,
		Title:     input.Title,
		UpdatedAt: s.now().UTC(),
	}
	ref, err := s.doc(s.heroes, city)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, doc); err != nil {
		return mapFirestoreError("save hero banner", err)
	}
	return nil
}

// DeleteHeroBanner implements Service.
func (s *FirestoreService) DeleteHeroBanner(ctx context.Context, _ string, city string) error {
	ref, err := s.doc(s.heroes, city)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return mapFirestoreError("delete hero banner", err)
	}
	return nil
}

func mapFirestoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument, codes.FailedPrecondition:
		return &BackendError{Status: 400, Code: status.Code(err).String(), Message: status.Convert(err).Message()}
	case codes.PermissionDenied, codes.Unauthenticated:
		return &BackendError{Status: 403, Code: status.Code(err).String(), Message: status.Convert(err).Message()}
	case codes.Unavailable, codes.DeadlineExceeded:
		return &BackendError{Status: 503, Code: status.Code(err).String(), Message: status.Convert(err).Message()}
	default:
		return fmt.Errorf("banners: %s: %w", op, err)
	}
}

// doc resolves the document of a city. Ids are slugs because city names may
// contain characters Firestore rejects in document ids.
func (s *FirestoreService) doc(collection, city string) (*firestore.DocumentRef, error) {
	id := docID(city)
	if id == "" {
		return nil, ErrNoCity
	}
	return s.client.Collection(collection).Doc(id), nil
}

func docID(city string) string {
	return uploads.Slug(city)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
