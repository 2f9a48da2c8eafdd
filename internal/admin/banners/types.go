package banners

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// SectionCapacity bounds every curated rail.
const SectionCapacity = 10

// SectionKind identifies one of the curated property rails shown on a city page.
type SectionKind string

const (
	SectionFeatured    SectionKind = "featured"
	SectionRecommended SectionKind = "recommended"
	SectionRecent      SectionKind = "recent"
)

// SectionKinds lists the rails in display order.
var SectionKinds = []SectionKind{SectionFeatured, SectionRecommended, SectionRecent}

// ParseSectionKind converts a raw path/form value into a SectionKind.
func ParseSectionKind(raw string) (SectionKind, error) {
	kind := SectionKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case SectionFeatured, SectionRecommended, SectionRecent:
		return kind, nil
	default:
		return "", fmt.Errorf("banners: unknown section %q", raw)
	}
}

// Label returns the human readable rail name.
func (k SectionKind) Label() string {
	switch k {
	case SectionFeatured:
		return "Featured"
	case SectionRecommended:
		return "Recommended"
	case SectionRecent:
		return "Recent"
	default:
		return string(k)
	}
}

// Property is the read-only display projection of a listing from the catalogue.
type Property struct {
	ID       string `json:"id" yaml:"id" firestore:"id"`
	Name     string `json:"name" yaml:"name" firestore:"name"`
	Price    int64  `json:"price" yaml:"price" firestore:"price"`
	Locality string `json:"locality" yaml:"locality" firestore:"locality"`
	City     string `json:"city" yaml:"city" firestore:"city"`
	Image    string `json:"image" yaml:"image" firestore:"image"`
	Type     string `json:"type" yaml:"type" firestore:"type"`
}

// UnmarshalJSON accepts both `id` and `_id` keys from the catalogue API.
func (p *Property) UnmarshalJSON(data []byte) error {
	type alias Property
	var raw struct {
		alias
		MongoID string   `json:"_id"`
		Images  []string `json:"images"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Property(raw.alias)
	if strings.TrimSpace(p.ID) == "" {
		p.ID = raw.MongoID
	}
	p.ID = strings.TrimSpace(p.ID)
	if p.Image == "" && len(raw.Images) > 0 {
		p.Image = raw.Images[0]
	}
	return nil
}

// HeroBanner is the single promotional image and title shown for a city.
type HeroBanner struct {
	Image     string     `json:"image" yaml:"image" firestore:"image"`
	Title     string     `json:"title" yaml:"title" firestore:"title"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// HeroBannerInput is the payload persisted when saving a hero banner.
type HeroBannerInput struct {
	Image string `json:"image"`
	Title string `json:"title"`
}

// Customization is the persisted rail configuration for a city.
type Customization struct {
	City        string   `json:"city"`
	Featured    []string `json:"featuredProperties"`
	Recommended []string `json:"recommendedProperties"`
	Recent      []string `json:"recentProperties"`
}

// IDs returns the saved identifiers for the given rail.
func (c Customization) IDs(kind SectionKind) []string {
	switch kind {
	case SectionFeatured:
		return c.Featured
	case SectionRecommended:
		return c.Recommended
	case SectionRecent:
		return c.Recent
	default:
		return nil
	}
}

// NormalizeCity trims and NFC-normalises a city name so that visually
// identical names compare equal.
func NormalizeCity(city string) string {
	return norm.NFC.String(strings.TrimSpace(city))
}
