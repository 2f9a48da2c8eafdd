package uploads

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Purpose selects the object layout of an upload.
type Purpose string

const (
	PurposeHeroBanner Purpose = "hero-banner"
)

// PathParams carry the identifiers used to compose an object key.
type PathParams struct {
	Scope    string
	ObjectID string
	Ext      string
}

// PathBuilder composes the object path for a purpose.
type PathBuilder func(PathParams) (string, error)

var (
	pathBuilders = map[Purpose]PathBuilder{
		PurposeHeroBanner: buildHeroBannerPath,
	}
	pathBuildersMu sync.RWMutex
)

// RegisterPathBuilder overrides or registers a builder; a nil builder removes it.
func RegisterPathBuilder(purpose Purpose, builder PathBuilder) {
	pathBuildersMu.Lock()
	defer pathBuildersMu.Unlock()
	if builder == nil {
		delete(pathBuilders, purpose)
		return
	}
	pathBuilders[purpose] = builder
}

// BuildObjectPath resolves the object path for an image. A fresh ULID is
// used when params.ObjectID is empty.
func BuildObjectPath(purpose Purpose, params PathParams) (string, error) {
	pathBuildersMu.RLock()
	builder, ok := pathBuilders[purpose]
	pathBuildersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("uploads: unsupported purpose %q", purpose)
	}
	if strings.TrimSpace(params.ObjectID) == "" {
		params.ObjectID = strings.ToLower(ulid.Make().String())
	}
	return builder(params)
}

func buildHeroBannerPath(params PathParams) (string, error) {
	scope, err := validateSegment("city", Slug(params.Scope))
	if err != nil {
		return "", err
	}
	objectID, err := validateSegment("objectID", params.ObjectID)
	if err != nil {
		return "", err
	}
	ext, err := validateSegment("ext", strings.TrimPrefix(params.Ext, "."))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("banners/hero/%s/%s.%s", scope, objectID, ext), nil
}

var fold = cases.Fold()

// Slug lower-cases a display name and joins its words with dashes.
func Slug(value string) string {
	value = fold.String(norm.NFC.String(strings.TrimSpace(value)))
	var b strings.Builder
	dash := false
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("uploads: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("uploads: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("uploads: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
