package banners

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
)

// MaxHeroTitleLength bounds the hero banner headline.
const MaxHeroTitleLength = 120

var titlePolicy = bluemonday.StrictPolicy()

// StagedImage is a locally chosen hero image that has not been uploaded yet.
type StagedImage struct {
	Token       string
	Name        string
	ContentType string
	Data        []byte
}

// heroForm is the open hero editor. A nil form means the hero is in viewing mode.
type heroForm struct {
	title    string
	imageURL string
	staged   *StagedImage
	err      string
	saving   bool
}

// stage replaces the pending file, releasing the previous preview.
func (f *heroForm) stage(img StagedImage) string {
	f.release()
	img.Token = ulid.Make().String()
	img.Data = append([]byte(nil), img.Data...)
	f.staged = &img
	f.err = ""
	return img.Token
}

// release drops the staged file so its preview token stops resolving.
func (f *heroForm) release() {
	if f == nil || f.staged == nil {
		return
	}
	f.staged.Data = nil
	f.staged = nil
}

// validateHero checks the form before any upload or backend call.
func validateHero(title, imageURL string, staged *StagedImage) (string, error) {
	cleaned := CleanTitle(title)
	if cleaned == "" {
		return "", &ValidationError{Field: "title", Message: "Title is required."}
	}
	if len([]rune(cleaned)) > MaxHeroTitleLength {
		return "", &ValidationError{Field: "title", Message: "Title is too long."}
	}
	if staged == nil && strings.TrimSpace(imageURL) == "" {
		return "", &ValidationError{Field: "image", Message: "Choose an image for the banner."}
	}
	return cleaned, nil
}

// CleanTitle strips markup from a hero title and collapses whitespace.
func CleanTitle(title string) string {
	stripped := html.UnescapeString(titlePolicy.Sanitize(title))
	return strings.Join(strings.Fields(stripped), " ")
}
