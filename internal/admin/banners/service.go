package banners

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the backend has no record for the requested city.
	ErrNotFound = errors.New("banners: not found")
	// ErrNotConfigured indicates that the banners service dependency has not been wired.
	ErrNotConfigured = errors.New("banners service not configured")
	// ErrNoCity is returned by operations that require an active city.
	ErrNoCity = errors.New("banners: no city selected")
	// ErrUploadFailed marks a hero save that failed while uploading the image.
	ErrUploadFailed = errors.New("banners: image upload failed")
)

// Service exposes the backend operations the banner editor relies on.
type Service interface {
	// ListCities returns the cities that can be customised.
	ListCities(ctx context.Context, token string) ([]string, error)
	// ListProperties returns the property catalogue for a city.
	ListProperties(ctx context.Context, token, city string) ([]Property, error)
	// GetCustomization returns the saved rails for a city or ErrNotFound.
	GetCustomization(ctx context.Context, token, city string) (Customization, error)
	// SaveCustomization replaces the saved rails for the city in the payload.
	SaveCustomization(ctx context.Context, token string, customization Customization) error
	// GetHeroBanner returns the hero banner for a city or ErrNotFound.
	GetHeroBanner(ctx context.Context, token, city string) (*HeroBanner, error)
	// UploadHeroBanner creates or replaces the hero banner for a city.
	UploadHeroBanner(ctx context.Context, token, city string, input HeroBannerInput) error
	// DeleteHeroBanner removes the hero banner for a city; ErrNotFound when absent.
	DeleteHeroBanner(ctx context.Context, token, city string) error
}

// ValidationError reports a form field that blocked an action before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// BackendError describes a non-success response produced by the backend API.
type BackendError struct {
	Status  int
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("banners: backend error (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("banners: backend error (%d): %s", e.Status, e.Message)
}
