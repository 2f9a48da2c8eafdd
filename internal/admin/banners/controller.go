package banners

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/estate-admin/internal/admin/uploads"
)

// Controller drives editor sessions against the backend service.
type Controller struct {
	service  Service
	uploader uploads.Uploader
	logger   *zap.Logger
	now      func() time.Time
}

// NewController wires a controller. A nil logger is replaced with a no-op logger.
func NewController(service Service, uploader uploads.Uploader, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		service:  service,
		uploader: uploader,
		logger:   logger.Named("banners"),
		now:      time.Now,
	}
}

// LoadCities fills the city selector once per session.
func (c *Controller) LoadCities(ctx context.Context, e *Editor, token string) error {
	if c.service == nil {
		return ErrNotConfigured
	}
	if e.HasCities() {
		return nil
	}
	cities, err := c.service.ListCities(ctx, token)
	if err != nil {
		c.logger.Warn("list cities failed", zap.Error(err))
		e.AddNotice(ToneError, "Could not load the city list.")
		return err
	}
	normalized := make([]string, 0, len(cities))
	for _, city := range cities {
		if city = NormalizeCity(city); city != "" {
			normalized = append(normalized, city)
		}
	}
	e.SetCities(normalized)
	return nil
}

// SelectCity switches the editor to a city and reloads its data.
func (c *Controller) SelectCity(ctx context.Context, e *Editor, token, city string) error {
	if c.service == nil {
		return ErrNotConfigured
	}
	ticket, err := e.SelectCity(city)
	if err != nil {
		return err
	}
	return c.load(ctx, e, token, ticket)
}

// Reload retries the reads for the active city, keeping local edits.
func (c *Controller) Reload(ctx context.Context, e *Editor, token string) error {
	if c.service == nil {
		return ErrNotConfigured
	}
	ticket, err := e.Reload()
	if err != nil {
		return err
	}
	return c.load(ctx, e, token, ticket)
}

func (c *Controller) load(ctx context.Context, e *Editor, token string, ticket LoadTicket) error {
	logger := c.logger.With(zap.String("city", ticket.City), zap.Uint64("generation", ticket.Generation))

	props, err := c.service.ListProperties(ctx, token, ticket.City)
	if err != nil {
		logger.Warn("list properties failed", zap.Error(err))
		e.FailLoad(ticket, fmt.Sprintf("Could not load properties for %s.", ticket.City))
		return err
	}
	if !e.ApplyProperties(ticket, props) {
		logger.Debug("discarding stale property list")
		return nil
	}
	if !e.NeedsReconciliation(ticket) {
		return nil
	}

	var (
		saved Customization
		hero  *HeroBanner
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cust, err := c.service.GetCustomization(gctx, token, ticket.City)
		switch {
		case errors.Is(err, ErrNotFound):
			saved = Customization{City: ticket.City}
			return nil
		case err != nil:
			return fmt.Errorf("get customization: %w", err)
		}
		saved = cust
		return nil
	})
	g.Go(func() error {
		banner, err := c.service.GetHeroBanner(gctx, token, ticket.City)
		switch {
		case errors.Is(err, ErrNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("get hero banner: %w", err)
		}
		hero = banner
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn("load customization failed", zap.Error(err))
		e.FailLoad(ticket, fmt.Sprintf("Could not load the saved banners for %s.", ticket.City))
		return err
	}

	outcome := e.Reconcile(ticket, saved, hero)
	logger.Debug("reconcile", zap.String("outcome", string(outcome)))
	return nil
}

// SaveConfiguration submits the three rails as a full replace.
func (c *Controller) SaveConfiguration(ctx context.Context, e *Editor, token string) error {
	if c.service == nil {
		return ErrNotConfigured
	}
	ticket, payload, err := e.beginSave()
	if err != nil {
		return err
	}
	err = c.service.SaveCustomization(ctx, token, payload)
	if err != nil {
		c.logger.Warn("save customization failed", zap.String("city", payload.City), zap.Error(err))
	}
	e.finishSave(ticket, err, fmt.Sprintf("Could not save the banner configuration for %s.", payload.City))
	return err
}

// SaveHero validates the open hero form, uploads a staged image if any and
// persists the banner. Validation runs before any network call.
func (c *Controller) SaveHero(ctx context.Context, e *Editor, token, title string) error {
	if c.service == nil {
		return ErrNotConfigured
	}
	save, err := e.beginHeroSave(title)
	if err != nil {
		return err
	}
	logger := c.logger.With(zap.String("city", save.ticket.City))

	image := save.imageURL
	if save.staged != nil {
		if c.uploader == nil {
			e.failHeroSave(save.ticket, "Image uploads are not available.")
			return fmt.Errorf("%w: %w", ErrUploadFailed, ErrNotConfigured)
		}
		url, err := c.uploader.Upload(ctx, uploads.Image{
			Name:        save.staged.Name,
			ContentType: save.staged.ContentType,
			Data:        save.staged.Data,
			Purpose:     uploads.PurposeHeroBanner,
			Scope:       save.ticket.City,
		})
		if err != nil {
			logger.Warn("hero image upload failed", zap.Error(err))
			e.failHeroSave(save.ticket, UploadErrorMessage(err))
			return fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		image = url
	}

	input := HeroBannerInput{Image: image, Title: save.title}
	if err := c.service.UploadHeroBanner(ctx, token, save.ticket.City, input); err != nil {
		logger.Warn("save hero banner failed", zap.Error(err))
		e.failHeroSave(save.ticket, "Could not save the hero banner.")
		return err
	}
	now := c.now()
	e.commitHero(save.ticket, HeroBanner{Image: image, Title: save.title, UpdatedAt: &now})
	return nil
}

// DeleteHero removes the city's hero banner. A missing banner counts as deleted.
func (c *Controller) DeleteHero(ctx context.Context, e *Editor, token string) error {
	if c.service == nil {
		return ErrNotConfigured
	}
	ticket, err := e.heroTicket()
	if err != nil {
		return err
	}
	err = c.service.DeleteHeroBanner(ctx, token, ticket.City)
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Warn("delete hero banner failed", zap.String("city", ticket.City), zap.Error(err))
		e.AddNotice(ToneError, "Could not remove the hero banner.")
		return err
	}
	e.clearHero(ticket)
	return nil
}

// UploadErrorMessage maps an upload failure to the message shown in the hero form.
func UploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		return "The image is too large."
	case errors.Is(err, uploads.ErrContentType):
		return "Only JPEG, PNG and WebP images are supported."
	case errors.Is(err, uploads.ErrEmpty):
		return "The selected file is empty."
	default:
		return "Image upload failed. The current banner was kept."
	}
}
