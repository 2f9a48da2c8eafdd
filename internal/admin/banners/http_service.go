package banners

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("finitefield.org/estate-admin/internal/admin/banners")

// HTTPClient matches the subset of http.Client used by HTTPService.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPService implements Service against the listing backend REST API.
type HTTPService struct {
	base   *url.URL
	client HTTPClient
}

// NewHTTPService constructs a Service that talks to the backend API.
func NewHTTPService(baseURL string, client HTTPClient) (*HTTPService, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("banners: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("banners: parse base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPService{base: parsed, client: client}, nil
}

// ListCities implements Service.
func (s *HTTPService) ListCities(ctx context.Context, token string) ([]string, error) {
	var payload struct {
		Cities []string `json:"cities"`
	}
	if err := s.getJSON(ctx, "list_cities", "/cities", nil, token, &payload); err != nil {
		return nil, err
	}
	return payload.Cities, nil
}

// ListProperties implements Service.
func (s *HTTPService) ListProperties(ctx context.Context, token, city string) ([]Property, error) {
	var payload struct {
		Properties []Property `json:"properties"`
	}
	query := url.Values{"city": []string{city}}
	if err := s.getJSON(ctx, "list_properties", "/properties", query, token, &payload); err != nil {
		return nil, err
	}
	return payload.Properties, nil
}

// GetCustomization implements Service.
func (s *HTTPService) GetCustomization(ctx context.Context, token, city string) (Customization, error) {
	var payload struct {
		Customization *Customization `json:"customization"`
	}
	endpoint := path.Join("/banners/customization", url.PathEscape(city))
	if err := s.getJSON(ctx, "get_customization", endpoint, nil, token, &payload); err != nil {
		return Customization{}, err
	}
	if payload.Customization == nil {
		return Customization{}, ErrNotFound
	}
	cust := *payload.Customization
	if cust.City == "" {
		cust.City = city
	}
	return cust, nil
}

// SaveCustomization implements Service.
func (s *HTTPService) SaveCustomization(ctx context.Context, token string, customization Customization) error {
	if customization.Featured == nil {
		customization.Featured = []string{}
	}
	if customization.Recommended == nil {
		customization.Recommended = []string{}
	}
	if customization.Recent == nil {
		customization.Recent = []string{}
	}
	return s.send(ctx, "save_customization", http.MethodPost, "/banners/customization", customization, token)
}

// GetHeroBanner implements Service.
func (s *HTTPService) GetHeroBanner(ctx context.Context, token, city string) (*HeroBanner, error) {
	var payload struct {
		Banner *HeroBanner `json:"banner"`
	}
	endpoint := path.Join("/banners/hero", url.PathEscape(city))
	if err := s.getJSON(ctx, "get_hero_banner", endpoint, nil, token, &payload); err != nil {
		return nil, err
	}
	if payload.Banner == nil || (payload.Banner.Image == "" && payload.Banner.Title == "") {
		return nil, ErrNotFound
	}
	return payload.Banner, nil
}

// UploadHeroBanner implements Service.
func (s *HTTPService) UploadHeroBanner(ctx context.Context, token, city string, input HeroBannerInput) error {
	endpoint := path.Join("/banners/hero", url.PathEscape(city))
	return s.send(ctx, "upload_hero_banner", http.MethodPost, endpoint, input, token)
}

// DeleteHeroBanner implements Service.
func (s *HTTPService) DeleteHeroBanner(ctx context.Context, token, city string) error {
	endpoint := path.Join("/banners/hero", url.PathEscape(city))
	return s.send(ctx, "delete_hero_banner", http.MethodDelete, endpoint, nil, token)
}

func (s *HTTPService) getJSON(ctx context.Context, op, endpoint string, query url.Values, token string, out any) (err error) {
	ctx, span := s.startSpan(ctx, op, http.MethodGet, endpoint)
	defer func() { endSpan(span, err) }()

	req, err := s.newRequest(ctx, http.MethodGet, endpoint, query, nil, token)
	if err != nil {
		return err
	}
	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return s.errorFromResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("banners: decode %s: %w", op, err)
	}
	return nil
}

func (s *HTTPService) send(ctx context.Context, op, method, endpoint string, payload any, token string) (err error) {
	ctx, span := s.startSpan(ctx, op, method, endpoint)
	defer func() { endSpan(span, err) }()

	var body io.Reader
	if payload != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("banners: encode payload: %w", err)
		}
		body = &buf
	}
	req, err := s.newRequest(ctx, method, endpoint, nil, body, token)
	if err != nil {
		return err
	}
	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.errorFromResponse(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return nil
}

func (s *HTTPService) startSpan(ctx context.Context, op, method, endpoint string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "banners."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", endpoint),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *HTTPService) do(req *http.Request) (*http.Response, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("banners: request failed: %w", err)
	}
	return resp, nil
}

func (s *HTTPService) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, token string) (*http.Request, error) {
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("banners: build request: %w", err)
	}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, fmt.Errorf("banners: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (s *HTTPService) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	backendErr := &BackendError{Status: resp.StatusCode}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil && (payload.Message != "" || payload.Error != "") {
			backendErr.Code = strings.TrimSpace(payload.Code)
			backendErr.Message = payload.Message
			if backendErr.Message == "" {
				backendErr.Message = payload.Error
			}
			return backendErr
		}
		backendErr.Message = strings.TrimSpace(string(body))
		return backendErr
	}
	backendErr.Message = http.StatusText(resp.StatusCode)
	return backendErr
}
