package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rubberworks/queuegate/internal/config"
	"github.com/rubberworks/queuegate/internal/domain/models"
)

// Client exposes the upstream backend operations used by the gateway.
type Client interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Me(ctx context.Context, token string) (models.Record, error)

	ListBookings(ctx context.Context, token string, query url.Values) ([]models.Record, error)
	BookingEvents(ctx context.Context, token, date string) ([]models.Record, error)
	GetBooking(ctx context.Context, token, id string) (models.Record, error)
	CreateBooking(ctx context.Context, token string, body models.Record) (models.Record, error)
	UpdateBooking(ctx context.Context, token, id string, body models.Record) (models.Record, error)
	DeleteBooking(ctx context.Context, token, id string) error
	NextSequence(ctx context.Context, token, date, startTime string) (int, error)

	ListSuppliers(ctx context.Context, token string, query url.Values) ([]models.Record, error)
	GetSupplier(ctx context.Context, token, id string) (models.Record, error)
	CreateSupplier(ctx context.Context, token string, body any) (models.Record, error)
	UpdateSupplier(ctx context.Context, token, id string, body any) (models.Record, error)
	DeleteSupplier(ctx context.Context, token, id string) error

	Forward(ctx context.Context, token string, req ForwardRequest) (*RawResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient   *resty.Client
	loginClient  *resty.Client
	loginTimeout time.Duration
}

// NewClient builds the upstream client from configuration.
func NewClient(cfg config.BackendConfig) *APIClient {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	loginClient := resty.New().
		SetBaseURL(cfg.LoginURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.LoginTimeout)

	return &APIClient{
		httpClient:   httpClient,
		loginClient:  loginClient,
		loginTimeout: cfg.LoginTimeout,
	}
}

// LoginResponse carries the upstream access token and the raw login payload.
type LoginResponse struct {
	AccessToken string
	Payload     models.Record
}

// ForwardRequest describes a raw pass-through call.
type ForwardRequest struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
}

// RawResponse is an upstream response returned without interpretation.
type RawResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *APIClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.loginTimeout)
	defer cancel()

	resp, err := c.loginClient.R().
		SetContext(ctx).
		SetBody(loginRequest{Email: email, Password: password}).
		Post("/auth/login")
	if err != nil {
		return nil, fmt.Errorf("upstream login: %w", err)
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	var payload models.Record
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: login body is not JSON: %v", ErrInvalidResponse, err)
	}
	if data := payload.Object("data"); data != nil {
		payload = payload.Merge(data)
	}

	token := payload.String("access_token", "accessToken", "token")
	if token == "" {
		return nil, ErrMissingToken
	}

	return &LoginResponse{AccessToken: token, Payload: payload}, nil
}

func (c *APIClient) Me(ctx context.Context, token string) (models.Record, error) {
	resp, err := c.call(ctx, token, http.MethodGet, "/users/me", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

func (c *APIClient) ListBookings(ctx context.Context, token string, query url.Values) ([]models.Record, error) {
	resp, err := c.call(ctx, token, http.MethodGet, "/bookings", nil, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(resp, "bookings")
}

func (c *APIClient) BookingEvents(ctx context.Context, token, date string) ([]models.Record, error) {
	query := url.Values{}
	if date != "" {
		query.Set("date", date)
	}
	resp, err := c.call(ctx, token, http.MethodGet, "/bookings/events", nil, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(resp, "events")
}

func (c *APIClient) GetBooking(ctx context.Context, token, id string) (models.Record, error) {
	resp, err := c.call(ctx, token, http.MethodGet, "/bookings/{id}", pathID(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

func (c *APIClient) CreateBooking(ctx context.Context, token string, body models.Record) (models.Record, error) {
	resp, err := c.call(ctx, token, http.MethodPost, "/bookings", nil, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

func (c *APIClient) UpdateBooking(ctx context.Context, token, id string, body models.Record) (models.Record, error) {
	resp, err := c.call(ctx, token, http.MethodPut, "/bookings/{id}", pathID(id), nil, body)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

func (c *APIClient) DeleteBooking(ctx context.Context, token, id string) error {
	_, err := c.call(ctx, token, http.MethodDelete, "/bookings/{id}", pathID(id), nil, nil)
	return err
}

func (c *APIClient) NextSequence(ctx context.Context, token, date, startTime string) (int, error) {
	query := url.Values{}
	query.Set("date", date)
	query.Set("start_time", startTime)

	resp, err := c.call(ctx, token, http.MethodGet, "/bookings/next-sequence", nil, query, nil)
	if err != nil {
		return 0, err
	}
	record, err := decodeRecord(resp)
	if err != nil {
		return 0, err
	}
	seq, ok := record.Int("sequence", "next_sequence", "nextSequence", "next")
	if !ok {
		return 0, fmt.Errorf("%w: next-sequence response has no sequence", ErrInvalidResponse)
	}
	return seq, nil
}

func (c *APIClient) ListSuppliers(ctx context.Context, token string, query url.Values) ([]models.Record, error) {
	resp, err := c.call(ctx, token, http.MethodGet, "/suppliers", nil, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(resp, "suppliers")
}

func (c *APIClient) GetSupplier(ctx context.Context, token, id string) (models.Record, error) {
	resp, err := c.call(ctx, token, http.MethodGet, "/suppliers/{id}", pathID(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

func (c *APIClient) CreateSupplier(ctx context.Context, token string, body any) (models.Record, error) {
	resp, err := c.call(ctx, token, http.MethodPost, "/suppliers", nil, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

func (c *APIClient) UpdateSupplier(ctx context.Context, token, id string, body any) (models.Record, error) {
	resp, err := c.call(ctx, token, http.MethodPut, "/suppliers/{id}", pathID(id), nil, body)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

func (c *APIClient) DeleteSupplier(ctx context.Context, token, id string) error {
	_, err := c.call(ctx, token, http.MethodDelete, "/suppliers/{id}", pathID(id), nil, nil)
	return err
}

// Forward relays a request and returns the upstream response untouched, including
// non-2xx statuses. Only transport failures are returned as errors.
func (c *APIClient) Forward(ctx context.Context, token string, fr ForwardRequest) (*RawResponse, error) {
	req := c.httpClient.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if len(fr.Query) > 0 {
		req.SetQueryParamsFromValues(fr.Query)
	}
	if len(fr.Body) > 0 {
		if fr.ContentType != "" {
			req.SetHeader("Content-Type", fr.ContentType)
		}
		req.SetBody(fr.Body)
	}

	resp, err := req.Execute(fr.Method, fr.Path)
	if err != nil {
		return nil, fmt.Errorf("forward %s %s: %w", fr.Method, fr.Path, err)
	}

	return &RawResponse{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

func (c *APIClient) call(ctx context.Context, token, method, path string, pathParams map[string]string, query url.Values, body any) (*resty.Response, error) {
	req := c.httpClient.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if len(pathParams) > 0 {
		req.SetPathParams(pathParams)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}
	return resp, nil
}

func pathID(id string) map[string]string {
	return map[string]string{"id": id}
}

// decodeRecord parses an object body, unwrapping a {"data": {...}} envelope.
func decodeRecord(resp *resty.Response) (models.Record, error) {
	body := resp.Body()
	if len(body) == 0 {
		return models.Record{}, nil
	}
	var payload models.Record
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if data := payload.Object("data"); data != nil {
		return data, nil
	}
	return payload, nil
}

// decodeList parses a list body: a bare array, or an object holding the array under
// "data", "items", "results" or the resource name.
func decodeList(resp *resty.Response, resource string) ([]models.Record, error) {
	body := resp.Body()
	if len(body) == 0 {
		return nil, nil
	}

	var list []models.Record
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	for _, key := range []string{"data", "items", "results", resource} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
	}
	return nil, fmt.Errorf("%w: no list found in response", ErrInvalidResponse)
}
