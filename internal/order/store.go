package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/shopease/storefront/internal/resilience"
)

// ContentStore persists orders in the headless content store over HTTP. It
// is the production Store implementation.
type ContentStore struct {
	BaseURL string
	Token   string
	HTTP    *resilience.HTTPClient
}

// Create writes a new order document. The store echoes the stored document
// back, which becomes the authoritative copy.
func (s *ContentStore) Create(ctx context.Context, o Order) (Order, error) {
	var out Order
	if err := s.do(ctx, http.MethodPost, "/v1/orders", o, &out); err != nil {
		return Order{}, fmt.Errorf("order: create: %w", err)
	}
	return out, nil
}

// Get fetches a single order by id.
func (s *ContentStore) Get(ctx context.Context, id string) (Order, error) {
	var out Order
	if err := s.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(id), nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("order: get %s: %w", id, err)
	}
	return out, nil
}

// ListForCustomer returns the customer's orders, newest first.
func (s *ContentStore) ListForCustomer(ctx context.Context, email string) ([]Order, error) {
	var out []Order
	path := "/v1/orders?email=" + url.QueryEscape(email)
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("order: list for %s: %w", email, err)
	}
	return out, nil
}

// UpdateStatus persists an administrative status change and returns the
// updated document.
func (s *ContentStore) UpdateStatus(ctx context.Context, id string, status Status) (Order, error) {
	var out Order
	body := map[string]string{"status": string(status)}
	if err := s.do(ctx, http.MethodPatch, "/v1/orders/"+url.PathEscape(id)+"/status", body, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("order: update status %s: %w", id, err)
	}
	return out, nil
}

func (s *ContentStore) do(ctx context.Context, method, path string, in, out any) error {
	if s == nil || s.HTTP == nil {
		return errors.New("content store client not configured")
	}
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	resp, err := s.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]Order

	// CreateErr, when set, makes Create fail. Tests use it to exercise the
	// retry-safe failure path.
	CreateErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]Order)}
}

func (s *MemoryStore) Create(_ context.Context, o Order) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return Order{}, s.CreateErr
	}
	if _, exists := s.orders[o.ID]; exists {
		return Order{}, fmt.Errorf("order: duplicate id %s", o.ID)
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) ListForCustomer(_ context.Context, email string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.orders {
		if o.Customer.Email == email {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return o, nil
}
