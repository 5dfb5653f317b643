package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	product "github.com/abhiruchieats/storefront-api/internal/products"
	pkgauth "github.com/abhiruchieats/storefront-api/pkg/auth"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "abhiruchieats", ExpirationMinutes: 60},
		FeatureFlags: config.FeatureFlagsConfig{
			DevTokenIssue: true,
		},
	}
}

func TestHealthReady(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady(testConfig(), ok, ok, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(testConfig(), ok, down, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	var body struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != string(pkgerrors.CodeDependency) || body.Details["dependency"] != "redis" {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

type stubCatalog struct {
	product.Service
	category string
	gotID    uuid.UUID
}

func (s *stubCatalog) List(ctx context.Context, category string) ([]product.ProductDTO, error) {
	s.category = category
	if category == "Unknown" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid category")
	}
	return []product.ProductDTO{{Name: "Mango Pickle"}}, nil
}

func (s *stubCatalog) Get(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error) {
	s.gotID = id
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
}

func TestProductListForwardsCategory(t *testing.T) {
	svc := &stubCatalog{}
	resp := httptest.NewRecorder()
	ProductList(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?category=Main+Course", nil))
	if resp.Code != http.StatusOK || svc.category != "Main Course" {
		t.Fatalf("unexpected %d category=%q", resp.Code, svc.category)
	}

	resp = httptest.NewRecorder()
	ProductList(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?category=Unknown", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductDetailNotFound(t *testing.T) {
	svc := &stubCatalog{}
	r := chi.NewRouter()
	r.Get("/api/v1/products/{productId}", ProductDetail(svc, nil))

	id := uuid.New()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id.String(), nil))
	if resp.Code != http.StatusNotFound || svc.gotID != id {
		t.Fatalf("expected 404 for %s got %d", id, resp.Code)
	}
}

func TestDevTokenMintsParsableToken(t *testing.T) {
	cfg := testConfig()
	body := `{"userId":"user-7","email":"asha@example.com","name":"Asha"}`
	resp := httptest.NewRecorder()
	DevToken(cfg, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/dev-token", strings.NewReader(body)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := pkgauth.ParseCustomerToken(cfg.JWT, payload.Data.Token)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != "user-7" || claims.Email != "asha@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestDevTokenDisabled(t *testing.T) {
	for _, mutate := range []func(*config.Config){
		func(c *config.Config) { c.App.Env = "prod" },
		func(c *config.Config) { c.FeatureFlags.DevTokenIssue = false },
	} {
		cfg := testConfig()
		mutate(cfg)
		resp := httptest.NewRecorder()
		DevToken(cfg, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/dev-token", strings.NewReader(`{}`)))
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403 got %d", resp.Code)
		}
	}
}
