package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/internal/identity"
	internalorders "github.com/abhiruchieats/storefront-api/internal/orders"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/pagination"
	"github.com/abhiruchieats/storefront-api/pkg/types"
)

type stubOrderService struct {
	order   *internalorders.OrderDTO
	err     error
	gotID   uuid.UUID
	gotUser string
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, who identity.Identity) (*internalorders.OrderDTO, error) {
	if err := who.RequireAuthenticated(); err != nil {
		return nil, err
	}
	s.gotUser = who.UserID()
	return s.order, s.err
}

func (s *stubOrderService) ListMine(ctx context.Context, who identity.Identity) ([]internalorders.OrderDTO, error) {
	s.gotUser = who.UserID()
	return []internalorders.OrderDTO{}, s.err
}

func (s *stubOrderService) GetMine(ctx context.Context, who identity.Identity, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	s.gotID = orderID
	return s.order, s.err
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, input internalorders.StatusUpdate) (*internalorders.OrderDTO, error) {
	panic("not used")
}

func (s *stubOrderService) AdminList(ctx context.Context, params pagination.Params, status string) (*types.Page[internalorders.OrderDTO], error) {
	panic("not used")
}

func (s *stubOrderService) ListByCustomer(ctx context.Context, userID string) ([]internalorders.OrderDTO, error) {
	panic("not used")
}

func (s *stubOrderService) Stats(ctx context.Context) (*internalorders.Stats, error) {
	panic("not used")
}

func withUser(req *http.Request) *http.Request {
	return req.WithContext(identity.WithContext(req.Context(), identity.Authenticated("user-1", "priya@example.com", "Priya")))
}

func TestPlaceReturnsCreatedWithMessage(t *testing.T) {
	svc := &stubOrderService{order: &internalorders.OrderDTO{ID: uuid.New(), OrderNumber: "AE-TEST"}}
	resp := httptest.NewRecorder()
	Place(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var body struct {
		Success bool                    `json:"success"`
		Message string                  `json:"message"`
		Data    internalorders.OrderDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Message != "Order created successfully" || body.Data.OrderNumber != "AE-TEST" {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if svc.gotUser != "user-1" {
		t.Fatalf("identity not forwarded")
	}
}

func TestPlaceRejectsAnonymousCaller(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req = req.WithContext(identity.WithContext(req.Context(), identity.Anonymous("sess-1")))
	resp := httptest.NewRecorder()
	Place(&stubOrderService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPlaceEmptyCart(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "Cart is empty")}
	resp := httptest.NewRecorder()
	Place(svc, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)))

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &body)
	if resp.Code != http.StatusBadRequest || body.Code != string(pkgerrors.CodeEmptyCart) || body.Error != "Cart is empty" {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}

func TestDetailParsesOrderID(t *testing.T) {
	id := uuid.New()
	svc := &stubOrderService{order: &internalorders.OrderDTO{ID: id}}

	r := chi.NewRouter()
	r.Get("/api/v1/orders/{orderId}", Detail(svc, nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id.String(), nil)))
	if resp.Code != http.StatusOK || svc.gotID != id {
		t.Fatalf("expected lookup of %s, got %d", id, resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailHidesForeignOrders(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")}
	r := chi.NewRouter()
	r.Get("/api/v1/orders/{orderId}", Detail(svc, nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
