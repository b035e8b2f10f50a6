package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/cartsync/api/middleware"
	cartsvc "github.com/angelmondragon/cartsync/internal/cart"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCartService struct {
	fetched     []types.CartItem
	fetchErr    error
	addErr      error
	deleted     types.CartItem
	resetErr    error
	lastAdded   types.CartItem
	lastUpdated types.CartItem
}

func (s *stubCartService) AddToCart(ctx context.Context, item types.CartItem) (types.CartItem, error) {
	if s.addErr != nil {
		return types.CartItem{}, s.addErr
	}
	s.lastAdded = item
	return item.WithID("new-1"), nil
}

func (s *stubCartService) FetchItemsByUser(ctx context.Context, userID string) ([]types.CartItem, error) {
	return s.fetched, s.fetchErr
}

func (s *stubCartService) UpdateCart(ctx context.Context, update types.CartItem) (types.CartItem, error) {
	s.lastUpdated = update
	return update, nil
}

func (s *stubCartService) DeleteItemFromCart(ctx context.Context, itemID string) (types.CartItem, error) {
	return s.deleted, nil
}

func (s *stubCartService) ResetCart(ctx context.Context) error {
	return s.resetErr
}

func mustItem(t *testing.T, fields map[string]any) types.CartItem {
	t.Helper()
	item, err := types.NewCartItem(fields)
	require.NoError(t, err)
	return item
}

func newSessions(t *testing.T, svc *stubCartService) *cartsvc.Registry {
	t.Helper()
	registry, err := cartsvc.NewRegistry(cartsvc.RegistryParams{Service: svc})
	require.NoError(t, err)
	return registry
}

func newRequest(method, target, body, userID string, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := req.Context()
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeState(t *testing.T, resp *httptest.ResponseRecorder) StateResponse {
	t.Helper()
	var envelope struct {
		Data StateResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}

func decodeMutation(t *testing.T, resp *httptest.ResponseRecorder) MutationResponse {
	t.Helper()
	var envelope struct {
		Data MutationResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}

func TestCartStateStartsEmptyAndIdle(t *testing.T) {
	handler := CartState(newSessions(t, &stubCartService{}), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/cart", "", "user-1", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	state := decodeState(t, resp)
	assert.NotNil(t, state.Items)
	assert.Empty(t, state.Items)
	assert.Equal(t, "idle", state.Status)
	assert.False(t, state.CartLoaded)
	assert.Equal(t, 0, state.ItemCount)
}

func TestCartStateRequiresUser(t *testing.T) {
	handler := CartState(newSessions(t, &stubCartService{}), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/cart", "", "", nil))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCartStateWithoutSessionsIsInternal(t *testing.T) {
	handler := CartState(nil, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/cart", "", "user-1", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestCartFetchLoadsItems(t *testing.T) {
	svc := &stubCartService{fetched: []types.CartItem{
		mustItem(t, map[string]any{"id": 1, "price": "2.50", "quantity": 2}),
		mustItem(t, map[string]any{"id": 2, "price": "1.00"}),
	}}
	handler := CartFetch(newSessions(t, svc), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/fetch", "", "user-1", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	state := decodeState(t, resp)
	assert.True(t, state.CartLoaded)
	assert.Len(t, state.Items, 2)
	assert.Equal(t, 3, state.ItemCount)
	assert.Equal(t, "6", state.Subtotal.String())
}

func TestCartFetchFailureStillMarksLoaded(t *testing.T) {
	sessions := newSessions(t, &stubCartService{fetchErr: pkgerrors.New(pkgerrors.CodeRequest, "upstream down")})

	resp := httptest.NewRecorder()
	CartFetch(sessions, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/fetch", "", "user-1", nil))
	assert.Equal(t, http.StatusBadGateway, resp.Code)

	resp = httptest.NewRecorder()
	CartState(sessions, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/cart", "", "user-1", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decodeState(t, resp).CartLoaded)
}

func TestCartAddItemReturnsCreated(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAddItem(newSessions(t, svc), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", `{"item":{"product":"p-1","quantity":1}}`, "user-1", nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	out := decodeMutation(t, resp)
	assert.Equal(t, "new-1", out.Item.ID())
	require.Len(t, out.Cart.Items, 1)
	assert.Equal(t, "new-1", out.Cart.Items[0].ID())
	raw, ok := svc.lastAdded.Field("product")
	require.True(t, ok)
	assert.JSONEq(t, `"p-1"`, string(raw))
}

func TestCartAddItemForwardsLargeNumbersUnchanged(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAddItem(newSessions(t, svc), nil)

	body := `{"item":{"productId":9007199254740993,"sku":12345678901234567891,"price":19.990}}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", body, "user-1", nil))
	require.Equal(t, http.StatusCreated, resp.Code)

	for field, want := range map[string]string{
		"productId": "9007199254740993",
		"sku":       "12345678901234567891",
		"price":     "19.990",
	} {
		raw, ok := svc.lastAdded.Field(field)
		require.True(t, ok, field)
		assert.Equal(t, want, string(raw), field)
	}
}

func TestCartAddItemRejectsNonObjectItem(t *testing.T) {
	handler := CartAddItem(newSessions(t, &stubCartService{}), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", `{"item":[1,2]}`, "user-1", nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartAddItemRejectsMissingItem(t *testing.T) {
	handler := CartAddItem(newSessions(t, &stubCartService{}), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", `{}`, "user-1", nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartAddItemServiceFailureLeavesCartEmpty(t *testing.T) {
	sessions := newSessions(t, &stubCartService{addErr: pkgerrors.New(pkgerrors.CodeConflict, "out of stock")})

	resp := httptest.NewRecorder()
	CartAddItem(sessions, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", `{"item":{"product":"p-1"}}`, "user-1", nil))
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = httptest.NewRecorder()
	CartState(sessions, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/cart", "", "user-1", nil))
	assert.Empty(t, decodeState(t, resp).Items)
}

func TestCartUpdateItemReplacesHeldItem(t *testing.T) {
	svc := &stubCartService{fetched: []types.CartItem{mustItem(t, map[string]any{"id": 7, "quantity": 1})}}
	sessions := newSessions(t, svc)

	resp := httptest.NewRecorder()
	CartFetch(sessions, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/fetch", "", "user-1", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	req := newRequest(http.MethodPatch, "/api/v1/cart/items/7", `{"fields":{"quantity":5}}`, "user-1", map[string]string{"itemId": "7"})
	CartUpdateItem(sessions, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	out := decodeMutation(t, resp)
	assert.Equal(t, "7", out.Item.ID())
	require.Len(t, out.Cart.Items, 1)
	assert.Equal(t, 5, out.Cart.Items[0].Quantity())
}

func TestCartUpdateItemSendsNumericPathIDAsNumber(t *testing.T) {
	svc := &stubCartService{}
	handler := CartUpdateItem(newSessions(t, svc), nil)

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPatch, "/api/v1/cart/items/5", `{"fields":{"quantity":2}}`, "user-1", map[string]string{"itemId": "5"})
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	out, err := json.Marshal(svc.lastUpdated)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5,"quantity":2}`, string(out))
}

func TestCartUpdateItemRejectsMismatchedID(t *testing.T) {
	handler := CartUpdateItem(newSessions(t, &stubCartService{}), nil)

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPatch, "/api/v1/cart/items/7", `{"fields":{"id":8,"quantity":5}}`, "user-1", map[string]string{"itemId": "7"})
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartDeleteItemFallsBackToPathID(t *testing.T) {
	svc := &stubCartService{fetched: []types.CartItem{
		mustItem(t, map[string]any{"id": 1}),
		mustItem(t, map[string]any{"id": 2}),
	}}
	sessions := newSessions(t, svc)

	resp := httptest.NewRecorder()
	CartFetch(sessions, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/fetch", "", "user-1", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	CartDeleteItem(sessions, nil).ServeHTTP(resp, newRequest(http.MethodDelete, "/api/v1/cart/items/1", "", "user-1", map[string]string{"itemId": "1"}))

	require.Equal(t, http.StatusOK, resp.Code)
	out := decodeMutation(t, resp)
	require.Len(t, out.Cart.Items, 1)
	assert.Equal(t, "2", out.Cart.Items[0].ID())
}

func TestCartDeleteItemRequiresPathID(t *testing.T) {
	handler := CartDeleteItem(newSessions(t, &stubCartService{}), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newRequest(http.MethodDelete, "/api/v1/cart/items/", "", "user-1", nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartResetEmptiesItems(t *testing.T) {
	svc := &stubCartService{fetched: []types.CartItem{mustItem(t, map[string]any{"id": 1})}}
	sessions := newSessions(t, svc)

	resp := httptest.NewRecorder()
	CartFetch(sessions, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/fetch", "", "user-1", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	CartReset(sessions, nil).ServeHTTP(resp, newRequest(http.MethodDelete, "/api/v1/cart", "", "user-1", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	state := decodeState(t, resp)
	assert.Empty(t, state.Items)
	assert.True(t, state.CartLoaded)
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	svc := &stubCartService{}
	sessions := newSessions(t, svc)

	resp := httptest.NewRecorder()
	CartAddItem(sessions, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", `{"item":{"product":"p-1"}}`, "user-1", nil))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = httptest.NewRecorder()
	CartState(sessions, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/cart", "", "user-2", nil))
	assert.Empty(t, decodeState(t, resp).Items)
}
