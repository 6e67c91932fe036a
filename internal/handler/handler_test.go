package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-checkout/internal/domain/auth"
	"github.com/xenking/order-checkout/internal/domain/order"
	"github.com/xenking/order-checkout/internal/security"
)

const (
	testSecret = "jwt-secret"
	testAdmin  = "admin-key"
)

var testPepper = []byte("pepper")

type mockOrders struct {
	placeReq  order.PlaceOrderRequest
	placeErr  error
	verifyErr error
	listErr   error
	statusErr error

	verified map[string]bool
	statuses map[string]string
	orders   []*order.Order
}

func (m *mockOrders) PlaceOrder(_ context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error) {
	m.placeReq = req
	if m.placeErr != nil {
		return nil, m.placeErr
	}
	return &order.PlaceOrderResult{
		Order:      &order.Order{ID: "o1", UserID: req.UserID},
		SessionURL: "https://checkout.example.com/cs_1",
	}, nil
}

func (m *mockOrders) VerifyOrder(_ context.Context, orderID string, success bool) (*order.VerifyResult, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	if m.verified == nil {
		m.verified = map[string]bool{}
	}
	m.verified[orderID] = success
	return &order.VerifyResult{OrderID: orderID, Paid: success}, nil
}

func (m *mockOrders) UserOrders(_ context.Context, userID string) ([]*order.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrders) ListOrders(context.Context) ([]*order.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.orders, nil
}

func (m *mockOrders) UpdateStatus(_ context.Context, orderID, status string) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	if m.statuses == nil {
		m.statuses = map[string]string{}
	}
	m.statuses[orderID] = status
	return nil
}

type mockKeys map[string]*auth.APIKeyInfo

func (m mockKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return info, nil
}

type testEnv struct {
	orders *mockOrders
	router http.Handler
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	jwtSvc := security.NewJWTService(testSecret, time.Hour)
	token, err := jwtSvc.GenerateToken("U1")
	require.NoError(t, err)

	adminHash := security.HashAPIKey(testAdmin, testPepper)
	readonlyHash := security.HashAPIKey("readonly-key", testPepper)
	keys := mockKeys{
		adminHash:    {ID: "admin", KeyHash: adminHash, Scopes: []string{auth.ScopeOrdersAdmin}},
		readonlyHash: {ID: "readonly", KeyHash: readonlyHash, Scopes: []string{"orders:read"}},
	}

	orders := &mockOrders{
		orders: []*order.Order{
			{
				ID:     "o1",
				UserID: "U1",
				Items: []order.Item{
					{Name: "Shirt", Price: decimal.RequireFromString("500"), Quantity: 2},
				},
				Amount:   decimal.RequireFromString("1050.5"),
				Address:  json.RawMessage(`{"city":"Pune"}`),
				Delivery: decimal.RequireFromString("50"),
				Status:   order.DefaultStatus,
				Date:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			},
			{ID: "o2", UserID: "U2", Status: "Shipped", Payment: true},
		},
	}

	h := NewHandler(Config{
		Orders:  orders,
		Tokens:  jwtSvc,
		APIKeys: keys,
		Pepper:  testPepper,
	})
	mux := chi.NewRouter()
	h.Mount(mux)

	return &testEnv{orders: orders, router: mux, token: token}
}

type envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	SessionURL string            `json:"session_url"`
	Data       []json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) envelope {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestPlaceOrder(t *testing.T) {
	e := newTestEnv(t)

	body := `{"userId":"spoofed","items":[{"name":"Shirt","price":500,"quantity":2}],
		"amount":1050,"address":{"city":"Pune"},"discount":0,"delivery":50}`
	env := e.do(t, http.MethodPost, "/api/order/place", body, map[string]string{"token": e.token})

	assert.True(t, env.Success)
	assert.Equal(t, "https://checkout.example.com/cs_1", env.SessionURL)

	req := e.orders.placeReq
	assert.Equal(t, "U1", req.UserID)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "Shirt", req.Items[0].Name)
	assert.True(t, req.Items[0].Price.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(2), req.Items[0].Quantity)
	assert.True(t, req.Delivery.Equal(decimal.NewFromInt(50)))
	assert.JSONEq(t, `{"city":"Pune"}`, string(req.Address))
}

func TestPlaceOrder_BearerToken(t *testing.T) {
	e := newTestEnv(t)

	env := e.do(t, http.MethodPost, "/api/order/place",
		`{"items":[{"name":"Shirt","price":1,"quantity":1}]}`,
		map[string]string{"Authorization": "Bearer " + e.token},
	)
	assert.True(t, env.Success)
	assert.Equal(t, "U1", e.orders.placeReq.UserID)
}

func TestPlaceOrder_Unauthorized(t *testing.T) {
	e := newTestEnv(t)

	for name, headers := range map[string]map[string]string{
		"Missing": nil,
		"Garbage": {"token": "garbage"},
		"Forged":  {"token": mustToken(t, "other-secret", "U1")},
	} {
		t.Run(name, func(t *testing.T) {
			env := e.do(t, http.MethodPost, "/api/order/place", `{}`, headers)
			assert.False(t, env.Success)
			assert.Equal(t, "Not Authorized Login Again", env.Message)
		})
	}
}

func mustToken(t *testing.T, secret, userID string) string {
	t.Helper()
	token, err := security.NewJWTService(secret, time.Hour).GenerateToken(userID)
	require.NoError(t, err)
	return token
}

func TestPlaceOrder_Errors(t *testing.T) {
	for _, tt := range []struct {
		name string
		err  error
		want string
	}{
		{"Delivery", &order.ValidationError{Field: "delivery", Message: "Invalid delivery charge"}, "Invalid delivery charge"},
		{"Item", &order.InvalidItemError{Index: 0, Name: "Shirt"}, "Invalid item data: Shirt"},
		{"Empty", order.ErrEmptyItems, "Invalid request: items required"},
		{"Coupon", errors.Wrap(order.ErrCouponFailed, "boom"), "Error creating discount coupon"},
		{"Session", errors.Wrap(order.ErrSessionFailed, "boom"), "Error processing payment"},
		{"Unexpected", errors.New("db down"), "Error processing payment"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.orders.placeErr = tt.err

			env := e.do(t, http.MethodPost, "/api/order/place", `{"items":[]}`, map[string]string{"token": e.token})
			assert.False(t, env.Success)
			assert.Equal(t, tt.want, env.Message)
			assert.Empty(t, env.SessionURL)
		})
	}
}

func TestPlaceOrder_MalformedBody(t *testing.T) {
	e := newTestEnv(t)

	env := e.do(t, http.MethodPost, "/api/order/place", `{"items":"nope"}`, map[string]string{"token": e.token})
	assert.False(t, env.Success)
	assert.True(t, strings.HasPrefix(env.Message, "Invalid request:"), env.Message)
}

func TestVerifyOrder(t *testing.T) {
	for _, tt := range []struct {
		name    string
		body    string
		success bool
		want    envelope
	}{
		{"Paid", `{"orderId":"o1","success":true}`, true, envelope{Success: true, Message: "Paid"}},
		{"PaidString", `{"orderId":"o1","success":"true"}`, true, envelope{Success: true, Message: "Paid"}},
		{"Declined", `{"orderId":"o1","success":false}`, false, envelope{Message: "Not paid, failed"}},
		{"DeclinedString", `{"orderId":"o1","success":"false"}`, false, envelope{Message: "Not paid, failed"}},
		{"Missing", `{"orderId":"o1"}`, false, envelope{Message: "Not paid, failed"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			env := e.do(t, http.MethodPost, "/api/order/verify", tt.body, nil)
			assert.Equal(t, tt.want, env)
			assert.Equal(t, tt.success, e.orders.verified["o1"])
		})
	}
}

func TestVerifyOrder_Errors(t *testing.T) {
	t.Run("NoOrderID", func(t *testing.T) {
		e := newTestEnv(t)
		env := e.do(t, http.MethodPost, "/api/order/verify", `{"success":true}`, nil)
		assert.False(t, env.Success)
		assert.Equal(t, "Invalid request: orderId is required", env.Message)
	})
	t.Run("BadFlag", func(t *testing.T) {
		e := newTestEnv(t)
		env := e.do(t, http.MethodPost, "/api/order/verify", `{"orderId":"o1","success":"maybe"}`, nil)
		assert.False(t, env.Success)
		assert.True(t, strings.HasPrefix(env.Message, "Invalid request:"))
	})
	for name, err := range map[string]error{
		"NotFound":    order.ErrNotFound,
		"AlreadyPaid": order.ErrAlreadyPaid,
		"Storage":     errors.New("db down"),
	} {
		t.Run(name, func(t *testing.T) {
			e := newTestEnv(t)
			e.orders.verifyErr = err
			env := e.do(t, http.MethodPost, "/api/order/verify", `{"orderId":"o1","success":true}`, nil)
			assert.Equal(t, envelope{Message: "Error"}, env)
		})
	}
}

func TestUserOrders(t *testing.T) {
	e := newTestEnv(t)

	env := e.do(t, http.MethodPost, "/api/order/userorders", `{"userId":"U2"}`, map[string]string{"token": e.token})
	require.True(t, env.Success)
	require.Len(t, env.Data, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data[0], &got))
	assert.Equal(t, "o1", got["_id"])
	assert.Equal(t, "U1", got["userId"])
	assert.Equal(t, 1050.5, got["amount"])
	assert.Equal(t, float64(50), got["delivery"])
	assert.Equal(t, float64(0), got["discount"])
	assert.Equal(t, false, got["payment"])
	assert.Equal(t, order.DefaultStatus, got["status"])
	assert.Equal(t, "2024-05-01T10:00:00Z", got["date"])
	assert.Equal(t, map[string]any{"city": "Pune"}, got["address"])
	assert.Equal(t, []any{map[string]any{"name": "Shirt", "price": float64(500), "quantity": float64(2)}}, got["items"])
}

func TestUserOrders_Empty(t *testing.T) {
	e := newTestEnv(t)
	token := mustToken(t, testSecret, "U9")

	req := httptest.NewRequest(http.MethodPost, "/api/order/userorders", strings.NewReader(`{}`))
	req.Header.Set("token", token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())
}

func TestUserOrders_Error(t *testing.T) {
	e := newTestEnv(t)
	e.orders.listErr = errors.New("db down")

	env := e.do(t, http.MethodPost, "/api/order/userorders", `{}`, map[string]string{"token": e.token})
	assert.Equal(t, envelope{Message: "Error"}, env)
}

func TestListOrders(t *testing.T) {
	e := newTestEnv(t)

	env := e.do(t, http.MethodGet, "/api/order/list", "", map[string]string{"api_key": testAdmin})
	require.True(t, env.Success)
	assert.Len(t, env.Data, 2)
}

func TestListOrders_ErrorReportsFailure(t *testing.T) {
	e := newTestEnv(t)
	e.orders.listErr = errors.New("db down")

	env := e.do(t, http.MethodGet, "/api/order/list", "", map[string]string{"api_key": testAdmin})
	assert.Equal(t, envelope{Message: "Error"}, env)
}

func TestAdminAuth(t *testing.T) {
	e := newTestEnv(t)

	for name, headers := range map[string]map[string]string{
		"Missing":    nil,
		"Unknown":    {"api_key": "nope"},
		"WrongScope": {"api_key": "readonly-key"},
		"UserToken":  {"token": e.token},
	} {
		t.Run(name, func(t *testing.T) {
			env := e.do(t, http.MethodGet, "/api/order/list", "", headers)
			assert.Equal(t, envelope{Message: "Not Authorized"}, env)

			env = e.do(t, http.MethodPost, "/api/order/status", `{"orderId":"o1","status":"Shipped"}`, headers)
			assert.Equal(t, envelope{Message: "Not Authorized"}, env)
		})
	}
	assert.Empty(t, e.orders.statuses)
}

func TestUpdateStatus(t *testing.T) {
	e := newTestEnv(t)
	admin := map[string]string{"api_key": testAdmin}

	env := e.do(t, http.MethodPost, "/api/order/status", `{"orderId":"o1","status":"Shipped"}`, admin)
	assert.Equal(t, envelope{Success: true, Message: "Status updated"}, env)
	assert.Equal(t, "Shipped", e.orders.statuses["o1"])

	env = e.do(t, http.MethodPost, "/api/order/status", `{"orderId":"o1"}`, admin)
	assert.Equal(t, envelope{Message: "Invalid request: status is required"}, env)

	e.orders.statusErr = order.ErrNotFound
	env = e.do(t, http.MethodPost, "/api/order/status", `{"orderId":"missing","status":"Shipped"}`, admin)
	assert.Equal(t, envelope{Message: "Error"}, env)
}

func TestFlexBool(t *testing.T) {
	for in, want := range map[string]bool{
		`true`:    true,
		`false`:   false,
		`"true"`:  true,
		`"false"`: false,
		`"1"`:     true,
		`null`:    false,
	} {
		var b flexBool
		require.NoError(t, json.Unmarshal([]byte(in), &b), in)
		assert.Equal(t, want, bool(b), in)
	}

	var b flexBool
	require.Error(t, json.Unmarshal([]byte(`"yes"`), &b))
	require.Error(t, json.Unmarshal([]byte(`{}`), &b))
}
