package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogshell/client/internal/catalog"
	"catalogshell/client/internal/session"
)

type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          map[string]any
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := recordedRequest{Method: r.Method, Path: r.URL.Path, Authorization: r.Header.Get("Authorization")}
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&entry.Body)
		}
		rec.mu.Lock()
		rec.requests = append(rec.requests, entry)
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	client, err := New(srv.URL+"/api/", Options{})
	require.NoError(t, err)
	return client, rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_Success(t *testing.T) {
	client, rec := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "test-token", "role": "USER"})
	})

	res, err := client.Login(context.Background(), "testuser", "password")
	require.NoError(t, err)
	assert.Equal(t, "test-token", res.Token)
	assert.Equal(t, session.RoleUser, res.Role)

	requests := rec.all()
	require.Len(t, requests, 1)
	got := requests[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/auth/login", got.Path)
	assert.Empty(t, got.Authorization)
	assert.Equal(t, map[string]any{"username": "testuser", "password": "password"}, got.Body)
}

func TestLogin_FailureCarriesServerMessage(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
	})

	_, err := client.Login(context.Background(), "u", "p")
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindUnauthorized, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Bad credentials", ServerMessage(err))
}

func TestLogin_EmptyTokenIsInvalid(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"role": "ADMIN"})
	})

	_, err := client.Login(context.Background(), "u", "p")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindInvalidResponse, apiErr.Kind)
	assert.Empty(t, ServerMessage(err))
}

func TestRegister_SendsRole(t *testing.T) {
	client, rec := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"token": "new-token", "username": "bob"})
	})

	res, err := client.Register(context.Background(), session.Credentials{Username: "bob", Password: "pw", Role: session.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "new-token", res.Token)
	assert.Equal(t, session.RoleNone, res.Role)

	got := rec.all()[0]
	assert.Equal(t, "/api/auth/register", got.Path)
	assert.Equal(t, "ADMIN", got.Body["role"])
}

func TestRegister_NonJSONErrorHasNoMessage(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Register(context.Background(), session.Credentials{Username: "x"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindRejected, apiErr.Kind)
	assert.Empty(t, apiErr.Message)
}

func TestListProducts(t *testing.T) {
	client, rec := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []catalog.Product{
			{ID: 1, Name: "Test Product", Description: "Test Desc", Price: 100, Quantity: 5},
		})
	})

	products, err := client.ListProducts(context.Background(), "test-token")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Test Product", products[0].Name)
	assert.EqualValues(t, 1, products[0].ID)

	got := rec.all()[0]
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/products", got.Path)
	assert.Equal(t, "Bearer test-token", got.Authorization)
}

func TestListProducts_NullIsEmpty(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("null"))
	})

	products, err := client.ListProducts(context.Background(), "t")
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestMutations_UseVerbsAndIDs(t *testing.T) {
	client, rec := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 7})
	})
	ctx := context.Background()
	input := catalog.Input{Name: "Lamp", Description: "Desk", Price: 12.5, Quantity: 3}

	require.NoError(t, client.CreateProduct(ctx, "tok", input))
	require.NoError(t, client.UpdateProduct(ctx, "tok", 7, input))
	require.NoError(t, client.DeleteProduct(ctx, "tok", 7))

	requests := rec.all()
	require.Len(t, requests, 3)
	assert.Equal(t, "POST /api/products", requests[0].Method+" "+requests[0].Path)
	assert.Equal(t, "PUT /api/products/7", requests[1].Method+" "+requests[1].Path)
	assert.Equal(t, "DELETE /api/products/7", requests[2].Method+" "+requests[2].Path)
	for _, req := range requests {
		assert.Equal(t, "Bearer tok", req.Authorization)
	}
	assert.Equal(t, "Lamp", requests[0].Body["name"])
	assert.EqualValues(t, 12.5, requests[1].Body["price"])
	assert.EqualValues(t, 3, requests[1].Body["quantity"])
}

func TestMutation_Forbidden(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "admin role required"})
	})

	err := client.DeleteProduct(context.Background(), "tok", 1)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindUnauthorized, apiErr.Kind)
	assert.Equal(t, "admin role required", apiErr.Message)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := New(base+"/api", Options{})
	require.NoError(t, err)
	_, err = client.ListProducts(context.Background(), "t")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindNetworkUnavailable, apiErr.Kind)
}

func TestCanceledContext(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []catalog.Product{})
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListProducts(ctx, "t")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("", Options{})
	require.Error(t, err)
}

func TestDeadlineComesFromContext(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	assert.Zero(t, client.httpClient.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	started := time.Now()
	_, err := client.ListProducts(ctx, "t")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(started), time.Second)
}
