package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogshell/client/internal/catalog"
	"catalogshell/client/internal/config"
	"catalogshell/client/internal/logging"
	"catalogshell/client/internal/mockapi"
	"catalogshell/client/internal/session"
	"catalogshell/client/internal/state"
	"catalogshell/client/internal/view"
)

const waitFor = 2 * time.Second
const tick = 10 * time.Millisecond

type fakeRenderer struct {
	mu      sync.Mutex
	views   []view.View
	alerts  []string
	notices []string
}

func (r *fakeRenderer) Render(snap state.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view.Build(snap))
}

func (r *fakeRenderer) ShowAlert(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, message)
}

func (r *fakeRenderer) ShowNotice(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, message)
}

func (r *fakeRenderer) last() view.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return view.View{}
	}
	return r.views[len(r.views)-1]
}

func (r *fakeRenderer) alertList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

type request struct {
	Method        string
	Path          string
	Authorization string
}

type backend struct {
	mu       sync.Mutex
	requests []request
}

func (b *backend) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, request{Method: r.Method, Path: r.URL.Path, Authorization: r.Header.Get("Authorization")})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *backend) matching(method, path string) []request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []request
	for _, r := range b.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func startApp(t *testing.T, handler http.Handler, store session.Store) (*Application, *fakeRenderer, *backend) {
	t.Helper()
	return startAppWithConfig(t, handler, store, config.Config{})
}

func startAppWithConfig(t *testing.T, handler http.Handler, store session.Store, cfg config.Config) (*Application, *fakeRenderer, *backend) {
	t.Helper()
	be := &backend{}
	srv := httptest.NewServer(be.wrap(handler))
	t.Cleanup(srv.Close)

	cfg.APIBaseURL = srv.URL + "/api"
	renderer := &fakeRenderer{}
	a, err := NewWithDeps(&cfg, logging.Discard(), Deps{Renderer: renderer, Store: store})
	require.NoError(t, err)
	require.NoError(t, a.Run())
	t.Cleanup(a.Stop)
	return a, renderer, be
}

func fileStore(t *testing.T) *session.FileStore {
	t.Helper()
	return session.NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))
}

func credentialsEvent(t state.EventType, username, password string, role session.Role) state.Event {
	return state.Event{Type: t, Payload: state.CredentialsPayload{Credentials: session.Credentials{
		Username: username, Password: password, Role: role,
	}}}
}

func TestLoginAsUser_RendersProductsWithoutActions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "test-token", "role": "USER"})
	})
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []catalog.Product{{ID: 1, Name: "Test Product", Price: 100, Quantity: 5}})
	})
	store := fileStore(t)
	a, renderer, be := startApp(t, mux, store)

	require.NoError(t, a.Dispatch(credentialsEvent(state.EventUIClickLogin, "testuser", "password", session.RoleUser)))

	require.Eventually(t, func() bool {
		v := renderer.last()
		return v.Page == view.PageProducts && len(v.Items) == 1
	}, waitFor, tick)
	v := renderer.last()
	assert.Equal(t, view.TitleProducts, v.Title)
	assert.False(t, v.Items[0].ShowEdit)
	assert.False(t, v.Items[0].ShowDelete)

	gets := be.matching(http.MethodGet, "/api/products")
	require.Len(t, gets, 1)
	assert.Equal(t, "Bearer test-token", gets[0].Authorization)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, session.Session{Token: "test-token", Role: session.RoleUser}, stored)
}

func TestRestoredAdminSession_RendersActions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []catalog.Product{{ID: 1, Name: "Test Product", Description: "Test Desc", Price: 100, Quantity: 5}})
	})
	store := fileStore(t)
	require.NoError(t, store.Save(session.Session{Token: "admin-token", Role: session.RoleAdmin}))

	_, renderer, be := startApp(t, mux, store)

	require.Eventually(t, func() bool { return len(renderer.last().Items) == 1 }, waitFor, tick)
	item := renderer.last().Items[0]
	assert.Equal(t, "Test Product", item.Title)
	assert.True(t, item.ShowEdit)
	assert.True(t, item.ShowDelete)
	assert.Equal(t, "Bearer admin-token", be.matching(http.MethodGet, "/api/products")[0].Authorization)
}

func TestCreateFailure_AlertsKeepsDraftNoRefetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []catalog.Product{})
	})
	mux.HandleFunc("POST /api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "db down"})
	})
	store := fileStore(t)
	require.NoError(t, store.Save(session.Session{Token: "admin-token", Role: session.RoleAdmin}))
	a, renderer, be := startApp(t, mux, store)
	require.Eventually(t, func() bool { return len(be.matching(http.MethodGet, "/api/products")) == 1 }, waitFor, tick)

	draft := catalog.Draft{Name: "Lamp", Description: "Desk", Price: "12.5", Quantity: "3"}
	require.NoError(t, a.Dispatch(state.Event{Type: state.EventUISubmitProduct, Payload: state.DraftPayload{Draft: draft}}))

	require.Eventually(t, func() bool { return len(renderer.alertList()) == 1 }, waitFor, tick)
	assert.Contains(t, renderer.alertList()[0], "Failed to create product")
	assert.Equal(t, draft, renderer.last().Form.Draft)
	assert.Len(t, be.matching(http.MethodPost, "/api/products"), 1)
	assert.Len(t, be.matching(http.MethodGet, "/api/products"), 1)
}

func TestLoginFailure_ShowsServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
	})
	store := fileStore(t)
	a, renderer, _ := startApp(t, mux, store)

	require.NoError(t, a.Dispatch(credentialsEvent(state.EventUIClickLogin, "u", "p", session.RoleUser)))

	require.Eventually(t, func() bool { return len(renderer.alertList()) == 1 }, waitFor, tick)
	assert.Equal(t, "Login failed: Bad credentials", renderer.alertList()[0])
	v := renderer.last()
	assert.Equal(t, view.PageAuth, v.Page)
	assert.Equal(t, "u", v.Auth.Username)
	stored, err := store.Load()
	require.NoError(t, err)
	assert.False(t, stored.Authenticated())
}

func TestEndToEnd_WithMockAPI(t *testing.T) {
	cfg := mockapi.DefaultConfig()
	db, err := mockapi.OpenDB(cfg.Database)
	require.NoError(t, err)
	mstore, err := mockapi.NewStore(db)
	require.NoError(t, err)
	store := fileStore(t)
	a, renderer, be := startApp(t, mockapi.New(cfg, mstore, logging.Discard()).Handler(), store)

	require.NoError(t, a.Dispatch(credentialsEvent(state.EventUIClickRegister, "admin", "secret", session.RoleAdmin)))
	require.Eventually(t, func() bool { return renderer.last().Page == view.PageProducts }, waitFor, tick)
	stored, err := store.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Token)
	assert.Equal(t, session.RoleNone, stored.Role)

	require.NoError(t, a.Dispatch(state.Event{Type: state.EventUIClickLogout}))
	require.Eventually(t, func() bool { return renderer.last().Page == view.PageAuth }, waitFor, tick)

	require.NoError(t, a.Dispatch(credentialsEvent(state.EventUIClickLogin, "admin", "secret", session.RoleUser)))
	require.Eventually(t, func() bool { return renderer.last().Page == view.PageProducts }, waitFor, tick)

	draft := catalog.Draft{Name: "Lamp", Description: "Desk", Price: "12.5", Quantity: "3"}
	require.NoError(t, a.Dispatch(state.Event{Type: state.EventUISubmitProduct, Payload: state.DraftPayload{Draft: draft}}))
	require.Eventually(t, func() bool { return len(renderer.last().Items) == 1 }, waitFor, tick)
	item := renderer.last().Items[0]
	assert.Equal(t, "Lamp", item.Title)
	assert.Equal(t, "Price: $12.5 | Quantity: 3", item.Summary)
	assert.True(t, item.ShowDelete)
	assert.Equal(t, catalog.Draft{}, renderer.last().Form.Draft)

	require.NoError(t, a.Dispatch(state.Event{Type: state.EventUIClickDelete, Payload: state.DeletePayload{ID: item.Product.ID}}))
	require.Eventually(t, func() bool {
		return len(renderer.last().Items) == 0 && len(be.matching(http.MethodDelete, "/api/products/"+strconv.FormatInt(item.Product.ID, 10))) == 1
	}, waitFor, tick)
	assert.Empty(t, renderer.alertList())
}

func TestNewWithDeps_Validates(t *testing.T) {
	_, err := NewWithDeps(nil, logging.Discard(), Deps{})
	assert.Error(t, err)
	_, err = NewWithDeps(&config.Config{APIBaseURL: "http://localhost/api"}, logging.Discard(), Deps{Store: fileStore(t)})
	assert.Error(t, err)
}

func TestRequestTimeout_FailsHungFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(waitFor):
		}
	})
	store := fileStore(t)
	require.NoError(t, store.Save(session.Session{Token: "tok", Role: session.RoleUser}))

	_, renderer, _ := startAppWithConfig(t, mux, store, config.Config{RequestTimeout: 50 * time.Millisecond})

	require.Eventually(t, func() bool { return len(renderer.alertList()) == 1 }, waitFor, tick)
	assert.Equal(t, state.MsgFetchFailed, renderer.alertList()[0])
}
