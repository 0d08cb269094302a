package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/akashdesaidev/Threadspire/internal/config"
	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/infra/cache"
	"github.com/akashdesaidev/Threadspire/internal/infra/memstore"
	"github.com/akashdesaidev/Threadspire/internal/present/rest/middleware"
	"github.com/akashdesaidev/Threadspire/internal/service"
	"github.com/akashdesaidev/Threadspire/internal/usecase"
)

type testServer struct {
	e    *echo.Echo
	auth *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	threads := memstore.NewThreadRepository()
	users := memstore.NewUserRepository()
	summaries := cache.NewMemoryCache(time.Minute)

	bookmark := usecase.NewBookmarkUsecase(threads, users, summaries)
	analytics := usecase.NewAnalyticsUsecase(threads, users, summaries)
	h := NewHandler(
		usecase.NewThreadUsecase(threads, users, summaries, bookmark),
		usecase.NewReactionUsecase(threads, summaries),
		bookmark,
		usecase.NewUserUsecase(users, analytics),
		analytics,
	)

	auth := service.NewAuthService(config.Auth{Secret: "test-secret", Issuer: "threadspire", TokenTTL: time.Hour})

	e := echo.New()
	e.Use(middleware.NewAuthMiddleware(auth).IdentifyIdentity)
	h.RegisterRoutes(e)
	return &testServer{e: e, auth: auth}
}

// do sends a JSON request as user, or anonymously when user is empty, and
// decodes the response into out when it is non-nil.
func (s *testServer) do(t *testing.T, user, method, target string, body, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		token, err := s.auth.Issue(user)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	s.e.ServeHTTP(res, req)

	if out != nil && res.Code < 300 {
		if err := json.Unmarshal(res.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v", method, target, err)
		}
	}
	return res.Code
}

func (s *testServer) register(t *testing.T, user string) {
	t.Helper()
	code := s.do(t, user, http.MethodPost, "/users", echo.Map{"name": user, "email": user + "@example.com"}, nil)
	if code != http.StatusCreated {
		t.Fatalf("register %s: expected 201 got %d", user, code)
	}
}

func (s *testServer) createThread(t *testing.T, user, status string) domain.Thread {
	t.Helper()
	var thread domain.Thread
	code := s.do(t, user, http.MethodPost, "/threads", echo.Map{
		"title":    "On gardens",
		"status":   status,
		"tags":     []string{"nature"},
		"segments": []echo.Map{{"content": "Plant early."}, {"content": "Water often."}},
	}, &thread)
	if code != http.StatusCreated {
		t.Fatalf("create thread: expected 201 got %d", code)
	}
	return thread
}

func TestThreadLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice")
	s.register(t, "bob")

	if code := s.do(t, "", http.MethodPost, "/threads", echo.Map{"title": "x"}, nil); code != http.StatusForbidden {
		t.Fatalf("expected anonymous create to be forbidden got %d", code)
	}

	draft := s.createThread(t, "alice", "draft")
	if code := s.do(t, "bob", http.MethodGet, "/threads/"+draft.ID, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected bob to be denied the draft got %d", code)
	}

	var published usecase.PublishResult
	code := s.do(t, "alice", http.MethodPut, "/threads/"+draft.ID, echo.Map{"status": "published"}, &published)
	if code != http.StatusOK || published.Draft == nil || published.Thread.ID == draft.ID {
		t.Fatalf("expected a new published thread got %d %+v", code, published)
	}

	var view usecase.ThreadView
	if code := s.do(t, "bob", http.MethodGet, "/threads/"+published.Thread.ID, nil, &view); code != http.StatusOK {
		t.Fatalf("expected bob to read the published thread got %d", code)
	}
	if view.RelatedVersions == nil || view.RelatedVersions.DraftVersion == nil || view.RelatedVersions.DraftVersion.ID != draft.ID {
		t.Fatalf("expected the draft to be surfaced got %+v", view.RelatedVersions)
	}

	var fork domain.Thread
	code = s.do(t, "bob", http.MethodPost, "/threads", echo.Map{
		"title":            "My garden",
		"status":           "published",
		"segments":         []echo.Map{{"content": "Mine."}},
		"originalThreadId": published.Thread.ID,
	}, &fork)
	if code != http.StatusCreated || fork.OriginalAuthorID == nil || *fork.OriginalAuthorID != "alice" {
		t.Fatalf("expected a fork of alice's thread got %d %+v", code, fork)
	}

	var forks threadPage
	s.do(t, "", http.MethodGet, "/threads/"+published.Thread.ID+"/forks", nil, &forks)
	if forks.Pagination.Total != 1 || forks.Threads[0].ID != fork.ID {
		t.Fatalf("expected one fork got %+v", forks)
	}

	var list threadPage
	s.do(t, "", http.MethodGet, "/threads?tags=nature&sort=forks", nil, &list)
	if len(list.Threads) == 0 || list.Threads[0].ID != published.Thread.ID {
		t.Fatalf("expected the forked thread first got %+v", list.Threads)
	}

	if code := s.do(t, "bob", http.MethodDelete, "/threads/"+published.Thread.ID, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected bob to be denied the delete got %d", code)
	}
	if code := s.do(t, "alice", http.MethodDelete, "/threads/"+published.Thread.ID, nil, nil); code != http.StatusOK {
		t.Fatalf("expected alice to delete got %d", code)
	}
	if code := s.do(t, "alice", http.MethodGet, "/threads/"+published.Thread.ID, nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected the deleted thread to be gone got %d", code)
	}
}

func TestEngagementOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice")
	s.register(t, "bob")

	thread := s.createThread(t, "alice", "published")
	segment := thread.Segments[0].ID
	reactPath := "/threads/" + thread.ID + "/segments/" + segment + "/reactions/" + url.PathEscape(string(domain.EmojiFire))

	var reacted usecase.ReactionResult
	if code := s.do(t, "bob", http.MethodPost, reactPath, nil, &reacted); code != http.StatusOK {
		t.Fatalf("expected the reaction to succeed got %d", code)
	}
	if reacted.Active == nil || *reacted.Active != domain.EmojiFire {
		t.Fatalf("expected fire to be active got %v", reacted.Active)
	}
	if code := s.do(t, "bob", http.MethodPost, "/threads/"+thread.ID+"/segments/"+segment+"/reactions/thumbs", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected an unknown emoji to be rejected got %d", code)
	}

	var bookmarked usecase.BookmarkResult
	s.do(t, "bob", http.MethodPost, "/threads/"+thread.ID+"/bookmark", nil, &bookmarked)
	if !bookmarked.Bookmarked || bookmarked.BookmarkCount != 1 {
		t.Fatalf("expected a bookmark got %+v", bookmarked)
	}

	if code := s.do(t, "bob", http.MethodPost, "/collections", echo.Map{"name": "Reading list"}, nil); code != http.StatusCreated {
		t.Fatalf("expected the collection to be created got %d", code)
	}
	if code := s.do(t, "bob", http.MethodPost, "/collections", echo.Map{"name": "Reading list"}, nil); code != http.StatusConflict {
		t.Fatalf("expected a duplicate collection conflict got %d", code)
	}
	collectionPath := "/collections/" + url.PathEscape("Reading list") + "/threads/" + thread.ID
	if code := s.do(t, "bob", http.MethodPost, collectionPath, nil, nil); code != http.StatusOK {
		t.Fatalf("expected the thread to be filed got %d", code)
	}

	var collections []usecase.CollectionView
	s.do(t, "bob", http.MethodGet, "/users/bob/collections", nil, &collections)
	if len(collections) != 1 || len(collections[0].Threads) != 1 || collections[0].Threads[0].AuthorID != "alice" {
		t.Fatalf("unexpected collections %+v", collections)
	}
	if code := s.do(t, "alice", http.MethodGet, "/users/bob/collections", nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected other users' collections to be private got %d", code)
	}

	var summary domain.Analytics
	if code := s.do(t, "alice", http.MethodGet, "/users/alice/analytics", nil, &summary); code != http.StatusOK {
		t.Fatalf("expected analytics got %d", code)
	}
	if summary.ReactionCounts.Get(domain.EmojiFire) != 1 || summary.TotalBookmarksReceived != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if code := s.do(t, "bob", http.MethodGet, "/users/alice/analytics", nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected analytics to be private got %d", code)
	}

	var activity []domain.DailyReactions
	if code := s.do(t, "alice", http.MethodGet, "/users/alice/analytics/activity", nil, &activity); code != http.StatusOK {
		t.Fatalf("expected activity with default days got %d", code)
	}
	if len(activity) != 1 || activity[0].TotalReactions != 1 {
		t.Fatalf("unexpected activity %+v", activity)
	}
	if code := s.do(t, "alice", http.MethodGet, "/users/alice/analytics/activity?days=0", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected zero days to be rejected got %d", code)
	}
	if code := s.do(t, "alice", http.MethodGet, "/users/alice/analytics/activity?days=soon", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected a malformed days value to be rejected got %d", code)
	}
}

func TestProfileOverHTTP(t *testing.T) {
	s := newTestServer(t)

	if code := s.do(t, "", http.MethodPost, "/users", echo.Map{"name": "Anon", "email": "anon@example.com"}, nil); code != http.StatusForbidden {
		t.Fatalf("expected anonymous registration to be forbidden got %d", code)
	}
	s.register(t, "alice")
	if code := s.do(t, "alice", http.MethodPost, "/users", echo.Map{"name": "Alice", "email": "other@example.com"}, nil); code != http.StatusConflict {
		t.Fatalf("expected a second registration to conflict got %d", code)
	}

	var user domain.User
	if code := s.do(t, "alice", http.MethodPut, "/users/me", echo.Map{"bio": "gardener"}, &user); code != http.StatusOK {
		t.Fatalf("expected the profile update to succeed got %d", code)
	}
	if user.Bio != "gardener" {
		t.Fatalf("expected the bio to change got %+v", user)
	}

	if code := s.do(t, "", http.MethodGet, "/users/nobody", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected a missing profile to be 404 got %d", code)
	}
	if code := s.do(t, "", http.MethodGet, "/threads?page=first", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected a malformed page to be rejected got %d", code)
	}
}

func TestInvalidTokenIsAnonymous(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/threads", bytes.NewReader([]byte(`{"title":"x"}`)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer not-a-token")
	res := httptest.NewRecorder()
	s.e.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected an invalid token to be treated as anonymous got %d", res.Code)
	}
}
