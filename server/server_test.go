package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/xhad/newsbrief/internal/mocks"
	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/pkg/logging"
	"github.com/xhad/newsbrief/pkg/store"
	"github.com/xhad/newsbrief/server"
)

func notFound() error {
	return fmt.Errorf("store.ArticleStore.GetArticle: %w", store.ErrNotFound)
}

func newServer(t *testing.T) (*mocks.MockQueryStore, http.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockQueryStore(ctrl)
	srv := server.New(st, server.Config{RelatedK: 3, Logger: logging.Discard()})
	return st, srv.Handler()
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func ptr(s string) *string { return &s }

func TestHealth(t *testing.T) {
	_, h := newServer(t)

	rec := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	_, h := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestListArticles(t *testing.T) {
	st, h := newServer(t)
	st.EXPECT().ListArticles(gomock.Any(), 10, 5).
		Return([]models.Article{{ID: 11, Title: "A", URL: "https://a"}}, nil)

	rec := do(h, http.MethodGet, "/articles?skip=10&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(11), got[0].ID)
}

func TestListArticles_Defaults(t *testing.T) {
	st, h := newServer(t)
	st.EXPECT().ListArticles(gomock.Any(), 0, 100).Return(nil, nil)

	rec := do(h, http.MethodGet, "/articles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListArticles_BadLimit(t *testing.T) {
	_, h := newServer(t)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/articles?limit=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/articles?skip=x", "").Code)
}

func TestGetArticle(t *testing.T) {
	st, h := newServer(t)
	st.EXPECT().GetArticle(gomock.Any(), int64(3)).
		Return(models.Article{ID: 3, Title: "Zprávy", SummarySimple: ptr("shrnutí")}, nil)
	st.EXPECT().GetArticle(gomock.Any(), int64(4)).Return(models.Article{}, notFound())

	rec := do(h, http.MethodGet, "/articles/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"summary_simple":"shrnutí"`)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/articles/4", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/articles/abc", "").Code)
}

func TestCreateArticle(t *testing.T) {
	st, h := newServer(t)
	st.EXPECT().CreateArticle(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a models.Article) (models.Article, error) {
			assert.Equal(t, "Nový článek", a.Title)
			assert.Equal(t, "https://news.cz/new", a.URL)
			a.ID = 50
			return a, nil
		})

	rec := do(h, http.MethodPost, "/articles", `{"title":"Nový článek","url":"https://news.cz/new","content":"text"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":50`)
}

func TestCreateArticle_Invalid(t *testing.T) {
	_, h := newServer(t)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/articles", `{"title":"","url":"https://x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/articles", `{"title":"t","url":"DIGEST"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/articles", `{"title":"t","extra":1}`).Code)
}

func TestUpdateArticle_Partial(t *testing.T) {
	st, h := newServer(t)
	st.EXPECT().GetArticle(gomock.Any(), int64(7)).
		Return(models.Article{ID: 7, Title: "Old", URL: "https://a", Content: ptr("body")}, nil)
	st.EXPECT().UpdateArticle(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a models.Article) error {
			assert.Equal(t, "New", a.Title)
			assert.Equal(t, "body", *a.Content)
			assert.Equal(t, "s", *a.SummarySimple)
			return nil
		})

	rec := do(h, http.MethodPut, "/articles/7", `{"title":"New","summary_simple":"s"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteArticle(t *testing.T) {
	st, h := newServer(t)
	st.EXPECT().DeleteArticle(gomock.Any(), int64(8)).Return(nil)
	st.EXPECT().DeleteArticle(gomock.Any(), int64(9)).Return(notFound())

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/articles/8", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/articles/9", "").Code)
}

func TestRelated(t *testing.T) {
	st, h := newServer(t)
	st.EXPECT().Related(gomock.Any(), int64(1), 3).
		Return([]models.Article{{ID: 2}, {ID: 5}}, nil)
	st.EXPECT().Related(gomock.Any(), int64(1), 10).Return(nil, nil)

	rec := do(h, http.MethodGet, "/articles/1/related", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	rec = do(h, http.MethodGet, "/articles/1/related?k=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestDigest(t *testing.T) {
	st, h := newServer(t)
	gomock.InOrder(
		st.EXPECT().GetDigest(gomock.Any()).Return(models.Article{}, notFound()),
		st.EXPECT().GetDigest(gomock.Any()).
			Return(models.Article{ID: 1, URL: models.DigestURL, Title: "Přehled zpráv - 2025-03-14 08:00"}, nil),
	)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/digest", "").Code)

	rec := do(h, http.MethodGet, "/digest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"url":"DIGEST"`)
}

func TestStoreFailureIs500(t *testing.T) {
	st, h := newServer(t)
	st.EXPECT().GetDigest(gomock.Any()).Return(models.Article{}, errors.New("connection refused"))

	rec := do(h, http.MethodGet, "/digest", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestWebSocket(t *testing.T) {
	st, h := newServer(t)
	ts := httptest.NewServer(h)
	defer ts.Close()

	st.EXPECT().GetDigest(gomock.Any()).
		Return(models.Article{ID: 1, URL: models.DigestURL, Title: "Přehled"}, nil)
	st.EXPECT().Related(gomock.Any(), int64(4), 3).Return([]models.Article{{ID: 6}}, nil)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var reply server.Message

	require.NoError(t, conn.WriteJSON(server.Message{Type: "digest"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "digest", reply.Type)
	assert.Equal(t, "Přehled", reply.Content)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "related", Content: "4"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "related", reply.Type)
	assert.Equal(t, "4", reply.Content)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "related", Content: "x"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "chat"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
}
