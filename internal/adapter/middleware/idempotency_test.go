package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"change-approval/internal/logging"
	"change-approval/pkg/clock"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

var testNow = time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC)

const testReqID = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	m := NewIdempotency(rdb, ttl, clock.NewFake(testNow), logging.Discard())
	e.Use(m.Middleware)
	e.POST("/applications", handler)
	e.GET("/applications", handler)
	return e
}

func headers(user string) map[string]string {
	return map[string]string{
		HeaderRequestID: testReqID,
		HeaderRequestAt: testNow.Format(time.RFC3339),
		HeaderUserEmail: user,
	}
}

func doReq(t *testing.T, e *echo.Echo, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func counting(code int) (echo.HandlerFunc, *int) {
	calls := 0
	return func(c echo.Context) error {
		calls++
		return c.JSON(code, map[string]int{"call": calls})
	}, &calls
}

func Test_BypassOnGET_NoHeadersRequired(t *testing.T) {
	_, rdb := newMiniRedis(t)
	h, _ := counting(http.StatusOK)
	rec := doReq(t, setupEcho(rdb, time.Minute, h), http.MethodGet, "/applications", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func Test_InvalidHeadersRefused(t *testing.T) {
	_, rdb := newMiniRedis(t)
	h, calls := counting(http.StatusCreated)
	e := setupEcho(rdb, time.Minute, h)

	hdr := headers("bob@x.com")
	hdr[HeaderRequestAt] = testNow.Add(-maxClockSkew - time.Minute).Format(time.RFC3339)
	rec := doReq(t, e, http.MethodPost, "/applications", `{}`, hdr)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "too skewed") {
		t.Fatalf("skewed => want 400, got %d %s", rec.Code, rec.Body.String())
	}
	rec = doReq(t, e, http.MethodPost, "/applications", `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("no headers => want 400, got %d", rec.Code)
	}
	if *calls != 0 {
		t.Fatalf("handler ran %d times for refused requests", *calls)
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	_, rdb := newMiniRedis(t)
	h, calls := counting(http.StatusCreated)
	e := setupEcho(rdb, 2*time.Minute, h)

	body := `{"asset_name":"Core switch"}`
	rec1 := doReq(t, e, http.MethodPost, "/applications", body, headers("bob@x.com"))
	if rec1.Code != http.StatusCreated || rec1.Header().Get(HeaderReplayed) != "" {
		t.Fatalf("first request => %d replayed=%q", rec1.Code, rec1.Header().Get(HeaderReplayed))
	}
	rec2 := doReq(t, e, http.MethodPost, "/applications", body, headers("bob@x.com"))
	if rec2.Code != http.StatusCreated || rec2.Header().Get(HeaderReplayed) != "true" {
		t.Fatalf("replay => %d replayed=%q", rec2.Code, rec2.Header().Get(HeaderReplayed))
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if !strings.HasPrefix(rec2.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		t.Fatalf("replay content type = %q", rec2.Header().Get(echo.HeaderContentType))
	}
	if *calls != 1 {
		t.Fatalf("handler calls = %d, want 1", *calls)
	}
}

func Test_ClientErrorsAreReplayed(t *testing.T) {
	_, rdb := newMiniRedis(t)
	h, calls := counting(http.StatusUnprocessableEntity)
	e := setupEcho(rdb, time.Minute, h)

	for i := 0; i < 2; i++ {
		rec := doReq(t, e, http.MethodPost, "/applications", `{}`, headers("bob@x.com"))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("attempt %d => want 422, got %d", i, rec.Code)
		}
	}
	if *calls != 1 {
		t.Fatalf("handler calls = %d, want 1", *calls)
	}
}

func Test_ServerErrorsReleaseTheRequestID(t *testing.T) {
	_, rdb := newMiniRedis(t)
	code := http.StatusBadGateway
	calls := 0
	e := setupEcho(rdb, time.Minute, func(c echo.Context) error {
		calls++
		return c.JSON(code, map[string]int{"call": calls})
	})

	rec := doReq(t, e, http.MethodPost, "/applications", `{}`, headers("bob@x.com"))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("first => want 502, got %d", rec.Code)
	}
	key := buildKey(http.MethodPost, "/applications", "bob@x.com", testReqID)
	if n := rdb.Exists(context.Background(), key).Val(); n != 0 {
		t.Fatal("claim kept after server error")
	}

	code = http.StatusOK
	rec = doReq(t, e, http.MethodPost, "/applications", `{}`, headers("bob@x.com"))
	if rec.Code != http.StatusOK || calls != 2 {
		t.Fatalf("retry => %d after %d calls", rec.Code, calls)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	_, rdb := newMiniRedis(t)
	h, calls := counting(http.StatusCreated)
	e := setupEcho(rdb, 2*time.Minute, h)

	body := `{"x":1}`
	key := buildKey(http.MethodPost, "/applications", "bob@x.com", testReqID)
	s := &entryStore{rdb: rdb}
	if ok, err := s.claim(context.Background(), key, entry{InProgress: true, BodySHA256: bodyHash([]byte(body))}); err != nil || !ok {
		t.Fatalf("seed claim failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, "/applications", body, headers("bob@x.com"))
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "in progress") {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	if *calls != 0 {
		t.Fatal("handler ran while another attempt held the claim")
	}
}

func Test_Conflict_When_SameReqID_DifferentBody(t *testing.T) {
	_, rdb := newMiniRedis(t)
	h, _ := counting(http.StatusCreated)
	e := setupEcho(rdb, 2*time.Minute, h)

	if rec := doReq(t, e, http.MethodPost, "/applications", `{"x":1}`, headers("bob@x.com")); rec.Code != http.StatusCreated {
		t.Fatalf("first => want 201, got %d", rec.Code)
	}
	rec := doReq(t, e, http.MethodPost, "/applications", `{"x":2}`, headers("bob@x.com"))
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "different body") {
		t.Fatalf("different body same reqID => want 409, got %d %s", rec.Code, rec.Body.String())
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	h, calls := counting(http.StatusCreated)
	e := setupEcho(rdb, time.Minute, h)

	rec := doReq(t, e, http.MethodPost, "/applications", `{}`, headers("bob@x.com"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
	if *calls != 0 {
		t.Fatal("handler ran without a claim")
	}
}

func Test_SameRequestID_DifferentUsers_AreIndependent(t *testing.T) {
	_, rdb := newMiniRedis(t)
	h, calls := counting(http.StatusCreated)
	e := setupEcho(rdb, time.Minute, h)

	for _, user := range []string{"alice@x.com", "BOB@x.com", "bob@x.com"} {
		rec := doReq(t, e, http.MethodPost, "/applications", `{}`, headers(user))
		if rec.Code != http.StatusCreated {
			t.Fatalf("%s => want 201, got %d", user, rec.Code)
		}
	}
	// emails are case-insensitive, so the third request replays the second
	if *calls != 2 {
		t.Fatalf("handler calls = %d, want 2", *calls)
	}
}

func Test_IdempotencyMiddleware_WallClock(t *testing.T) {
	_, rdb := newMiniRedis(t)
	e := echo.New()
	e.Use(IdempotencyMiddleware(rdb, time.Minute, logging.Discard()))
	e.POST("/applications", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/applications", bytes.NewReader(nil))
	req.Header.Set(HeaderRequestID, testReqID)
	req.Header.Set(HeaderRequestAt, time.Now().UTC().Format(time.RFC3339))
	req.Header.Set(HeaderUserEmail, "bob@x.com")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", rec.Code)
	}
}
