package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"change-approval/pkg/clock"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderRequestAt = "X-Request-At"
	HeaderUserEmail = "X-User-Email"
	// HeaderReplayed is set on responses served from the idempotency store.
	HeaderReplayed = "Idempotent-Replayed"
)

const (
	// claimTTL bounds how long a crashed handler can keep a request id busy.
	claimTTL = 60 * time.Second
	// Allowed client/server clock skew for X-Request-At.
	maxClockSkew = 10 * time.Minute
	storeTimeout = 2 * time.Second
)

// Idempotency makes the mutating workflow routes safe to retry. A request is
// identified by method, route, acting user and X-Request-Id; the first
// completed response is replayed for repeats with the same body. Server
// errors are not kept so the client may retry them.
type Idempotency struct {
	store *entryStore
	ttl   time.Duration
	clock clock.Clock
	log   logrus.FieldLogger
}

func NewIdempotency(rdb *redis.Client, ttl time.Duration, clk clock.Clock, log logrus.FieldLogger) *Idempotency {
	if clk == nil {
		clk = clock.Real()
	}
	return &Idempotency{store: &entryStore{rdb: rdb}, ttl: ttl, clock: clk, log: log}
}

// IdempotencyMiddleware guards every mutating route it wraps, on the wall clock.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) echo.MiddlewareFunc {
	return NewIdempotency(rdb, ttl, clock.Real(), log).Middleware
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }

func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}

func (r *respRecorder) WriteHeader(code int) { r.code = code; r.w.WriteHeader(code) }

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func (m *Idempotency) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		switch req.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return next(c)
		}

		now := m.clock.Now().UTC()
		meta, msg := readHeaders(req.Header, now)
		if msg != "" {
			return badRequest(c, msg)
		}

		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		meta.BodySHA256 = bodyHash(body)
		meta.CreatedAt = now

		key := buildKey(req.Method, c.Path(), meta.User, meta.RequestID)
		ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
		defer cancel()

		claimed, err := m.store.claim(ctx, key, meta)
		if err != nil {
			m.log.WithError(err).WithField("key", key).Error("idempotency store unavailable")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
		}
		if !claimed {
			return m.repeat(ctx, c, key, meta.BodySHA256)
		}

		rec := &respRecorder{w: c.Response().Writer, code: http.StatusOK}
		c.Response().Writer = rec
		if err := next(c); err != nil {
			c.Error(err)
		}

		// the request context may be gone by now
		ctx, cancel = context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		entry := logrus.Fields{"key": key, "status": rec.code}
		if rec.code >= http.StatusInternalServerError {
			if err := m.store.release(ctx, key); err != nil {
				m.log.WithError(err).WithFields(entry).Warn("idempotency claim not released")
			}
			return nil
		}
		meta.InProgress = false
		meta.Code = rec.code
		meta.ContentType = rec.Header().Get(echo.HeaderContentType)
		meta.Body = rec.buf.Bytes()
		if err := m.store.finish(ctx, key, meta, m.ttl); err != nil {
			m.log.WithError(err).WithFields(entry).Warn("idempotency entry not saved")
		}
		return nil
	}
}

// repeat answers a request whose id was already claimed.
func (m *Idempotency) repeat(ctx context.Context, c echo.Context, key, bodySHA string) error {
	cur, err := m.store.load(ctx, key)
	if err != nil {
		m.log.WithError(err).WithField("key", key).Warn("idempotency entry unreadable")
	}
	if cur.BodySHA256 != "" && cur.BodySHA256 != bodySHA {
		return c.JSON(http.StatusConflict, map[string]string{"error": "X-Request-Id reused with different body"})
	}
	if cur.InProgress || cur.Code == 0 {
		return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
	}
	ct := cur.ContentType
	if ct == "" {
		ct = echo.MIMEApplicationJSON
	}
	c.Response().Header().Set(HeaderReplayed, "true")
	return c.Blob(cur.Code, ct, cur.Body)
}
