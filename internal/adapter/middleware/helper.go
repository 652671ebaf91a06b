package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

func buildKey(method, path, user, requestID string) string {
	return "idemp:cr:" + strings.ToLower(method) + ":" + path + ":" + user + ":" + requestID
}

var (
	reUUID  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-5][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
	reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)
	reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)
)

// validReqID accepts a lowercase UUID or 32 lowercase hex characters.
func validReqID(id string) bool {
	return reUUID.MatchString(id) || reHex32.MatchString(id)
}

// readHeaders validates the idempotency headers against now. A non-empty
// message means the request must be refused.
func readHeaders(h http.Header, now time.Time) (entry, string) {
	reqID := strings.TrimSpace(h.Get(HeaderRequestID))
	switch {
	case reqID == "":
		return entry{}, "missing " + HeaderRequestID
	case !validReqID(reqID):
		return entry{}, "invalid " + HeaderRequestID + " format"
	}

	at, err := parseRequestAt(h.Get(HeaderRequestAt))
	if err != nil {
		return entry{}, err.Error()
	}
	if at.Before(now.Add(-maxClockSkew)) || at.After(now.Add(maxClockSkew)) {
		return entry{}, HeaderRequestAt + " too skewed"
	}

	user := strings.ToLower(strings.TrimSpace(h.Get(HeaderUserEmail)))
	switch {
	case user == "":
		return entry{}, "missing " + HeaderUserEmail
	case !reEmail.MatchString(user):
		return entry{}, "invalid " + HeaderUserEmail
	}
	return entry{InProgress: true, RequestID: reqID, RequestAtMS: at.UnixMilli(), User: user}, ""
}

// parseRequestAt accepts epoch seconds, epoch milliseconds, or RFC3339
// with an explicit zone. Zone-less local timestamps are rejected.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing " + HeaderRequestAt)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New(HeaderRequestAt + " must be epoch (s/ms) or RFC3339 with timezone")
}
