package permission

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"change-approval/internal/domain/apperr"
	domain "change-approval/internal/domain/permission"
	"change-approval/internal/domain/sheet"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL = 300 * time.Second
	cacheKey   = "permissions:directory"
)

// KV is the expiring key-value store holding the encoded directory.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache serves the permission directory, rebuilding it from the
// permissions sheet at most once per TTL.
type Cache struct {
	book      sheet.Workbook
	sheetName string
	kv        KV
	ttl       time.Duration
	log       logrus.FieldLogger
	group     singleflight.Group
}

func NewCache(book sheet.Workbook, sheetName string, kv KV, ttl time.Duration, log logrus.FieldLogger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{book: book, sheetName: sheetName, kv: kv, ttl: ttl, log: log}
}

func (c *Cache) Directory(ctx context.Context) (*domain.Directory, error) {
	raw, ok, err := c.kv.Get(ctx, cacheKey)
	if err != nil {
		// a broken cache must not block the workflow; fall through to the sheet
		c.log.WithError(err).Warn("permission cache read failed")
	}
	if ok {
		var d domain.Directory
		if err := json.Unmarshal(raw, &d); err == nil {
			return &d, nil
		}
		c.log.Warn("permission cache entry undecodable, rebuilding")
	}

	// the rebuild is shared by every coalesced caller
	rctx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(cacheKey, func() (any, error) { return c.rebuild(rctx) })
	if err != nil {
		return nil, err
	}
	return v.(*domain.Directory), nil
}

func (c *Cache) rebuild(ctx context.Context) (*domain.Directory, error) {
	sh, err := c.book.Sheet(ctx, c.sheetName)
	if errors.Is(err, sheet.ErrSheetNotFound) {
		return nil, apperr.Configuration("permissions sheet %q not found", c.sheetName)
	}
	if err != nil {
		return nil, apperr.External(err, "open permissions sheet")
	}
	last, err := sh.LastRowIndex(ctx)
	if err != nil {
		return nil, apperr.External(err, "read permissions sheet")
	}

	d := domain.NewDirectory()
	if last > sheet.HeaderRowIndex {
		rows, err := sh.ReadRange(ctx, sheet.HeaderRowIndex+1, 1, last-sheet.HeaderRowIndex, domain.Width)
		if err != nil {
			return nil, apperr.External(err, "read permissions sheet")
		}
		for _, r := range rows {
			r = sheet.Pad(r, domain.Width)
			d.Add(r[domain.ColApplicantName-1], r[domain.ColApplicantEmail-1],
				r[domain.ColApproverName-1], r[domain.ColApproverEmail-1])
		}
	}

	if raw, err := json.Marshal(d); err == nil {
		if err := c.kv.Set(ctx, cacheKey, raw, c.ttl); err != nil {
			c.log.WithError(err).Warn("permission cache write failed")
		}
	}
	c.log.WithFields(logrus.Fields{"users": len(d.Users), "approvers": len(d.Approvers)}).Debug("permission directory rebuilt")
	return d, nil
}

// Invalidate drops the cached directory so the next lookup rereads the sheet.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.kv.Delete(ctx, cacheKey)
}

// IsApprover reports false for blank or unknown emails.
func (c *Cache) IsApprover(ctx context.Context, email string) (bool, error) {
	d, err := c.Directory(ctx)
	if err != nil {
		return false, err
	}
	return d.IsApprover(email), nil
}

func (c *Cache) ListApprovers(ctx context.Context) ([]string, error) {
	d, err := c.Directory(ctx)
	if err != nil {
		return nil, err
	}
	return d.ListApprovers(), nil
}
