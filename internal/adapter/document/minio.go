package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"change-approval/internal/domain/document"
	"change-approval/pkg/id"

	"github.com/minio/minio-go/v7"
)

var (
	_ document.Renderer  = (*MinioRenderer)(nil)
	_ document.Discarder = (*MinioRenderer)(nil)
)

const (
	templatesPrefix   = "templates"
	documentsPrefix   = "documents"
	defaultLinkExpiry = time.Hour
	textContentType   = "text/plain; charset=utf-8"
)

// MinioRenderer keeps templates under templates/<id> and copies under
// documents/<destination>/ in one bucket. Links point at baseURL, which
// redirects to a short lived presigned URL through PresignDocument.
type MinioRenderer struct {
	client     *minio.Client
	bucket     string
	baseURL    string
	linkExpiry time.Duration
	docs       buffers
}

func NewMinioRenderer(client *minio.Client, bucket, baseURL string, linkExpiry time.Duration) *MinioRenderer {
	if linkExpiry <= 0 {
		linkExpiry = defaultLinkExpiry
	}
	return &MinioRenderer{
		client:     client,
		bucket:     bucket,
		baseURL:    strings.TrimRight(baseURL, "/"),
		linkExpiry: linkExpiry,
	}
}

func templateKey(templateID string) string {
	return path.Join(templatesPrefix, path.Clean("/"+templateID)[1:])
}

func copyKey(destination, name string) string {
	return path.Join(documentsPrefix, cleanRel(destination), name)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (r *MinioRenderer) CopyTemplate(ctx context.Context, templateID, title, destination string) (document.Handle, error) {
	src := templateKey(templateID)
	if _, err := r.client.StatObject(ctx, r.bucket, src, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return document.Handle{}, fmt.Errorf("%w: %s", document.ErrTemplateNotFound, templateID)
		}
		return document.Handle{}, fmt.Errorf("stat template: %w", err)
	}
	if strings.TrimSpace(destination) == "" {
		return document.Handle{}, fmt.Errorf("%w: blank destination", document.ErrDestinationNotFound)
	}

	key := copyKey(destination, fileName(title)+"-"+id.Suffix()+path.Ext(templateID))
	_, err := r.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: r.bucket, Object: key},
		minio.CopySrcOptions{Bucket: r.bucket, Object: src},
	)
	if err != nil {
		return document.Handle{}, fmt.Errorf("copy template: %w", err)
	}
	return document.Handle{ID: key, Title: title}, nil
}

func (r *MinioRenderer) Open(ctx context.Context, h document.Handle) (document.Handle, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, h.ID, minio.GetObjectOptions{})
	if err != nil {
		return h, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()
	body, err := io.ReadAll(obj)
	if err != nil {
		return h, fmt.Errorf("read object: %w", err)
	}
	r.docs.put(h.ID, string(body))
	return h, nil
}

func (r *MinioRenderer) ReplaceAllPlaceholders(_ context.Context, h document.Handle, values map[string]string) error {
	return r.docs.replace(h.ID, values)
}

func (r *MinioRenderer) Save(ctx context.Context, h document.Handle) error {
	text, err := r.docs.take(h.ID)
	if err != nil {
		return err
	}
	_, err = r.client.PutObject(ctx, r.bucket, h.ID, bytes.NewReader([]byte(text)), int64(len(text)),
		minio.PutObjectOptions{ContentType: textContentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// ShareableLink never expires; the presigning happens per request.
func (r *MinioRenderer) ShareableLink(_ context.Context, h document.Handle) (string, error) {
	return link(r.baseURL, strings.TrimPrefix(h.ID, documentsPrefix+"/")), nil
}

// PresignDocument returns a GET URL for documents/<name> valid for linkExpiry.
func (r *MinioRenderer) PresignDocument(ctx context.Context, name string) (string, error) {
	rel := cleanRel(name)
	if rel == "" {
		return "", fmt.Errorf("%w: blank name", document.ErrDocumentNotFound)
	}
	u, err := r.client.PresignedGetObject(ctx, r.bucket, path.Join(documentsPrefix, rel), r.linkExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

func (r *MinioRenderer) Discard(ctx context.Context, h document.Handle) error {
	r.docs.drop(h.ID)
	err := r.client.RemoveObject(ctx, r.bucket, h.ID, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
