package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"

	"panscan/internal/services"
)

// objectClient is the slice of the Cloud Storage client panscan uses.
type objectClient interface {
	NewWriter(ctx context.Context, bucket, object string) io.WriteCloser
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	Close() error
}

type cloudClient struct {
	client *gcs.Client
}

func (c cloudClient) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "image/jpeg"
	return w
}

func (c cloudClient) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return c.client.Bucket(bucket).Object(object).NewReader(ctx)
}

func (c cloudClient) Close() error { return c.client.Close() }

// newObjectClient connects with application default credentials.
// STORAGE_EMULATOR_HOST is honoured by the client library.
var newObjectClient = func(ctx context.Context) (objectClient, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return cloudClient{client: client}, nil
}

// ParseGCSURI splits gs://bucket/object. The object part may be empty.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("%q is not a gs:// URI", uri)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%q names no bucket", uri)
	}
	return bucket, strings.Trim(object, "/"), nil
}

// IsGCSURI reports whether value is a gs:// location.
func IsGCSURI(value string) bool {
	scheme, ok := uriScheme(value)
	return ok && scheme == "gs"
}

// GCSStore uploads JPEG objects beneath a gs:// prefix.
type GCSStore struct {
	client  objectClient
	bucket  string
	prefix  string
	quality int
}

// NewGCSStore connects to Cloud Storage for the given gs://bucket/prefix.
func NewGCSStore(ctx context.Context, uri string, quality int) (*GCSStore, error) {
	if quality < 1 || quality > 100 {
		return nil, services.Wrap(services.ErrValidation, "storage", "open", fmt.Sprintf("jpeg quality %d outside 1..100", quality), nil)
	}
	bucket, prefix, err := ParseGCSURI(uri)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "storage", "open", "parse output prefix", err)
	}
	client, err := newObjectClient(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "storage", "open", "connect to cloud storage", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix, quality: quality}, nil
}

// Put encodes img as JPEG and uploads it to prefix/key. The object becomes
// visible only when the upload completes.
func (s *GCSStore) Put(ctx context.Context, img image.Image, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	object := path.Join(s.prefix, clean)
	w := s.client.NewWriter(ctx, s.bucket, object)
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: s.quality}); err != nil {
		_ = w.Close()
		return "", services.Wrap(services.ErrExternalTool, "storage", "put", "encode "+key, err)
	}
	if err := w.Close(); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "storage", "put", "upload "+key, err)
	}
	return "gs://" + s.bucket + "/" + object, nil
}

// Close releases the client connection.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// FetchObject downloads a gs:// object into dir and returns the local path.
func FetchObject(ctx context.Context, uri, dir string) (string, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil || object == "" {
		if err == nil {
			err = errors.New("no object name")
		}
		return "", services.Wrap(services.ErrValidation, "storage", "fetch", "parse video uri", err)
	}
	client, err := newObjectClient(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "storage", "fetch", "connect to cloud storage", err)
	}
	defer client.Close()

	r, err := client.NewReader(ctx, bucket, object)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return "", services.Wrap(services.ErrNotFound, "storage", "fetch", uri, err)
		}
		return "", services.Wrap(services.ErrExternalTool, "storage", "fetch", uri, err)
	}
	defer r.Close()

	dest := filepath.Join(dir, path.Base(object))
	f, err := os.Create(dest)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "storage", "fetch", "create local copy", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", services.Wrap(services.ErrExternalTool, "storage", "fetch", "download "+uri, err)
	}
	if err := f.Close(); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "storage", "fetch", "close local copy", err)
	}
	return dest, nil
}
