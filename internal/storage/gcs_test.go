package storage

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	gcs "cloud.google.com/go/storage"

	"panscan/internal/services"
	"panscan/internal/testsupport"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
	closed  bool
}

type fakeWriter struct {
	bucket *fakeBucket
	key    string
	buf    bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeWriter) Close() error {
	if w.bucket.failPut != nil {
		return w.bucket.failPut
	}
	w.bucket.mu.Lock()
	defer w.bucket.mu.Unlock()
	w.bucket.objects[w.key] = w.buf.Bytes()
	return nil
}

func (b *fakeBucket) NewWriter(_ context.Context, bucket, object string) io.WriteCloser {
	return &fakeWriter{bucket: b, key: bucket + "/" + object}
}

func (b *fakeBucket) NewReader(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[bucket+"/"+object]
	if !ok {
		return nil, gcs.ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) Close() error {
	b.closed = true
	return nil
}

func useFakeBucket(t *testing.T) *fakeBucket {
	t.Helper()
	fake := &fakeBucket{objects: map[string][]byte{}}
	prev := newObjectClient
	newObjectClient = func(context.Context) (objectClient, error) { return fake, nil }
	t.Cleanup(func() { newObjectClient = prev })
	return fake
}

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := ParseGCSURI("gs://media/runs/lobby/")
	if err != nil || bucket != "media" || object != "runs/lobby" {
		t.Fatalf("got (%q, %q, %v)", bucket, object, err)
	}
	for _, bad := range []string{"gs://", "gs:///x", "s3://media/x", "/tmp/x"} {
		if _, _, err := ParseGCSURI(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestGCSOutputUploadsJPEG(t *testing.T) {
	fake := useFakeBucket(t)
	out, err := OpenOutput(context.Background(), "gs://media/runs/lobby", 90)
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}

	uri, err := out.Store.Put(context.Background(), testsupport.Scene(40, 30, 2), FrameKey(1, 12))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if want := "gs://media/runs/lobby/groups/group001/frame_0000012.jpg"; uri != want {
		t.Fatalf("uri = %q, want %q", uri, want)
	}
	data := fake.objects["media/runs/lobby/groups/group001/frame_0000012.jpg"]
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode uploaded object: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Fatalf("uploaded size %v", img.Bounds())
	}

	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fake.closed {
		t.Fatal("expected the client to be closed")
	}
}

func TestGCSPutRejectsEscapingKeyAndReportsUploadFailure(t *testing.T) {
	fake := useFakeBucket(t)
	store, err := NewGCSStore(context.Background(), "gs://media/runs", 90)
	if err != nil {
		t.Fatalf("NewGCSStore: %v", err)
	}
	img := testsupport.Scene(16, 16, 1)

	if _, err := store.Put(context.Background(), img, "../other/x.jpg"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	fake.failPut = errors.New("quota exceeded")
	if _, err := store.Put(context.Background(), img, PanoKey(1)); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if len(fake.objects) != 0 {
		t.Fatalf("expected no objects, got %d", len(fake.objects))
	}
}

func TestFetchObjectCopiesVideo(t *testing.T) {
	fake := useFakeBucket(t)
	fake.objects["media/in/lobby.mp4"] = []byte("not really a video")
	dir := t.TempDir()

	local, err := FetchObject(context.Background(), "gs://media/in/lobby.mp4", dir)
	if err != nil {
		t.Fatalf("FetchObject: %v", err)
	}
	if local != filepath.Join(dir, "lobby.mp4") {
		t.Fatalf("local path = %q", local)
	}
	got, err := os.ReadFile(local)
	if err != nil || string(got) != "not really a video" {
		t.Fatalf("local copy = (%q, %v)", got, err)
	}

	if _, err := FetchObject(context.Background(), "gs://media/in/missing.mp4", dir); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := FetchObject(context.Background(), "gs://media", dir); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for a bucket without object, got %v", err)
	}
}
