package writerbackends_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	writerbackends "layercast/writerBackends"
)

func TestDirectServeWritesFile(t *testing.T) {
	base := t.TempDir()
	info := map[string]string{
		"baseDir":  base,
		"folder":   "runs/abc",
		"filename": "clip.mp4",
	}
	if err := writerbackends.WriteVideo(context.Background(), info, strings.NewReader("video-bytes"), writerbackends.BackendDirectServe); err != nil {
		t.Fatalf("WriteVideo failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(base, "runs", "abc", "clip.mp4"))
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("published content = %q", data)
	}
	entries, _ := os.ReadDir(filepath.Join(base, "runs", "abc"))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestDirectServeRejectsEscape(t *testing.T) {
	base := t.TempDir()
	info := map[string]string{
		"baseDir":  base,
		"folder":   "../../etc",
		"filename": "x.mp4",
	}
	if err := writerbackends.UploadToDirectServe(context.Background(), info, strings.NewReader("x")); err == nil {
		t.Errorf("expected error for folder outside serve directory")
	}
}

func TestDirectServeHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	info := map[string]string{"baseDir": t.TempDir(), "filename": "x.mp4"}
	if err := writerbackends.UploadToDirectServe(ctx, info, strings.NewReader("data")); err == nil {
		t.Errorf("expected error on cancelled context")
	}
}

func TestUnknownBackend(t *testing.T) {
	err := writerbackends.WriteVideo(context.Background(), map[string]string{}, strings.NewReader(""), "ftp")
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("expected unknown backend error, got %v", err)
	}
}

func TestMissingCredentials(t *testing.T) {
	ctx := context.Background()
	if err := writerbackends.UploadToSFTPWithCreds(ctx, map[string]string{"host": "h"}, strings.NewReader("")); err == nil {
		t.Errorf("sftp accepted incomplete accessInfo")
	}
	if err := writerbackends.UploadToS3WithCreds(ctx, map[string]string{"region": "us-east-1"}, strings.NewReader("")); err == nil {
		t.Errorf("s3 accepted missing bucket")
	}
	if err := writerbackends.UploadToGCSWithJSON(ctx, map[string]string{"bucket": "b", "filename": "f"}, strings.NewReader("")); err == nil {
		t.Errorf("gcs accepted missing credentials")
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a.mp4": "video/mp4",
		"b":     "video/mp4",
		"c.mov": "video/quicktime",
		"d.mkv": "video/x-matroska",
	}
	for name, want := range cases {
		if got := writerbackends.ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
