//go:build linux

package resolve

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveFileRequest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("hello world!\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var pathBuf [200]byte
	res, err := Resolve(dir, []byte("/index.html"), pathBuf[:])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer res.Release()

	if res.Outcome != FileRequest {
		t.Fatalf("Outcome = %v, want FileRequest", res.Outcome)
	}
	if res.Size != 13 {
		t.Fatalf("Size = %d, want 13", res.Size)
	}
	if string(res.Mapping) != "hello world!\n" {
		t.Fatalf("Mapping = %q, want %q", res.Mapping, "hello world!\n")
	}
}

func TestResolveEmptyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.html"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var pathBuf [200]byte
	res, err := Resolve(dir, []byte("/empty.html"), pathBuf[:])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != FileRequest || res.Size != 0 || res.Mapping != nil {
		t.Fatalf("Resolve(empty) = %+v, want FileRequest/size 0/no mapping", res)
	}
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	var pathBuf [200]byte
	res, err := Resolve(dir, []byte("/nope"), pathBuf[:])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != NotFound {
		t.Fatalf("Outcome = %v, want NotFound", res.Outcome)
	}
}

func TestResolveForbidden(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "secret.html")
	if err := os.WriteFile(p, []byte("shh"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var pathBuf [200]byte
	res, err := Resolve(dir, []byte("/secret.html"), pathBuf[:])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != Forbidden {
		t.Fatalf("Outcome = %v, want Forbidden", res.Outcome)
	}
}

func TestResolveDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	var pathBuf [200]byte
	res, err := Resolve(dir, []byte("/sub"), pathBuf[:])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != BadRequest {
		t.Fatalf("Outcome = %v, want BadRequest", res.Outcome)
	}
}

func TestBuildPathTruncatesToCap(t *testing.T) {
	buf := make([]byte, 10)
	got := BuildPath(buf, "/docroot", []byte("/longpathname"))
	if len(got) != 9 {
		t.Fatalf("len(got) = %d, want 9 (cap-1)", len(got))
	}
}
