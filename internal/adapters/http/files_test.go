package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newFileRouter(dataRoot string) http.Handler {
	return NewRouter(&stubAnswerService{}, &stubSearchService{}, nil, nil, RouterConfig{
		DataRoot: dataRoot,
	}).Handler()
}

func getFile(handler http.Handler, relative string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/files/view?path="+url.QueryEscape(relative), nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestViewFileServesPDFInline(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "montmirail", "dce"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "%PDF-1.4 extrait"
	if err := os.WriteFile(filepath.Join(root, "montmirail", "dce", "cctp.pdf"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	handler := newFileRouter(root)

	res := getFile(handler, "montmirail/dce/cctp.pdf")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if ct := res.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := res.Header().Get("Content-Disposition"); cd != `inline; filename="cctp.pdf"` {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if res.Body.String() != content {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestViewFileUnknownTypeIsAttachment(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "dump.bin"), []byte{0x00, 0x01}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	handler := newFileRouter(root)

	res := getFile(handler, "dump.bin")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if cd := res.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Fatalf("expected attachment disposition, got %q", cd)
	}
}

func TestViewFileRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	secret := filepath.Join(filepath.Dir(root), "secret.txt")
	if err := os.WriteFile(secret, []byte("dehors"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	handler := newFileRouter(root)

	for _, attempt := range []string{"../secret.txt", "a/../../secret.txt", "/../secret.txt"} {
		res := getFile(handler, attempt)
		if res.Code != http.StatusNotFound {
			t.Fatalf("traversal %q must 404, got %d", attempt, res.Code)
		}
		if strings.Contains(res.Body.String(), "dehors") {
			t.Fatalf("traversal %q leaked file content", attempt)
		}
	}
}

func TestViewFileMissing(t *testing.T) {
	handler := newFileRouter(t.TempDir())

	if res := getFile(handler, "absent.pdf"); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestViewFileRequiresPath(t *testing.T) {
	handler := newFileRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/files/view", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
