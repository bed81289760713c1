package packs

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/HendryAvila/spikeforge/internal/catalog"
	"github.com/HendryAvila/spikeforge/internal/overrides"
)

type entry struct {
	name string
	body string
}

func buildArchive(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

var goodEntries = []entry{
	{"pack/team-api.json", `{"name": "Team API", "files": [{"path": "src/api.ts", "content": "x"}]}`},
	{"pack/team-worker.yaml", "name: Team worker\ntags: [worker]\n"},
	{"pack/README.md", "# pack"},
}

// withServer points the package at a test server for the duration of t.
func withServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	origBase, origClient := apiBase, httpClient
	apiBase, httpClient = ts.URL, ts.Client()
	t.Cleanup(func() {
		ts.Close()
		apiBase, httpClient = origBase, origClient
	})
	return ts
}

func TestExtract_DecodesAndSorts(t *testing.T) {
	defs, ignored, err := Extract(bytes.NewReader(buildArchive(t, goodEntries...)))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(defs) != 2 || defs[0].ID != "team-api" || defs[1].ID != "team-worker" {
		t.Fatalf("defs = %+v", defs)
	}
	if len(ignored) != 1 || ignored[0] != "pack/README.md" {
		t.Errorf("ignored = %v", ignored)
	}
}

func TestExtract_InvalidFailsWholeArchive(t *testing.T) {
	archive := buildArchive(t,
		entry{"a.json", `{"name": "ok"}`},
		entry{"b.json", `{"files": [{"path": "x"}]}`},
		entry{"c.yaml", "name: [unterminated"},
	)

	defs, _, err := Extract(bytes.NewReader(archive))
	var inv *InvalidError
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want *InvalidError", err)
	}
	if len(inv.Problems) != 2 {
		t.Errorf("problems = %v, want 2", inv.Problems)
	}
	if defs != nil {
		t.Errorf("defs should be nil on failure")
	}
}

func TestExtract_Duplicates(t *testing.T) {
	archive := buildArchive(t,
		entry{"one/x.json", `{"name": "x"}`},
		entry{"two/x.yaml", "name: x\n"},
	)
	_, _, err := Extract(bytes.NewReader(archive))
	if err == nil || !strings.Contains(err.Error(), "duplicates") {
		t.Fatalf("err = %v, want duplicate error", err)
	}
}

func TestExtract_NotGzip(t *testing.T) {
	if _, _, err := Extract(strings.NewReader("plain text")); err == nil {
		t.Fatal("expected gzip error")
	}
}

func TestInstall_FromURL(t *testing.T) {
	archive := buildArchive(t, goodEntries...)
	ts := withServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pack.tar.gz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	}))

	store := overrides.NewFileStore(t.TempDir())
	res, err := Install(context.Background(), ts.URL+"/pack.tar.gz", store)
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	if strings.Join(res.Installed, ",") != "team-api,team-worker" {
		t.Errorf("Installed = %v", res.Installed)
	}

	def, err := store.Load(context.Background(), "team-worker")
	if err != nil {
		t.Fatalf("installed definition not loadable: %v", err)
	}
	if def.Name != "Team worker" {
		t.Errorf("Name = %q", def.Name)
	}
}

func TestInstall_FromGitHubRelease(t *testing.T) {
	archive := buildArchive(t, goodEntries...)
	var ts *httptest.Server
	ts = withServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/spikes/releases/latest":
			_ = json.NewEncoder(w).Encode(ReleaseInfo{
				TagName: "v1.0.0",
				Assets: []Asset{
					{Name: "checksums.txt", BrowserDownloadURL: ts.URL + "/checksums.txt"},
					{Name: "spikes_1.0.0.tar.gz", BrowserDownloadURL: ts.URL + "/dl/spikes.tar.gz"},
				},
			})
		case "/dl/spikes.tar.gz":
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))

	res, err := Install(context.Background(), "acme/spikes", overrides.NewFileStore(t.TempDir()))
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	if res.Source != ts.URL+"/dl/spikes.tar.gz" || len(res.Installed) != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestInstall_InvalidWritesNothing(t *testing.T) {
	archive := buildArchive(t,
		entry{"good.json", `{"name": "fine"}`},
		entry{"bad.json", `{}`},
	)
	ts := withServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))

	store := overrides.NewFileStore(t.TempDir())
	if _, err := Install(context.Background(), ts.URL+"/p.tar.gz", store); err == nil {
		t.Fatal("expected validation failure")
	}
	ids, _ := store.List(context.Background())
	if len(ids) != 0 {
		t.Errorf("store should be untouched, has %v", ids)
	}
}

// failingStore rejects writes of one id.
type failingStore struct {
	*overrides.FileStore
	failID string
}

func (f *failingStore) Put(ctx context.Context, def *catalog.Definition) error {
	if def.ID == f.failID {
		return errors.New("disk full")
	}
	return f.FileStore.Put(ctx, def)
}

func TestInstall_WriteFailureRollsBack(t *testing.T) {
	archive := buildArchive(t, goodEntries...)
	ts := withServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	ctx := context.Background()

	files := overrides.NewFileStore(t.TempDir())
	old := &catalog.Definition{ID: "team-api", Name: "Old API", Files: []catalog.FileTemplate{{Path: "old.ts"}}}
	if err := files.Put(ctx, old); err != nil {
		t.Fatal(err)
	}
	store := &failingStore{FileStore: files, failID: "team-worker"}

	res, err := Install(ctx, ts.URL+"/p.tar.gz", store)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want the write failure", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil on failure", res)
	}

	ids, _ := files.List(ctx)
	if len(ids) != 1 || ids[0] != "team-api" {
		t.Fatalf("ids = %v, want only the original team-api", ids)
	}
	got, err := files.Load(ctx, "team-api")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Old API" {
		t.Errorf("team-api name = %q, want the replaced definition restored", got.Name)
	}
}

func TestInstall_WriteFailureDeletesNewDefinitions(t *testing.T) {
	archive := buildArchive(t, goodEntries...)
	ts := withServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	ctx := context.Background()

	files := overrides.NewFileStore(t.TempDir())
	store := &failingStore{FileStore: files, failID: "team-worker"}
	if _, err := Install(ctx, ts.URL+"/p.tar.gz", store); err == nil {
		t.Fatal("expected write failure")
	}
	if ids, _ := files.List(ctx); len(ids) != 0 {
		t.Errorf("store should be empty after rollback, has %v", ids)
	}
}

func TestInstall_Errors(t *testing.T) {
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/empty/releases/latest":
			_ = json.NewEncoder(w).Encode(ReleaseInfo{TagName: "v0.1.0"})
		case "/empty.tar.gz":
			_, _ = w.Write(buildArchive(t, entry{"notes.txt", "hi"}))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	store := overrides.NewFileStore(t.TempDir())
	ctx := context.Background()

	tests := []struct {
		name, source, want string
	}{
		{"bad source", "not-a-repo", "neither a URL"},
		{"api error", "acme/broken", "returned 500"},
		{"no asset", "acme/empty", "no .tar.gz asset"},
		{"download error", apiBase + "/missing.tar.gz", "returned 500"},
		{"no definitions", apiBase + "/empty.tar.gz", "no definition files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Install(ctx, tt.source, store)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
