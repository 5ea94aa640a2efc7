// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modcrate/modcrate/internal/config"
	"github.com/modcrate/modcrate/internal/repository"
	"github.com/modcrate/modcrate/internal/retry"
	"github.com/modcrate/modcrate/internal/testutil"
)

const (
	testUUID     = "7d9a3c2e-1b4f-4a6d-8e5c-2f0b9a8d7c61"
	testPartSize = 512
)

// fakeRepo serves just enough of the repository API for the commands.
type fakeRepo struct {
	t *testing.T

	// latest is reported by the package lookup; empty means 404.
	latest string
	// listing is served verbatim by the package list endpoints.
	listing string
	// noUploadURLs makes initiate answer without any part URLs.
	noUploadURLs bool

	initiates atomic.Int32
	puts      atomic.Int32
	submits   atomic.Int32

	mu       sync.Mutex
	uploaded int64
	submit   map[string]any
	listPath string
}

func (f *fakeRepo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/experimental/usermedia/initiate-upload/":
		f.initiate(w, r)
	case strings.HasPrefix(r.URL.Path, "/parts/"):
		f.puts.Add(1)
		n, _ := io.Copy(io.Discard, r.Body)
		f.mu.Lock()
		f.uploaded += n
		f.mu.Unlock()
		w.Header().Set("ETag", fmt.Sprintf(`"%s"`, strings.TrimPrefix(r.URL.Path, "/parts/")))
	case r.URL.Path == "/api/experimental/usermedia/"+testUUID+"/finish-upload/":
		_, _ = io.WriteString(w, `{}`)
	case r.URL.Path == "/api/experimental/usermedia/"+testUUID+"/abort-upload/":
		_, _ = io.WriteString(w, `{}`)
	case r.URL.Path == "/api/experimental/submission/submit/":
		f.submits.Add(1)
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("decoding submit body: %v", err)
		}
		f.mu.Lock()
		f.submit = body
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"package_version": {"download_url": "https://repo.example.com/package/download/Ns/Pkg/1.0.0/"}}`)
	case strings.HasPrefix(r.URL.Path, "/api/experimental/package/"):
		if f.latest == "" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprintf(w, `{"full_name": "Ns-Pkg", "owner": "Ns", "total_downloads": 42,
			"latest": {"version_number": %q, "description": "fixture", "download_url": "https://repo.example.com/dl/"},
			"community_listings": [{"community": "riskofrain2", "categories": ["items"]}]}`, f.latest)
	case strings.HasSuffix(r.URL.Path, "/api/v1/package/"):
		f.mu.Lock()
		f.listPath = r.URL.Path
		f.mu.Unlock()
		_, _ = io.WriteString(w, f.listing)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeRepo) initiate(w http.ResponseWriter, r *http.Request) {
	f.initiates.Add(1)
	if r.Header.Get("Authorization") != "Bearer secret" {
		f.t.Error("initiate must carry the bearer token")
	}
	var req repository.InitiateUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("decoding initiate body: %v", err)
	}

	var parts []repository.UploadPart
	for off, n := int64(0), 1; off < req.FileSizeBytes && !f.noUploadURLs; off, n = off+testPartSize, n+1 {
		parts = append(parts, repository.UploadPart{
			PartNumber: n,
			URL:        fmt.Sprintf("http://%s/parts/%d", r.Host, n),
			Offset:     off,
			Length:     min(testPartSize, req.FileSizeBytes-off),
		})
	}

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user_media":  map[string]any{"uuid": testUUID, "filename": req.Filename, "size": req.FileSizeBytes},
		"upload_urls": parts,
	})
}

func (f *fakeRepo) snapshot() (uploaded int64, submit map[string]any, listPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploaded, f.submit, f.listPath
}

// newFakeRepo starts a fakeRepo. configure runs before the server starts so
// handlers never race with the test's setup.
func newFakeRepo(t *testing.T, configure ...func(*fakeRepo)) (*fakeRepo, *httptest.Server) {
	t.Helper()
	f := &fakeRepo{t: t}
	for _, fn := range configure {
		fn(f)
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(t *testing.T, baseURL string) *repository.Client {
	t.Helper()
	c, err := repository.NewClient(baseURL, testClientOpts()...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func testClientOpts() []repository.ClientOption {
	return []repository.ClientOption{
		repository.WithRetry(retry.Policy{MaxAttempts: 1, BaseBackoff: time.Millisecond}),
	}
}

// loadFixture writes p and loads it the way the commands do, minus the
// user and environment layers.
func loadFixture(t *testing.T, p *testutil.Project) *config.Config {
	t.Helper()
	cfg, err := config.LoadProject(p.Write(t))
	if err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	cfg.Merge(config.Defaults(), config.MergeOverrideIfUnset)
	return cfg
}
