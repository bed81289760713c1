// Package packs installs bundles of override definitions published as
// .tar.gz archives, either at a direct URL or as an asset of a GitHub
// release.
//
// Installation is all-or-nothing. Every definition in the archive is
// validated before anything is written, and a write failure part way through
// rolls back the definitions already installed.
package packs

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/HendryAvila/spikeforge/internal/catalog"
	"github.com/HendryAvila/spikeforge/internal/logging"
	"github.com/HendryAvila/spikeforge/internal/overrides"
)

const (
	// requestTimeout bounds each HTTP call.
	requestTimeout = 30 * time.Second
	// maxEntrySize bounds a single definition file inside an archive.
	maxEntrySize = 1 << 20
	// maxEntries bounds the number of archive members inspected.
	maxEntries = 10000
)

// For testing: allow overriding the GitHub API base and HTTP client.
var (
	apiBase    = "https://api.github.com"
	httpClient = &http.Client{Timeout: requestTimeout}
)

// ReleaseInfo holds the relevant fields from a GitHub release.
type ReleaseInfo struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file in a GitHub release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Result reports what an install did.
type Result struct {
	Source    string   `json:"source"`
	Installed []string `json:"installed"`
	// Ignored lists archive members that are not definition files.
	Ignored []string `json:"ignored,omitempty"`
}

// InvalidError lists every definition in an archive that failed validation.
type InvalidError struct {
	Problems []string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("pack contains %d invalid definition(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Install downloads source and writes its definitions into w. source is a
// URL of a .tar.gz archive or a GitHub "owner/repo" whose latest release
// carries one.
func Install(ctx context.Context, source string, w overrides.Writer) (*Result, error) {
	url := source
	if !strings.Contains(source, "://") {
		asset, err := LatestAsset(ctx, source)
		if err != nil {
			return nil, err
		}
		url = asset.BrowserDownloadURL
	}

	body, err := fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("downloading pack: %w", err)
	}
	defer func() { _ = body.Close() }()

	defs, ignored, err := Extract(body)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, errors.New("pack contains no definition files")
	}

	res := &Result{Source: url, Ignored: ignored}
	prev := snapshot(ctx, w, defs)
	for _, def := range defs {
		if err := w.Put(ctx, def); err != nil {
			rollback(context.WithoutCancel(ctx), w, res.Installed, prev)
			return nil, fmt.Errorf("installing %q: %w", def.ID, err)
		}
		res.Installed = append(res.Installed, def.ID)
	}
	return res, nil
}

// snapshot records the definitions that installing defs would replace. It
// needs w to be readable; otherwise rollback can only delete.
func snapshot(ctx context.Context, w overrides.Writer, defs []*catalog.Definition) map[string]*catalog.Definition {
	prev := make(map[string]*catalog.Definition)
	r, ok := w.(overrides.Store)
	if !ok {
		return prev
	}
	for _, def := range defs {
		if old, err := r.Load(ctx, def.ID); err == nil {
			prev[def.ID] = old
		}
	}
	return prev
}

// rollback undoes the writes of a failed install, restoring replaced
// definitions and deleting new ones.
func rollback(ctx context.Context, w overrides.Writer, installed []string, prev map[string]*catalog.Definition) {
	for _, id := range installed {
		var err error
		if old, ok := prev[id]; ok {
			err = w.Put(ctx, old)
		} else {
			err = w.Delete(ctx, id)
		}
		if err != nil {
			logging.Error().Err(err).Str("id", id).Msg("pack rollback failed")
		}
	}
}

// LatestAsset finds the first .tar.gz asset of repo's latest release.
func LatestAsset(ctx context.Context, repo string) (*Asset, error) {
	if strings.Count(repo, "/") != 1 {
		return nil, fmt.Errorf("pack source %q is neither a URL nor owner/repo", repo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"/repos/"+repo+"/releases/latest", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "spikeforge")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("parsing release info: %w", err)
	}
	for _, a := range release.Assets {
		if strings.HasSuffix(a.Name, ".tar.gz") {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("release %s of %s has no .tar.gz asset", release.TagName, repo)
}

func fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "spikeforge")
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Extract reads a .tar.gz stream and decodes every definition file in it.
// Definitions come back sorted by id. Any invalid definition fails the whole
// archive with an *InvalidError.
func Extract(r io.Reader) ([]*catalog.Definition, []string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	var (
		defs     []*catalog.Definition
		ignored  []string
		problems []string
		seen     = make(map[string]string)
	)
	tr := tar.NewReader(gz)
	for n := 0; ; n++ {
		if n == maxEntries {
			return nil, nil, fmt.Errorf("archive has more than %d entries", maxEntries)
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading tar: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		id, ok := overrides.IDFromPath(header.Name)
		if !ok {
			ignored = append(ignored, header.Name)
			continue
		}
		if header.Size > maxEntrySize {
			problems = append(problems, fmt.Sprintf("%s: larger than %d bytes", header.Name, maxEntrySize))
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxEntrySize))
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", header.Name, err)
		}

		def, err := overrides.Decode(id, path.Ext(header.Name), data)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", header.Name, err))
			continue
		}
		if prev, dup := seen[id]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicates %s", header.Name, prev))
			continue
		}
		seen[id] = header.Name
		defs = append(defs, def)
	}

	if len(problems) > 0 {
		return nil, nil, &InvalidError{Problems: problems}
	}
	slices.SortFunc(defs, func(a, b *catalog.Definition) int { return strings.Compare(a.ID, b.ID) })
	return defs, ignored, nil
}
