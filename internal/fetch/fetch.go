// Package fetch materializes a configuration corpus from a remote repository,
// so the extraction pipeline only ever sees fully materialized text.
package fetch

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/keygridgo/internal/corpus"
	"github.com/vk/keygridgo/internal/ctxlog"
)

// maxFileSize caps a single extracted file. Keyboard configuration files are
// tiny; anything larger is not one.
const maxFileSize = 1 << 20

// defaultRef is used when a repo spec carries no explicit ref.
const defaultRef = "HEAD"

// Client downloads repository snapshots over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient returns a Client with sane connection pooling and timeouts.
func NewClient() *Client {
	return &Client{
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: "https://codeload.github.com",
	}
}

// NewClientWithBaseURL is for tests that stand in a local tarball server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// FetchGitHub downloads the snapshot tarball for "owner/name" or
// "owner/name@ref" and returns the recognized configuration files as a
// mapping from in-repository path to raw text.
func (c *Client) FetchGitHub(ctx context.Context, repo string) (map[string]string, error) {
	logger := ctxlog.FromContext(ctx)

	spec, ref := repo, defaultRef
	if at := strings.LastIndexByte(repo, '@'); at >= 0 {
		spec, ref = repo[:at], repo[at+1:]
	}
	if strings.Count(spec, "/") != 1 || spec == "" || ref == "" {
		return nil, fmt.Errorf("invalid repository spec %q, want owner/name[@ref]", repo)
	}

	url := fmt.Sprintf("%s/%s/tar.gz/%s", c.baseURL, spec, ref)
	logger.Info("Fetching remote corpus.", "repo", spec, "ref", ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot download for %s returned %s", repo, resp.Status)
	}

	files, err := extractTarball(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to extract snapshot for %s: %w", repo, err)
	}
	logger.Info("Remote corpus fetched.", "repo", spec, "files", len(files))
	return files, nil
}

// extractTarball pulls recognized files out of a gzipped tar stream, stripping
// the snapshot's top-level directory from each path.
func extractTarball(r io.Reader) (map[string]string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("not a gzip stream: %w", err)
	}
	defer gz.Close()

	files := map[string]string{}
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("corrupt tar stream: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if !corpus.Recognized(header.Name) || header.Size > maxFileSize {
			continue
		}

		raw, err := io.ReadAll(io.LimitReader(tr, maxFileSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from tar stream: %w", header.Name, err)
		}

		path := header.Name
		if i := strings.IndexByte(path, '/'); i >= 0 {
			path = path[i+1:]
		}
		if path == "" {
			continue
		}
		files[path] = string(raw)
	}
	return files, nil
}
