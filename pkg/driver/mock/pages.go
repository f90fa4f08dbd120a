package mock

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// load finds the markup for u: configured pages first, then files under
// PagesDir, then the network when Fetch is set.
func (d *Driver) load(ctx context.Context, u *url.URL) (*goquery.Document, error) {
	p := u.Path
	if p == "" {
		p = "/"
	}
	if html, ok := d.Config.Pages[u.String()]; ok {
		return parse(u, html)
	}
	if html, ok := d.Config.Pages[p]; ok {
		return parse(u, html)
	}

	if d.Config.PagesDir != "" {
		for _, candidate := range pageFiles(p) {
			data, err := os.ReadFile(filepath.Join(d.Config.PagesDir, filepath.FromSlash(candidate)))
			if err == nil {
				return parse(u, string(data))
			}
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("navigate %s: %w", u, err)
			}
		}
	}

	if d.Config.Fetch && (u.Scheme == "http" || u.Scheme == "https") {
		return d.fetch(ctx, u)
	}
	return nil, fmt.Errorf("navigate %s: no page", u)
}

// pageFiles lists the files that may serve a URL path.
func pageFiles(p string) []string {
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if clean == "" || strings.HasSuffix(p, "/") {
		return []string{path.Join(clean, "index.html")}
	}
	return []string{clean, clean + ".html", path.Join(clean, "index.html")}
}

func (d *Driver) fetch(ctx context.Context, u *url.URL) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", u, err)
	}
	resp, err := d.Config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("navigate %s: status %d", u, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", u, err)
	}
	doc.Url = u
	return doc, nil
}

func parse(u *url.URL, html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}
	doc.Url = u
	return doc, nil
}
