package rpmspec

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
)

// Downloader saves the body of a URL to a local file
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// FetchSpec downloads the spec at rawURL into dir, keeping its file name,
// and returns the local path.
func FetchSpec(ctx context.Context, client Downloader, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("spec URL %q has no file name", rawURL)
	}

	dest := filepath.Join(dir, name)
	if err := client.Download(ctx, rawURL, dest); err != nil {
		return "", err
	}
	return dest, nil
}
