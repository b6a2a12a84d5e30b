// Package firms downloads the NASA FIRMS active-fire archive and unpacks the
// shapefile it contains.
package firms

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nepalfire/firereport/internal/domain"
)

// DefaultURL is the MODIS C6.1 South Asia 24h shapefile archive.
const DefaultURL = "https://firms.modaps.eosdis.nasa.gov/data/active_fire/modis-c6.1/shapes/zips/MODIS_C6_1_South_Asia_24h.zip"

// Fetcher downloads the FIRMS archive into a scratch directory.
type Fetcher struct {
	client *resty.Client
	url    string
	dir    string
	logger *slog.Logger
}

// NewFetcher creates a fetcher. The download is attempted once.
func NewFetcher(url, dir string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)
	return &Fetcher{client: client, url: url, dir: dir, logger: logger}
}

// Fetch downloads and extracts the archive and returns the path of the
// first shapefile in it. cleanup removes the scratch directory and is safe
// to call whether or not Fetch failed.
func (f *Fetcher) Fetch(ctx context.Context) (shpPath string, cleanup func(), err error) {
	cleanup = func() {
		if rmErr := os.RemoveAll(f.dir); rmErr != nil {
			f.logger.Warn("remove download dir", "dir", f.dir, "error", rmErr)
		}
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", cleanup, fmt.Errorf("%w: create %s: %v", domain.ErrDownload, f.dir, err)
	}
	archive := filepath.Join(f.dir, "firms.zip")

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetOutput(archive).
		Get(f.url)
	if err != nil {
		return "", cleanup, fmt.Errorf("%w: get %s: %v", domain.ErrDownload, f.url, err)
	}
	if resp.IsError() {
		return "", cleanup, fmt.Errorf("%w: FIRMS returned status %d", domain.ErrDownload, resp.StatusCode())
	}
	f.logger.Info("fire data downloaded", "url", f.url, "duration", time.Since(start))

	files, err := extract(archive, f.dir)
	if err != nil {
		return "", cleanup, fmt.Errorf("%w: extract: %v", domain.ErrDownload, err)
	}
	for _, name := range files {
		if strings.EqualFold(filepath.Ext(name), ".shp") {
			return name, cleanup, nil
		}
	}
	return "", cleanup, fmt.Errorf("%w: archive has no shapefile", domain.ErrDownload)
}

// extract unpacks every regular file of the zip into dir and returns the
// extracted paths in name order.
func extract(archive, dir string) ([]string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		target := filepath.Join(root, filepath.Clean(zf.Name))
		if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("entry %q escapes the extraction dir", zf.Name)
		}
		if err := extractFile(zf, target); err != nil {
			return nil, err
		}
		out = append(out, target)
	}
	sort.Strings(out)
	return out, nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := zf.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
