// Package content reads the text and screenshots captured by the scraper.
package content

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/model"
)

// ErrMissingAsset is returned when a link has no captured file, or the file
// is gone.
var ErrMissingAsset = eris.New("content: missing asset")

// Image is a screenshot ready to attach to a vision request.
type Image struct {
	MediaType string
	Data      []byte
}

// Fetcher returns the material captured for a link.
type Fetcher interface {
	Text(ctx context.Context, link *model.Link) (string, error)
	Screenshot(ctx context.Context, link *model.Link) (*Image, error)
}

// FileFetcher reads captured files from a directory. Relative paths on a
// link resolve against Dir.
type FileFetcher struct {
	Dir string
}

// NewFileFetcher returns a fetcher rooted at dir.
func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{Dir: dir}
}

// Text returns the captured page text. HTML captures are reduced to their
// visible text.
func (f *FileFetcher) Text(_ context.Context, link *model.Link) (string, error) {
	data, err := f.read(link.ContentPath)
	if err != nil {
		return "", eris.Wrapf(err, "content: text for %s", link.Domain)
	}

	switch strings.ToLower(filepath.Ext(link.ContentPath)) {
	case ".html", ".htm":
		text, err := htmlText(data)
		if err != nil {
			return "", eris.Wrapf(err, "content: parse html for %s", link.Domain)
		}
		return text, nil
	default:
		return strings.TrimSpace(string(data)), nil
	}
}

// Screenshot returns the captured screenshot.
func (f *FileFetcher) Screenshot(_ context.Context, link *model.Link) (*Image, error) {
	mediaType, ok := imageMediaType(link.ScreenshotPath)
	if link.ScreenshotPath != "" && !ok {
		return nil, eris.Errorf("content: unsupported screenshot type %q", filepath.Ext(link.ScreenshotPath))
	}
	data, err := f.read(link.ScreenshotPath)
	if err != nil {
		return nil, eris.Wrapf(err, "content: screenshot for %s", link.Domain)
	}
	return &Image{MediaType: mediaType, Data: data}, nil
}

func (f *FileFetcher) read(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrMissingAsset
	}
	if !filepath.IsAbs(path) && f.Dir != "" {
		path = filepath.Join(f.Dir, path)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(ErrMissingAsset, path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// htmlText drops non-visible elements and collapses whitespace.
func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template, svg").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	return strings.Join(strings.Fields(sel.Text()), " "), nil
}

func imageMediaType(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png", true
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".webp":
		return "image/webp", true
	case ".gif":
		return "image/gif", true
	default:
		return "", false
	}
}
