// Package bucket pages through a public object-storage XML listing
// (ListBucketResult) and filters the objects of interest.
package bucket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/fetch"
	"github.com/fulmenhq/aerorepo/pkg/logger"
)

// DefaultMinSize drops placeholder and truncated uploads.
const DefaultMinSize = 384

// maxPages bounds a listing whose continuation never ends.
const maxPages = 10000

// Entry is one <Contents> element as listed.
type Entry struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Page is one parsed listing response.
type Page struct {
	Entries []Entry

	// NextMarker drives v1 listings (?marker=), NextToken v2 listings
	// (?continuation-token=). Both empty on the last page.
	NextMarker string
	NextToken  string
}

// Object is a listed entry that passed the filter and has a known country.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
	Country      country.Country
}

// Date is the LastModified day, as used for manifest updates.
func (o Object) Date() string {
	return o.LastModified.UTC().Format("2006-01-02")
}

// ParsePage reads a ListBucketResult document. Entries missing a key,
// size or date are skipped.
func ParsePage(data []byte) (*Page, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("listing is not well-formed XML: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "ListBucketResult" {
		return nil, fmt.Errorf("unexpected listing document")
	}

	page := &Page{
		NextMarker: childText(root, "NextMarker"),
		NextToken:  childText(root, "NextContinuationToken"),
	}
	for _, el := range root.SelectElements("Contents") {
		key := childText(el, "Key")
		size, err := strconv.ParseInt(childText(el, "Size"), 10, 64)
		if key == "" || err != nil {
			continue
		}
		modified, err := time.Parse(time.RFC3339Nano, childText(el, "LastModified"))
		if err != nil {
			logger.Debug("Listing entry without usable LastModified", logger.String("key", key))
			continue
		}
		page.Entries = append(page.Entries, Entry{Key: key, Size: size, LastModified: modified})
	}
	return page, nil
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

// Filter selects keys by doublestar pattern and minimum size.
type Filter struct {
	Pattern string
	MinSize int64
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if e.Size < f.MinSize {
		return false
	}
	if f.Pattern == "" {
		return true
	}
	ok, err := doublestar.Match(f.Pattern, e.Key)
	return err == nil && ok
}

// Lister fetches listings from BaseURL (with trailing slash).
type Lister struct {
	BaseURL   string
	Fetcher   fetch.HTTPFetcher
	Countries *country.Table
}

// Entries follows pagination until no continuation is returned. A failed
// page aborts the listing.
func (l *Lister) Entries(ctx context.Context) ([]Entry, error) {
	var all []Entry
	next := l.BaseURL
	seen := make(map[string]bool)
	for pages := 0; next != ""; pages++ {
		if pages >= maxPages || seen[next] {
			return nil, fmt.Errorf("listing pagination does not terminate at %s", next)
		}
		seen[next] = true

		body, err := fetch.GetBody(ctx, l.Fetcher, next)
		if err != nil {
			return nil, fmt.Errorf("fetch listing page %d: %w", pages+1, err)
		}
		page, err := ParsePage(body)
		if err != nil {
			return nil, fmt.Errorf("listing page %d: %w", pages+1, err)
		}
		all = append(all, page.Entries...)
		logger.Debug("Fetched listing page", logger.Int("page", pages+1), logger.Int("entries", len(page.Entries)))
		next = l.nextURL(page)
	}
	return all, nil
}

func (l *Lister) nextURL(p *Page) string {
	switch {
	case p.NextToken != "":
		return l.BaseURL + "?continuation-token=" + url.QueryEscape(p.NextToken)
	case p.NextMarker != "":
		return l.BaseURL + "?marker=" + url.QueryEscape(p.NextMarker)
	default:
		return ""
	}
}

// Objects lists the bucket and keeps entries passing f whose first two key
// characters name a known country.
func (l *Lister) Objects(ctx context.Context, f Filter) ([]Object, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}
	var out []Object
	for _, e := range entries {
		if !f.Match(e) {
			continue
		}
		c, ok := l.country(e.Key)
		if !ok {
			logger.Warn("Skipping object with unknown country code", logger.String("key", e.Key))
			continue
		}
		logger.Debug("Listed object", logger.String("key", e.Key), logger.Int64("size", e.Size))
		out = append(out, Object{Key: e.Key, Size: e.Size, LastModified: e.LastModified, Country: c})
	}
	return out, nil
}

func (l *Lister) country(key string) (country.Country, bool) {
	if len(key) < 2 || l.Countries == nil {
		return country.Country{}, false
	}
	return l.Countries.Alpha2(strings.ToUpper(key[:2]))
}

// URL is the public address of key.
func (l *Lister) URL(key string) string {
	return l.BaseURL + key
}

// Download fetches the object body.
func (l *Lister) Download(ctx context.Context, key string) ([]byte, error) {
	return fetch.GetBody(ctx, l.Fetcher, l.URL(key))
}
