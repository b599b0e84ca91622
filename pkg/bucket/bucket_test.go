package bucket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://storage.example.org/openaip/"

func contents(key string, size int, modified string) string {
	return fmt.Sprintf("<Contents><Key>%s</Key><Size>%d</Size><LastModified>%s</LastModified></Contents>", key, size, modified)
}

func listing(next string, entries ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<ListBucketResult xmlns="http://doc.s3.amazonaws.com/2006-03-01"><Name>openaip</Name>`)
	if next != "" {
		b.WriteString("<IsTruncated>true</IsTruncated><NextMarker>" + next + "</NextMarker>")
	}
	for _, e := range entries {
		b.WriteString(e)
	}
	b.WriteString("</ListBucketResult>")
	return b.String()
}

func table() *country.Table {
	return country.NewTable([]country.Country{
		{Alpha2: "FR", Alpha3: "FRA", Name: "France"},
		{Alpha2: "DE", Alpha3: "DEU", Name: "Germany"},
	})
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage([]byte(listing("de_asp_v2.txt",
		contents("de_asp_v2.txt", 4096, "2024-05-01T03:12:45.123Z"),
		"<Contents><Key>nosize</Key></Contents>",
		contents("bad_date.txt", 10, "yesterday"),
	)))
	require.NoError(t, err)
	assert.Equal(t, "de_asp_v2.txt", page.NextMarker)
	assert.Empty(t, page.NextToken)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, int64(4096), page.Entries[0].Size)
	assert.Equal(t, 2024, page.Entries[0].LastModified.Year())
}

func TestParsePageErrors(t *testing.T) {
	_, err := ParsePage([]byte("<ListBucketResult><Contents>"))
	assert.Error(t, err)

	_, err = ParsePage([]byte("<Error><Code>AccessDenied</Code></Error>"))
	assert.Error(t, err)
}

func TestObjectsPaginationAndFilter(t *testing.T) {
	m := fetch.NewMockHTTPFetcher()
	m.AddResponse(base, 200, listing("de_apt.cup",
		contents("de_asp_v2.txt", 90000, "2024-05-01T03:12:45Z"),
		contents("de_apt.cup", 5000, "2024-05-01T03:12:45Z"),
	))
	m.AddResponse(base+"?marker=de_apt.cup", 200, listing("",
		contents("fr_asp_v2.txt", 120000, "2024-05-02T10:00:00Z"),
		contents("xx_asp_v2.txt", 120000, "2024-05-02T10:00:00Z"),
		contents("fr_tiny_asp_v2.txt", 100, "2024-05-02T10:00:00Z"),
	))

	l := &Lister{BaseURL: base, Fetcher: m, Countries: table()}
	objs, err := l.Objects(context.Background(), Filter{Pattern: "**/*asp_v2.txt", MinSize: DefaultMinSize})
	require.NoError(t, err)

	require.Len(t, objs, 2)
	assert.Equal(t, "de_asp_v2.txt", objs[0].Key)
	assert.Equal(t, "DE", objs[0].Country.Alpha2)
	assert.Equal(t, "2024-05-01", objs[0].Date())
	assert.Equal(t, "fr_asp_v2.txt", objs[1].Key)
	assert.Equal(t, "France", objs[1].Country.Name)

	assert.Equal(t, []string{"GET " + base, "GET " + base + "?marker=de_apt.cup"}, m.Requests())
}

func TestEntriesContinuationToken(t *testing.T) {
	m := fetch.NewMockHTTPFetcher()
	m.AddResponse(base, 200, `<ListBucketResult><NextContinuationToken>a b</NextContinuationToken>`+contents("de.cup", 1000, "2024-01-01T00:00:00Z")+`</ListBucketResult>`)
	m.AddResponse(base+"?continuation-token=a+b", 200, listing("", contents("fr.cup", 1000, "2024-01-01T00:00:00Z")))

	l := &Lister{BaseURL: base, Fetcher: m}
	entries, err := l.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEntriesPageFailureIsFatal(t *testing.T) {
	m := fetch.NewMockHTTPFetcher()
	m.AddResponse(base, 200, listing("next", contents("de.cup", 1000, "2024-01-01T00:00:00Z")))
	m.AddError(base+"?marker=next", errors.New("connection reset"))

	l := &Lister{BaseURL: base, Fetcher: m}
	_, err := l.Entries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
}

func TestEntriesStatusError(t *testing.T) {
	m := fetch.NewMockHTTPFetcher()
	m.AddResponse(base, 503, "unavailable")

	l := &Lister{BaseURL: base, Fetcher: m}
	_, err := l.Entries(context.Background())
	var se *fetch.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 503, se.StatusCode)
}

func TestEntriesLoopDetected(t *testing.T) {
	m := fetch.NewMockHTTPFetcher()
	m.AddResponse(base, 200, listing("same"))
	m.AddResponse(base+"?marker=same", 200, listing("same"))

	l := &Lister{BaseURL: base, Fetcher: m}
	_, err := l.Entries(context.Background())
	assert.ErrorContains(t, err, "does not terminate")
}

func TestFilterMatch(t *testing.T) {
	f := Filter{Pattern: "**/*.cup", MinSize: 10}
	assert.True(t, f.Match(Entry{Key: "de_apt.cup", Size: 10}))
	assert.True(t, f.Match(Entry{Key: "nested/de_apt.cup", Size: 10}))
	assert.False(t, f.Match(Entry{Key: "de_apt.cup", Size: 9}))
	assert.False(t, f.Match(Entry{Key: "de_asp_v2.txt", Size: 100}))
	assert.True(t, Filter{}.Match(Entry{Key: "anything"}))
}

func TestDownload(t *testing.T) {
	m := fetch.NewMockHTTPFetcher()
	m.AddResponse(base+"de_asp_v2.txt", 200, "AC R\n")

	l := &Lister{BaseURL: base, Fetcher: m}
	body, err := l.Download(context.Background(), "de_asp_v2.txt")
	require.NoError(t, err)
	assert.Equal(t, "AC R\n", string(body))
	assert.Equal(t, base+"de_asp_v2.txt", l.URL("de_asp_v2.txt"))
}
