package repository

import (
	"slices"
	"testing"
	"time"

	"github.com/fulmenhq/aerorepo/internal/gitctx"
	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/ignore"
	"github.com/fulmenhq/aerorepo/pkg/manifest"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://download.xcsoar.org/"

const deCUP = `name,code,country,lat,lon,elev,style
"A",A,DE,5000.000N,01000.000E,100m,1
"B",B,DE,5200.000N,01200.000E,100m,1
`

const swissAir = `AC R
AN Box
DP 46:00:00 N 008:00:00 E
DP 47:00:00 N 009:00:00 E
`

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeDater map[string]time.Time

func (f fakeDater) LastCommit(p string) (time.Time, error) {
	t, ok := f[p]
	if !ok {
		return time.Time{}, gitctx.ErrNotTracked
	}
	return t, nil
}

func testCountries() *country.Resolver {
	return country.ExactResolver(country.NewTable([]country.Country{
		{Alpha2: "DE", Alpha3: "DEU", Name: "Germany", Numeric: 276},
		{Alpha2: "FR", Alpha3: "FRA", Name: "France", Numeric: 250},
		{Alpha2: "AT", Alpha3: "AUT", Name: "Austria", Numeric: 40},
		{Alpha2: "CH", Alpha3: "CHE", Name: "Switzerland", Numeric: 756},
	}))
}

func write(t *testing.T, fs billy.Filesystem, name, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newResolver(fs billy.Filesystem, dater gitctx.CommitDater) *Resolver {
	return &Resolver{
		FS:        fs,
		BaseURL:   baseURL,
		Countries: testCountries(),
		Dater:     dater,
		Now:       func() time.Time { return fixedNow },
	}
}

func TestCandidates(t *testing.T) {
	paths := []string{
		"content/airspace/country/CH-ASP.txt",
		"content/waypoint/0_META/index.json",
		"content/waypoint/country/de.cup",
		"content/waypoint/country/deep/nested.cup",
		"content/waypoint/globe/GLB-world.cup",
		"content/README.md",
	}
	var got []Candidate
	for c := range Candidates(paths, DefaultMetaDir) {
		got = append(got, c)
	}
	require.Len(t, got, 3)
	assert.Equal(t, "content/airspace/country/CH-ASP.txt", got[0].Path)
	assert.Equal(t, "de", got[1].Stem())
	assert.Equal(t, ".cup", got[1].Ext())
	assert.Equal(t, GeoGlobal, got[2].Geography)
	assert.Equal(t, "globe", got[2].GeoDir)
}

func TestCandidatesStopEarly(t *testing.T) {
	paths := []string{"content/a/country/1", "content/a/country/2", "content/a/country/3"}
	n := 0
	for range Candidates(paths, "") {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestListSortedAndIgnored(t *testing.T) {
	fs := memfs.New()
	write(t, fs, "content/waypoint/country/fr.cup", "x")
	write(t, fs, "content/waypoint/country/de.cup", "x")
	write(t, fs, "content/airspace/country/ch.txt", "x")
	write(t, fs, "content/airspace/country/ch.txt~", "x")
	write(t, fs, "content/map/region/draft/alps.xcm", "x")

	write(t, fs, ignore.FileName, "draft/\n")
	skip, err := ignore.NewMatcher(fs)
	require.NoError(t, err)

	paths, err := List(fs, Content, skip)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"content/airspace/country/ch.txt",
		"content/waypoint/country/de.cup",
		"content/waypoint/country/fr.cup",
	}, paths)

	paths, err = List(fs, Remote, nil)
	require.NoError(t, err)
	assert.Empty(t, paths, "missing location is not an error")
}

func TestResolveContent(t *testing.T) {
	fs := memfs.New()
	write(t, fs, "content/waypoint/country/de.cup", deCUP)
	write(t, fs, "content/waypoint/country/de.cup.json", `{"description": "Germany waypoints"}`)
	r := newResolver(fs, fakeDater{"content/waypoint/country/de.cup": day("2020-01-01")})

	recs, err := r.Resolve(Candidate{Location: Content, Type: "waypoint", Geography: GeoCountry, GeoDir: GeoCountry, Path: "content/waypoint/country/de.cup"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, manifest.Record{
		Name:        "de.cup",
		URI:         baseURL + "content/waypoint/country/de.cup",
		Type:        "waypoint",
		Area:        "de",
		Description: "Germany waypoints",
		Update:      "2020-01-01",
		BBox:        "10.0,50.0,12.0,52.0",
	}, recs[0])
}

func TestResolveSidecarBBox(t *testing.T) {
	fs := memfs.New()
	write(t, fs, "content/waypoint/country/de.cup", deCUP)
	write(t, fs, "content/waypoint/country/de.cup.json", `{"bbox": "9,49,13,53"}`)
	write(t, fs, "content/waypoint/country/fr.cup", deCUP)
	write(t, fs, "content/waypoint/country/fr.cup.json", `{"bounding_box": [12, 52, 10, 50]}`)
	r := newResolver(fs, nil)

	recs, err := r.Resolve(Candidate{Location: Content, Type: "waypoint", Geography: GeoCountry, GeoDir: GeoCountry, Path: "content/waypoint/country/de.cup"})
	require.NoError(t, err)
	assert.Equal(t, "9,49,13,53", recs[0].BBox, "a string bbox is used as written")

	recs, err = r.Resolve(Candidate{Location: Content, Type: "waypoint", Geography: GeoCountry, GeoDir: GeoCountry, Path: "content/waypoint/country/fr.cup"})
	require.NoError(t, err)
	assert.Equal(t, "10.0,50.0,12.0,52.0", recs[0].BBox, "a swapped box is replaced by the computed one")
}

func TestResolveContentSidecarIsNotARecord(t *testing.T) {
	r := newResolver(memfs.New(), nil)
	recs, err := r.Resolve(Candidate{Location: Content, Type: "waypoint", Path: "content/waypoint/country/de.cup.json"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestUpdateFallback(t *testing.T) {
	fs := memfs.New()
	write(t, fs, "remote/waypoint/country/a.cup.json", `{"uri": "http://x/a.cup", "update": "daily"}`)
	write(t, fs, "remote/waypoint/country/b.cup.json", `{"uri": "http://x/y.cup"}`)
	write(t, fs, "remote/waypoint/country/c.cup.json", `{"uri": "http://x/c.cup", "update": "2018-05-05"}`)
	r := newResolver(fs, fakeDater{
		"remote/waypoint/country/a.cup.json": day("2001-01-01"),
		"remote/waypoint/country/b.cup.json": day("2020-01-01"),
		"remote/waypoint/country/c.cup.json": day("2001-01-01"),
	})

	want := map[string]string{"a": "2025-03-10", "b": "2020-01-01", "c": "2018-05-05"}
	for name, update := range want {
		recs, err := r.Resolve(Candidate{Location: Remote, Type: "waypoint", GeoDir: GeoCountry, Path: "remote/waypoint/country/" + name + ".cup.json"})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, update, recs[0].Update, name)
	}
}

func TestResolveSourceMapPair(t *testing.T) {
	fs := memfs.New()
	write(t, fs, "source/map/country/FR-Alps.json", `{"bounding_box": [5, 43.5, 8, 46.5]}`)
	write(t, fs, "source/map/country/DE.xcm.json", `{}`)
	r := newResolver(fs, fakeDater{
		"source/map/country/FR-Alps.json": day("2022-02-02"),
		"source/map/country/DE.xcm.json":  day("2021-01-01"),
	})

	recs, err := r.Resolve(Candidate{Location: Source, Type: "map", GeoDir: GeoCountry, Path: "source/map/country/FR-Alps.json"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "FR-Alps_HighRes.xcm", recs[0].Name)
	assert.Equal(t, baseURL+"source/map/country/FR-Alps_HighRes.xcm", recs[0].URI)
	assert.Equal(t, "FR-Alps.xcm", recs[1].Name)
	assert.Equal(t, baseURL+"source/map/country/FR-Alps.xcm", recs[1].URI)
	for _, rec := range recs {
		assert.Equal(t, "fr", rec.Area)
		assert.Equal(t, "2022-02-02", rec.Update)
		assert.Equal(t, "5.0,43.5,8.0,46.5", rec.BBox)
	}

	recs, err = r.Resolve(Candidate{Location: Source, Type: "map", GeoDir: GeoCountry, Path: "source/map/country/DE.xcm.json"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "DE_HighRes.xcm", recs[0].Name)
	assert.Equal(t, "DE.xcm", recs[1].Name)
	assert.Empty(t, recs[0].BBox)
}

func TestResolveRemoteWithoutURI(t *testing.T) {
	fs := memfs.New()
	write(t, fs, "remote/flarmnet/global/orphan.json", `{"description": "no uri"}`)
	r := newResolver(fs, nil)

	_, err := r.Resolve(Candidate{Location: Remote, Type: "flarmnet", Path: "remote/flarmnet/global/orphan.json"})
	assert.Error(t, err)
}

func TestRemoteOpenAIPBBoxFromGenerated(t *testing.T) {
	data := memfs.New()
	out := memfs.New()
	write(t, data, "remote/waypoint/country/DE-WPT-National-OpenAIP.cup.json", `{"uri": "http://download.xcsoar.org/content/waypoint/country/DE-WPT-National-OpenAIP.cup", "update": "daily"}`)
	write(t, out, "content/waypoint/country/DE-WPT-National-OpenAIP.cup", deCUP)

	r := newResolver(data, nil)
	r.Generated = out
	recs, err := r.Resolve(Candidate{Location: Remote, Type: "waypoint", GeoDir: GeoCountry, Path: "remote/waypoint/country/DE-WPT-National-OpenAIP.cup.json"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "DE-WPT-National-OpenAIP.cup", recs[0].Name)
	assert.Equal(t, "de", recs[0].Area)
	assert.Equal(t, "10.0,50.0,12.0,52.0", recs[0].BBox)

	gen := newResolver(out, nil)
	gen.SkipOpenAIPWaypoints = true
	recs, err = gen.Resolve(Candidate{Location: Content, Type: "waypoint", Path: "content/waypoint/country/DE-WPT-National-OpenAIP.cup"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestBBoxFailureIsNotFatal(t *testing.T) {
	fs := memfs.New()
	write(t, fs, "content/waypoint/country/fr.cup", "name,code,country,lat,lon\nA,A,FR,garbage,00100.000E\n")
	write(t, fs, "content/waypoint/country/de.cup", "name,code,country,lat,lon\n")
	r := newResolver(fs, fakeDater{})

	for _, p := range []string{"content/waypoint/country/fr.cup", "content/waypoint/country/de.cup"} {
		recs, err := r.Resolve(Candidate{Location: Content, Type: "waypoint", Path: p})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Empty(t, recs[0].BBox, p)
		assert.NotEmpty(t, recs[0].Update)
	}
}

func TestUnknownAreaIsEmpty(t *testing.T) {
	fs := memfs.New()
	write(t, fs, "content/flarmnet/global/GLB-flarmnet.fln", "x")
	r := newResolver(fs, fakeDater{})
	recs, err := r.Resolve(Candidate{Location: Content, Type: "flarmnet", Path: "content/flarmnet/global/GLB-flarmnet.fln"})
	require.NoError(t, err)
	assert.Empty(t, recs[0].Area)
	assert.Empty(t, recs[0].BBox)
}

func buildTree(t *testing.T) (billy.Filesystem, billy.Filesystem) {
	t.Helper()
	data := memfs.New()
	write(t, data, "content/airspace/country/CH-ASP.txt", swissAir)
	write(t, data, "content/waypoint/0_META/waypoints.js", "var WAYPOINTS = {};")
	write(t, data, "content/waypoint/country/de.cup", deCUP)
	write(t, data, "content/waypoint/globe/GLB-world.cup", deCUP)
	write(t, data, "source/map/region/FR-Alps.json", `{"bounding_box": [5, 43, 8, 46], "update": "2024-01-01"}`)
	write(t, data, "remote/waypoint/country/AT-WPT-National-OpenAIP.cup.json", `{"uri": "http://download.xcsoar.org/content/waypoint/country/AT-WPT-National-OpenAIP.cup", "update": "daily"}`)
	write(t, data, "remote/waypoint/0_META/ignored.json", `{"uri": "http://x"}`)
	write(t, data, "remote/flarmnet/global/broken.json", `{}`)

	out := memfs.New()
	write(t, out, "content/waypoint/country/AT-WPT-National-OpenAIP.cup", deCUP)
	write(t, out, "content/waypoint-detail/country/at.txt", "details")
	return data, out
}

func TestGeneratorSections(t *testing.T) {
	data, out := buildTree(t)
	g := &Generator{
		Data:      Tree{FS: data},
		Output:    &Tree{FS: out},
		BaseURL:   baseURL,
		Countries: testCountries(),
		Dater: fakeDater{
			"content/airspace/country/CH-ASP.txt":  day("2023-03-03"),
			"content/waypoint/country/de.cup":      day("2020-01-01"),
			"content/waypoint/globe/GLB-world.cup": day("2019-09-09"),
		},
		Now: func() time.Time { return fixedNow },
	}

	sections, err := g.Sections()
	require.NoError(t, err)

	var comments []string
	for _, s := range sections {
		comments = append(comments, s.Comment())
	}
	assert.Equal(t, []string{
		"Data location: content, type: airspace, geography: country.",
		"Data location: content, type: waypoint, geography: country.",
		"Data location: content, type: waypoint, geography: global.",
		"Data location: content, type: waypoint-detail, geography: country.",
		"Data location: source, type: map, geography: region.",
		"Data location: remote, type: waypoint, geography: country.",
	}, comments)

	for _, c := range comments {
		assert.NotContains(t, c, DefaultMetaDir)
	}

	recs := manifest.Flatten(sections)
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	assert.Equal(t, []string{
		"CH-ASP.txt",
		"de.cup",
		"GLB-world.cup",
		"at.txt",
		"FR-Alps_HighRes.xcm",
		"FR-Alps.xcm",
		"AT-WPT-National-OpenAIP.cup",
	}, names)

	assert.Equal(t, "8.0,46.0,9.0,47.0", recs[0].BBox)
	assert.Equal(t, "ch", recs[0].Area)
	assert.Equal(t, baseURL+"content/waypoint/globe/GLB-world.cup", recs[2].URI)
	assert.Equal(t, "2025-03-10", recs[6].Update)
	assert.Equal(t, "10.0,50.0,12.0,52.0", recs[6].BBox)
	assert.False(t, slices.ContainsFunc(recs, func(r manifest.Record) bool { return r.Name == "ignored" }))
}

func TestGeneratorCustomMetaDir(t *testing.T) {
	data := memfs.New()
	write(t, data, "content/waypoint/_web/x.cup", deCUP)
	write(t, data, "content/waypoint/0_META/de.cup", deCUP)
	g := &Generator{
		Data:      Tree{FS: data},
		BaseURL:   baseURL,
		MetaDir:   "_web",
		Countries: testCountries(),
		Dater:     fakeDater{},
		Now:       func() time.Time { return fixedNow },
	}
	sections, err := g.Sections()
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "0_META", sections[0].Geography)
}
