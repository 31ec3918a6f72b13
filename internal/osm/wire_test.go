package osm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeWay_RoundTrip(t *testing.T) {
	in := &Way{
		ID:      4242,
		Version: 7,
		Nodes:   []int64{30, 10, 20, 10},
		Tags: map[string]string{
			"highway":    "residential",
			"name":       `Fish & Chips <"Row">`,
			"note":       "it's fine",
			"turn:lanes": "left;through|right",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeWay(&buf, 99, in))

	out, err := DecodeWay(&buf)
	require.NoError(t, err)
	require.Equal(t, in.ID, out.ID)
	require.Equal(t, in.Version, out.Version)
	require.Equal(t, in.Nodes, out.Nodes)
	require.Equal(t, in.Tags, out.Tags)
}

func TestEncodeWay_WireShape(t *testing.T) {
	way := &Way{
		ID:      5,
		Version: 3,
		Nodes:   []int64{1, 2},
		Tags:    map[string]string{"name": `a&b<c>"d"`, "lanes": "2"},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeWay(&buf, 777, way))
	s := buf.String()

	require.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`))
	require.Contains(t, s, `<osm version="0.6" generator="OSM-Lane-Editor">`)
	require.Contains(t, s, `<way id="5" version="3" changeset="777">`)
	require.Contains(t, s, `<nd ref="1"></nd>`)
	require.Contains(t, s, `&amp;`)
	require.Contains(t, s, `&lt;`)
	require.Contains(t, s, `&gt;`)
	require.Contains(t, s, `&#34;`)
	require.NotContains(t, s, `a&b`)

	// nd antes que tag, en el orden dado
	nd1 := strings.Index(s, `<nd ref="1">`)
	nd2 := strings.Index(s, `<nd ref="2">`)
	tag := strings.Index(s, `<tag `)
	require.True(t, nd1 < nd2 && nd2 < tag)
}

func TestDecodeWay_Malformed(t *testing.T) {
	_, err := DecodeWay(strings.NewReader("<osm><way"))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeWay(strings.NewReader(`<osm version="0.6"></osm>`))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeWay_IgnoresOtherElements(t *testing.T) {
	doc := `<?xml version="1.0"?>
<osm version="0.6" generator="CGImap">
  <bounds minlat="1" minlon="2" maxlat="3" maxlon="4"/>
  <way id="12" visible="true" version="4" changeset="1" timestamp="2024-01-01T00:00:00Z" user="x" uid="1">
    <nd ref="100"/>
    <nd ref="101"/>
    <tag k="highway" v="primary"/>
    <tag k="lanes" v="2"/>
  </way>
</osm>`
	w, err := DecodeWay(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, int64(12), w.ID)
	require.Equal(t, int64(4), w.Version)
	require.Equal(t, []int64{100, 101}, w.Nodes)
	require.Equal(t, "2", w.Tags["lanes"])
}

func TestEncodeChangeset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeChangeset(&buf, map[string]string{"comment": `lanes & "turns"`, "source": "survey"}))
	s := buf.String()
	require.Contains(t, s, "<changeset>")
	require.Contains(t, s, `k="comment" v="lanes &amp; &#34;turns&#34;"`)
	require.Contains(t, s, `k="source" v="survey"`)
}

func TestDecodeUserDetails(t *testing.T) {
	doc := `<osm version="0.6"><user id="321" display_name="mapper" account_created="2020-02-02T00:00:00Z"><description/></user></osm>`
	u, err := DecodeUserDetails(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, int64(321), u.ID)
	require.Equal(t, "mapper", u.DisplayName)

	_, err = DecodeUserDetails(strings.NewReader(`<osm></osm>`))
	require.ErrorIs(t, err, ErrMalformed)
}
