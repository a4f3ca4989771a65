package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{in: "  Test Event \n", expect: "Test Event"},
		{in: "a\n\t\n   b", expect: "a b"},
		{in: "x\u0000y", expect: "xy"},
		{in: "", expect: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, Normalize(test.in))
	}
}

func TestGetAnchors(t *testing.T) {
	doc := parse(t, `<div><a href="/events/1"> Test
		Event </a><a>no href</a><a href="/events/2"><b>Other</b></a></div>`)

	anchors := GetAnchors(doc.Find("a"))
	require.Equal(t, []Anchor{
		{Name: "Test Event", Href: "/events/1"},
		{Name: "Other", Href: "/events/2"},
	}, anchors)
}

func TestClassContains(t *testing.T) {
	doc := parse(t, `<ul>
		<li class="group_post odd">a</li>
		<li class="fl-group_post-row">b</li>
		<li class="post">c</li>
	</ul>`)

	require.Equal(t, 2, DocClassContains(doc, "group_post").Length())
}

func TestTimeValue(t *testing.T) {
	doc := parse(t, `<p><time datetime="2024-01-01T18:00:00Z">Jan 1</time></p>
		<p class="t"><span>  Jan 2 </span></p>`)

	value, ok := TimeValue(doc.Find("time"))
	require.True(t, ok)
	require.Equal(t, "2024-01-01T18:00:00Z", value)

	value, ok = TimeValue(doc.Find("p.t span"))
	require.True(t, ok)
	require.Equal(t, "Jan 2", value)

	_, ok = TimeValue(doc.Find("missing"))
	require.False(t, ok)
}
