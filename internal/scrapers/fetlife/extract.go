package fetlife

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fetlife-adapter/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

func parseDocument(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

// idFromHref takes the last path segment of a link target as the entity id. It fails
// rather than guess when that segment is not purely numeric.
func idFromHref(href string) (int64, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return 0, fmt.Errorf("parse href: %w", err)
	}
	path := strings.TrimRight(u.Path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]
	if !isDigits(segment) {
		return 0, fmt.Errorf("last path segment %q is not numeric", segment)
	}
	return strconv.ParseInt(segment, 10, 64)
}

// commentSelector matches the free text attached to an entry. Links inside it (like
// @mentions) never identify the entry.
const commentSelector = `[class*="comment"]`

// entryNodes returns the nodes that represent one listing entry each: nodes whose class
// contains fragment, that hold a link, and that do not wrap another such node. This
// skips list containers ("attendees"). Comments are never entries, even when their
// class contains fragment ("attendee_comment").
func entryNodes(root *goquery.Selection, fragment string) *goquery.Selection {
	hasLink := func(s *goquery.Selection) bool {
		return s.Find("a[href]").Length() > 0
	}
	candidates := func(s *goquery.Selection) *goquery.Selection {
		return htmlutil.ClassContains(s, fragment).Not(commentSelector)
	}
	return candidates(root).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if !hasLink(s) {
			return false
		}
		nested := candidates(s).FilterFunction(func(_ int, inner *goquery.Selection) bool {
			return hasLink(inner)
		})
		return nested.Length() == 0
	})
}

// outsideComments drops the nodes of sel that sit in a comment below entry.
func outsideComments(entry, sel *goquery.Selection) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsUntilSelection(entry).Filter(commentSelector).Length() == 0
	})
}

// textOr returns the normalized text of sel, or Unknown when it is missing or blank.
func textOr(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return Unknown
	}
	text := htmlutil.Text(sel)
	if text == "" {
		return Unknown
	}
	return text
}

func timeOr(sel *goquery.Selection) string {
	value, ok := htmlutil.TimeValue(sel)
	if !ok {
		return Unknown
	}
	return value
}

// firstLink returns the href and name of the first anchor with an href in sel. name
// is Unknown when the anchor has no text.
func firstLink(sel *goquery.Selection) (href, name string, ok bool) {
	anchors := htmlutil.GetAnchors(sel.Find("a[href]").First())
	if len(anchors) == 0 {
		return "", Unknown, false
	}
	name = anchors[0].Name
	if name == "" {
		name = Unknown
	}
	return anchors[0].Href, name, true
}

func pagePath(base string, page int) string {
	if page <= 1 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", base, sep, page)
}

func normalizePages(pages int) int {
	if pages < 1 {
		return 1
	}
	return pages
}
