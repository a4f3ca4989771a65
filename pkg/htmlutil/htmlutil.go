package htmlutil

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

type Anchor struct {
	Name string
	Href string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Normalize strips non-printable runes, trims the ends and collapses inner runs of
// whitespace into a single space.
func Normalize(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// Text returns the normalized text of every node in sel.
func Text(sel *goquery.Selection) string {
	var buffer strings.Builder
	for _, n := range sel.Nodes {
		buffer.WriteString(GetText(n))
	}
	return Normalize(buffer.String())
}

// GetAnchors returns the href and normalized text of every node in sel, nodes without
// an href attribute are skipped.
func GetAnchors(sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		found := false
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				found = true
				break
			}
		}
		if !found {
			continue
		}
		anchors = append(anchors, Anchor{
			Name: Normalize(GetText(n)),
			Href: href,
		})
	}
	return anchors
}

// ClassContains matches descendants of sel whose class attribute contains fragment
// anywhere, the scraped markup does not promise exact class names.
func ClassContains(sel *goquery.Selection, fragment string) *goquery.Selection {
	return sel.Find(fmt.Sprintf(`[class*=%q]`, fragment))
}

// DocClassContains is ClassContains applied to a whole document.
func DocClassContains(doc *goquery.Document, fragment string) *goquery.Selection {
	return ClassContains(doc.Selection, fragment)
}

// TimeValue prefers the datetime attribute of the first node in sel and falls back to
// its text. ok is false when sel is empty or both are blank.
func TimeValue(sel *goquery.Selection) (value string, ok bool) {
	if sel.Length() == 0 {
		return "", false
	}
	first := sel.First()
	if datetime := strings.TrimSpace(first.AttrOr("datetime", "")); datetime != "" {
		return datetime, true
	}
	text := Text(first)
	return text, text != ""
}
