package fetlife

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractCsrf returns the anti-forgery token carried in the document head. Entities in
// the value are already decoded by the parser. ok is false when the page has no token,
// which is normal for some authenticated pages: keep using the previous one.
func ExtractCsrf(doc *goquery.Document) (token string, ok bool) {
	meta := doc.Find(`head meta[name="csrf-token"]`).First()
	if meta.Length() == 0 {
		return "", false
	}
	token = strings.TrimSpace(meta.AttrOr("content", ""))
	return token, token != ""
}
