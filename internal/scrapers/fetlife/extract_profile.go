package fetlife

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var profileTitleRegex = regexp.MustCompile(`^([-_A-Za-z0-9]+) - Kinksters - FetLife$`)

// ExtractProfile reads the nickname out of a profile page title
// ("NICK - Kinksters - FetLife"). Any other title is ErrNotFound.
func ExtractProfile(doc *goquery.Document, id int64) (Profile, error) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	groups := profileTitleRegex.FindStringSubmatch(title)
	if len(groups) < 2 {
		return Profile{}, ErrNotFound
	}
	return Profile{Id: id, Nickname: groups[1]}, nil
}
