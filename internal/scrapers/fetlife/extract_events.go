package fetlife

import (
	"errors"
	"strings"

	"fetlife-adapter/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	gap_event    = "event"
	gap_attendee = "attendee"
)

// ExtractEventListing reads `ul.event_listings > li` entries in document order. Each
// entry is positional: its first link is the title and permalink, its first child div
// the start time and its second child div the venue.
func ExtractEventListing(doc *goquery.Document) ([]Event, []ExtractionGap) {
	events := []Event{}
	var gaps []ExtractionGap

	doc.Find(`ul[class*="event_listings"] > li`).Each(func(i int, li *goquery.Selection) {
		href, title, ok := firstLink(li)
		if !ok {
			gaps = append(gaps, ExtractionGap{Kind: gap_event, Index: i, Err: errors.New("no link")})
			return
		}
		id, err := idFromHref(href)
		if err != nil {
			gaps = append(gaps, ExtractionGap{Kind: gap_event, Index: i, Href: href, Err: err})
			return
		}

		divs := li.ChildrenFiltered("div")
		events = append(events, Event{
			Id:        id,
			Title:     title,
			Link:      href,
			StartTime: textOr(divs.Eq(0)),
			Venue:     textOr(divs.Eq(1)),
		})
	})

	return events, gaps
}

// ExtractEventDetail reads the event page of the given id. A page without a title is
// reported as ErrNotFound.
func ExtractEventDetail(doc *goquery.Document, id int64, link string) (Event, error) {
	title := htmlutil.DocClassContains(doc, "event_title").First()
	if title.Length() == 0 || strings.TrimSpace(title.Text()) == "" {
		title = doc.Find("h1").First()
	}
	if title.Length() == 0 || strings.TrimSpace(title.Text()) == "" {
		return Event{}, ErrNotFound
	}

	return Event{
		Id:        id,
		Title:     textOr(title),
		Link:      link,
		StartTime: timeOr(htmlutil.DocClassContains(doc, "dtstart")),
		Venue:     textOr(htmlutil.DocClassContains(doc, "location").First()),
	}, nil
}

// ExtractAttendees reads one page of RSVPs. A missing comment becomes Unknown.
func ExtractAttendees(doc *goquery.Document) ([]Attendee, []ExtractionGap) {
	attendees := []Attendee{}
	var gaps []ExtractionGap

	entryNodes(doc.Selection, "attendee").Each(func(i int, entry *goquery.Selection) {
		links := outsideComments(entry, entry.Find(`a[href*="/users/"]`))
		if links.Length() == 0 {
			gaps = append(gaps, ExtractionGap{Kind: gap_attendee, Index: i, Err: errors.New("no profile link")})
			return
		}
		// avatars link to the profile too, the nickname is on the first link with text
		profile := links.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) != ""
		}).First()
		if profile.Length() == 0 {
			profile = links.First()
		}
		href := profile.AttrOr("href", "")
		id, err := idFromHref(href)
		if err != nil {
			gaps = append(gaps, ExtractionGap{Kind: gap_attendee, Index: i, Href: href, Err: err})
			return
		}

		attendees = append(attendees, Attendee{
			Profile: Profile{Id: id, Nickname: textOr(profile)},
			Comment: textOr(entry.Find(commentSelector).First()),
		})
	})

	return attendees, gaps
}
