package fetlife

import (
	"errors"

	"github.com/PuerkitoBio/goquery"
)

const (
	gap_writing    = "writing"
	gap_group_post = "group_post"
	gap_message    = "message"
)

func ExtractWritings(doc *goquery.Document) ([]Writing, []ExtractionGap) {
	writings := []Writing{}
	var gaps []ExtractionGap

	entryNodes(doc.Selection, "writing").Each(func(i int, entry *goquery.Selection) {
		href, title, _ := firstLink(entry)
		id, err := idFromHref(href)
		if err != nil {
			gaps = append(gaps, ExtractionGap{Kind: gap_writing, Index: i, Href: href, Err: err})
			return
		}
		writings = append(writings, Writing{
			Id:        id,
			Title:     title,
			Link:      href,
			Published: timeOr(entry.Find("time")),
		})
	})

	return writings, gaps
}

// ExtractGroupPosts reads a group's post listing. The first link of an entry is the
// post itself, the author is the first link to a profile.
func ExtractGroupPosts(doc *goquery.Document) ([]GroupPost, []ExtractionGap) {
	posts := []GroupPost{}
	var gaps []ExtractionGap

	entryNodes(doc.Selection, "group_post").Each(func(i int, entry *goquery.Selection) {
		href, title, _ := firstLink(entry)
		id, err := idFromHref(href)
		if err != nil {
			gaps = append(gaps, ExtractionGap{Kind: gap_group_post, Index: i, Href: href, Err: err})
			return
		}
		posts = append(posts, GroupPost{
			Id:        id,
			Title:     title,
			Author:    textOr(entry.Find(`a[href*="/users/"]`).First()),
			Link:      href,
			Published: timeOr(entry.Find("time")),
		})
	})

	return posts, gaps
}

// ExtractMessages reads the conversation list of the inbox, one Message per
// conversation holding its latest message.
func ExtractMessages(doc *goquery.Document) ([]Message, []ExtractionGap) {
	messages := []Message{}
	var gaps []ExtractionGap

	entryNodes(doc.Selection, "conversation").Each(func(i int, entry *goquery.Selection) {
		link := entry.Find(`a[href*="/conversations/"]`).First()
		if link.Length() == 0 {
			gaps = append(gaps, ExtractionGap{Kind: gap_message, Index: i, Err: errors.New("no conversation link")})
			return
		}
		href := link.AttrOr("href", "")
		id, err := idFromHref(href)
		if err != nil {
			gaps = append(gaps, ExtractionGap{Kind: gap_message, Index: i, Href: href, Err: err})
			return
		}

		body := entry.Find(`[class*="message_body"]`).First()
		if body.Length() == 0 {
			body = entry.Find(`[class*="preview"]`).First()
		}
		messages = append(messages, Message{
			Id:     id,
			Sender: textOr(entry.Find(`a[href*="/users/"]`).First()),
			Text:   textOr(body),
			Sent:   timeOr(entry.Find("time")),
			Link:   href,
		})
	})

	return messages, gaps
}
