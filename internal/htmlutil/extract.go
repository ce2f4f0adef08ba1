package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Card is one model card extracted from a listing page: the link target
// plus the card's flattened text content.
type Card struct {
	Href string
	Text string
}

// Cards returns every anchor whose href starts with the given path
// prefix, paired with its trimmed text. Whitespace runs inside the text
// are collapsed to single spaces so downstream regexes see a stable
// shape regardless of the page's markup nesting.
func Cards(doc *goquery.Document, hrefPrefix string) []Card {
	var cards []Card
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.HasPrefix(href, hrefPrefix) {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		cards = append(cards, Card{Href: href, Text: text})
	})
	return cards
}

// TextOf returns the trimmed text of the first element matching the selector.
func TextOf(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}
