// Package parser converts board markup into normalized records.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/campusfeed/notice-crawler/internal/notice"
)

// pageSize is the fixed number of rows per listing page; the listing URL is
// parameterized by a zero-based row offset derived from it.
const pageSize = 10

// ListPageURL builds the listing URL for a 1-based page number.
func ListPageURL(base string, page int) string {
	offset := (page - 1) * pageSize
	return fmt.Sprintf("%s?mode=list&articleLimit=%d&article.offset=%d", base, pageSize, offset)
}

// ParseList extracts posting summaries from one listing page, in document
// order. Missing optional sub-fields default to empty strings; a missing
// title anchor leaves Title and URL unset for that item.
func ParseList(markup []byte) ([]notice.ListItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse listing markup: %w", err)
	}

	var items []notice.ListItem
	doc.Find("div.b-title-box").Each(func(_ int, box *goquery.Selection) {
		var item notice.ListItem

		if link := box.Find("a").First(); link.Length() > 0 {
			item.Title = strings.TrimSpace(link.Text())
			item.URL = link.AttrOr("href", "")
		}

		item.IsNew = box.Find(".b-new span").Length() > 0

		item.Views = "0"
		if con := box.Find(".b-m-con").First(); con.Length() > 0 {
			item.IsNotice = con.Find(".b-notice").Length() > 0
			item.Writer = strings.TrimSpace(con.Find(".b-writer").First().Text())
			item.Date = strings.TrimSpace(con.Find(".b-date").First().Text())
			if hit := con.Find(".hit").First(); hit.Length() > 0 {
				// The site renders the counter as "조회수 N".
				item.Views = strings.TrimSpace(strings.ReplaceAll(hit.Text(), "조회수 ", ""))
			}
		}

		items = append(items, item)
	})
	return items, nil
}
