package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/campusfeed/notice-crawler/internal/notice"
)

// DefaultOrigin is the site origin used to absolutize relative image URLs.
const DefaultOrigin = "https://computer.cnu.ac.kr"

// Detail is the normalized form of one posting detail page.
type Detail struct {
	Title   string
	Writer  string
	Views   string
	Date    string
	Email   string
	Content string
	Images  []string
	Files   []notice.Attachment
}

// DetailParser extracts a Detail from the fixed positional structure of a
// board detail page: a tbody whose rows are title, author, views+date and
// email, plus a content-class body container.
type DetailParser struct {
	// Origin prefixes image srcs that are not already absolute.
	Origin string
}

// Attachment download links come in per-type anchors; a single list item can
// in principle carry more than one of them.
var fileLinkClasses = []string{
	"a.file-down-btn.pdf",
	"a.file-down-btn.hwp",
	"a.file-down-btn.zip",
}

// Parse converts raw detail-page markup into a Detail. Every required
// anchor that is absent yields a wrapped notice.ErrMalformedDocument;
// images and attachments are optional and default to empty.
func (p DetailParser) Parse(markup []byte, baseURL string) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return Detail{}, fmt.Errorf("parse detail markup: %w", err)
	}

	tbody := doc.Find("tbody").First()
	if tbody.Length() == 0 {
		return Detail{}, fmt.Errorf("%w: missing tbody", notice.ErrMalformedDocument)
	}

	var d Detail
	fields := []struct {
		name     string
		selector string
		dst      *string
	}{
		{"title", "td.b-title-box", &d.Title},
		{"writer", "tr:nth-of-type(2) td.b-no-right", &d.Writer},
		{"views", "tr:nth-of-type(3) td", &d.Views},
		{"date", "tr:nth-of-type(3) td.b-no-right", &d.Date},
		{"email", "tr:nth-of-type(4) td.b-no-right", &d.Email},
	}
	for _, f := range fields {
		cell := tbody.Find(f.selector).First()
		if cell.Length() == 0 {
			return Detail{}, fmt.Errorf("%w: missing %s cell", notice.ErrMalformedDocument, f.name)
		}
		*f.dst = strings.TrimSpace(cell.Text())
	}

	body := tbody.Find("div.fr-view").First()
	if body.Length() == 0 {
		return Detail{}, fmt.Errorf("%w: missing body container", notice.ErrMalformedDocument)
	}
	d.Content = textWithLineBreaks(body)

	origin := p.Origin
	if origin == "" {
		origin = DefaultOrigin
	}
	body.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		if !strings.HasPrefix(src, "http") {
			src = origin + src
		}
		d.Images = append(d.Images, src)
	})

	doc.Find("div.b-file-box ul li").Each(func(_ int, li *goquery.Selection) {
		for _, class := range fileLinkClasses {
			link := li.Find(class).First()
			if link.Length() == 0 {
				continue
			}
			d.Files = append(d.Files, notice.Attachment{
				Filename: strings.TrimSpace(link.Text()),
				URL:      baseURL + link.AttrOr("href", ""),
			})
		}
	})

	return d, nil
}

// textWithLineBreaks renders the text content of a selection with each text
// node on its own line, preserving internal line breaks instead of
// collapsing them to spaces.
func textWithLineBreaks(s *goquery.Selection) string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}
