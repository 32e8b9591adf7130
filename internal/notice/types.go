// Package notice defines core types shared across subsystems.
package notice

import "time"

// KST is the fixed UTC+9 offset every schedule timestamp is interpreted in,
// regardless of the ambient locale of the posting.
var KST = time.FixedZone("KST", 9*60*60)

// Sentinel schedule bounds. The enrichment source emits these verbatim for
// "already open" and "open-ended" schedules, and the store must round-trip
// them unchanged.
var (
	ScheduleBeginSentinel = time.Date(1970, 1, 1, 0, 0, 0, 0, KST)
	ScheduleEndSentinel   = time.Date(9999, 12, 31, 23, 59, 59, 0, KST)
)

// Posting is one notice scraped from a board, together with its owned
// children. The Fingerprint is a pure function of Title and acts as the
// dedup key: identical titles collide by design.
type Posting struct {
	ID              int64
	Title           string
	Content         string
	Writer          string
	WriterEmail     string
	PublishDate     *time.Time // nil when the source date failed to parse
	IsNotice        bool
	SummaryTitle    string
	SummaryContent  string
	MarkdownContent string
	OriginalURL     string
	IgnoreFlag      bool
	Fingerprint     string
	Category        int
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Images    []Image
	Files     []Attachment
	Schedules []Schedule
}

// Image is an inline image owned by exactly one Posting.
type Image struct {
	ID        int64
	URL       string
	PostingID int64
}

// Attachment is a downloadable file owned by exactly one Posting.
type Attachment struct {
	ID        int64
	Filename  string
	URL       string
	PostingID int64
	CreatedAt time.Time
}

// Schedule is an actionable date range extracted from a posting body.
// Begin <= End is deliberately not enforced: sentinel bounds are stored
// verbatim.
type Schedule struct {
	ID          int64
	Title       string
	Description string
	Begin       time.Time
	End         time.Time
	IsIgnored   bool
	PostingID   int64
	CreatedAt   time.Time
}

// Webhook is a notification destination. It transitions active -> inactive
// when delivery reports the endpoint gone, and never back automatically.
type Webhook struct {
	ID        int64
	URL       string
	IsActive  bool
	CreatedAt time.Time
}

// Board is one notice board to crawl. Category tags every posting ingested
// from it.
type Board struct {
	Name     string
	URL      string
	Category int
}

// ListItem is one row of a board listing page.
type ListItem struct {
	Title    string
	URL      string // relative link to the detail page
	IsNew    bool
	IsNotice bool
	Writer   string
	Date     string
	Views    string
}

// Summary is the cosmetic enrichment result for one posting.
type Summary struct {
	Title    string
	Content  string
	Markdown string
}
