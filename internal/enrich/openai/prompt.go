package openai

import "fmt"

func summaryPrompt(title, content string) string {
	return fmt.Sprintf(`Analyze the following university department notice.

Notice:
- Title: %s
- Body: %s

Produce:
1. summary_title: a concise title carrying the key point (at most 45 characters).
2. summary_content: a short summary of what matters (at most 100 characters).
3. markdown_content: the full body rewritten as reader-friendly markdown,
   preserving the original meaning. Emoji are allowed.`, title, content)
}

func schedulePrompt(title, content string) string {
	return fmt.Sprintf(`Extract every schedule a student must act on from the
following university department notice: application windows, submission
deadlines, registration and payment periods, including always-open ones.
Skip plain event announcements and informational posts that require no
action (unless prior sign-up is mandatory).

Notice:
- Title: %s
- Body: %s

For each schedule emit title, description, begin and end.
- All timestamps are KST (UTC+9) and must be returned in
  'YYYY-MM-DDTHH:MM:SS+09:00' form.
- If only a deadline is stated and no start, set begin to
  1970-01-01T00:00:00+09:00 (meaning: already open).
- If the schedule is open-ended ("always accepting", no deadline), set end to
  9999-12-31T23:59:59+09:00 (meaning: indefinite).
- When a time of day is not stated, use 00:00:00 for begin and 23:59:59 for
  end.
- Resolve dates without a year against the current year.
- If there is nothing to extract, return an empty items list.`, title, content)
}
