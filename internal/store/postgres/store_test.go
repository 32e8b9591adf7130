package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusfeed/notice-crawler/internal/hash/sha256"
	"github.com/campusfeed/notice-crawler/internal/notice"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock, zap.NewNop())
	require.NoError(t, err)
	return store, mock
}

func TestExistsTrue(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	const title = "2025 Scholarship Notice"

	mock.ExpectQuery("SELECT 1 FROM postings").
		WithArgs(sha256.Fingerprint(title)).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	known, err := store.Exists(context.Background(), title)
	require.NoError(t, err)
	require.True(t, known)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsFalseOnNoRows(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT 1 FROM postings").
		WithArgs(sha256.Fingerprint("Unseen Notice")).
		WillReturnError(pgx.ErrNoRows)

	known, err := store.Exists(context.Background(), "Unseen Notice")
	require.NoError(t, err)
	require.False(t, known)
	require.NoError(t, mock.ExpectationsWereMet())
}

func samplePosting() notice.Posting {
	publish := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	return notice.Posting{
		Title:           "2025 Scholarship Notice",
		Content:         "Apply by March 31.",
		Writer:          "학과사무실",
		WriterEmail:     "cse@cnu.ac.kr",
		PublishDate:     &publish,
		IsNotice:        true,
		SummaryTitle:    "Scholarship applications open",
		SummaryContent:  "Apply by March 31.",
		MarkdownContent: "# Scholarship",
		OriginalURL:     "https://computer.cnu.ac.kr/computer/notice/bachelor.do?mode=view&articleNo=101",
		Category:        0,
		Images:          []notice.Image{{URL: "https://computer.cnu.ac.kr/upload/poster.png"}},
		Files: []notice.Attachment{
			{Filename: "guide.pdf", URL: "https://computer.cnu.ac.kr/computer/notice/bachelor.do?mode=download&num=1"},
		},
		Schedules: []notice.Schedule{
			{
				Title: "Scholarship application",
				Begin: notice.ScheduleBeginSentinel,
				End:   time.Date(2025, 3, 31, 23, 59, 59, 0, notice.KST),
			},
		},
	}
}

func expectPostingInsert(mock pgxmock.PgxPoolIface, p notice.Posting, id int64) {
	now := time.Now()
	mock.ExpectQuery("INSERT INTO postings").
		WithArgs(
			p.Title, p.Content, p.Writer, p.WriterEmail, p.PublishDate, p.IsNotice,
			p.SummaryTitle, p.SummaryContent, p.MarkdownContent,
			p.OriginalURL, p.IgnoreFlag, sha256.Fingerprint(p.Title), p.Category,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(id, now, now))
}

func TestSaveInsertsParentThenChildren(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	p := samplePosting()

	expectPostingInsert(mock, p, 7)
	mock.ExpectExec("INSERT INTO posting_images").
		WithArgs(p.Images[0].URL, int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO posting_files").
		WithArgs(p.Files[0].Filename, p.Files[0].URL, int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO schedules").
		WithArgs(p.Schedules[0].Title, p.Schedules[0].Description,
			p.Schedules[0].Begin, p.Schedules[0].End, false, int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	saved, err := store.Save(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, int64(7), saved.ID)
	require.Equal(t, sha256.Fingerprint(p.Title), saved.Fingerprint)
	require.Equal(t, int64(7), saved.Images[0].PostingID)
	require.Equal(t, int64(7), saved.Schedules[0].PostingID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCompensatesOnChildFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	p := samplePosting()

	expectPostingInsert(mock, p, 9)
	mock.ExpectExec("INSERT INTO posting_images").
		WithArgs(p.Images[0].URL, int64(9)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// The attachment insert fails after parent and image already landed.
	mock.ExpectExec("INSERT INTO posting_files").
		WithArgs(p.Files[0].Filename, p.Files[0].URL, int64(9)).
		WillReturnError(errors.New("disk full"))

	mock.ExpectExec("DELETE FROM schedules").
		WithArgs(int64(9)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM posting_files").
		WithArgs(int64(9)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM posting_images").
		WithArgs(int64(9)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM postings").
		WithArgs(int64(9)).WillReturnResult(pgxmock.NewResult("DELETE", 1))

	_, err := store.Save(context.Background(), p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCompensationSurvivesCleanupFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	p := samplePosting()

	expectPostingInsert(mock, p, 11)
	mock.ExpectExec("INSERT INTO posting_images").
		WithArgs(p.Images[0].URL, int64(11)).
		WillReturnError(errors.New("image insert failed"))

	// One cleanup call fails; every remaining table is still attempted and
	// the original error is preserved.
	mock.ExpectExec("DELETE FROM schedules").
		WithArgs(int64(11)).WillReturnError(errors.New("cleanup hiccup"))
	mock.ExpectExec("DELETE FROM posting_files").
		WithArgs(int64(11)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM posting_images").
		WithArgs(int64(11)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM postings").
		WithArgs(int64(11)).WillReturnResult(pgxmock.NewResult("DELETE", 1))

	_, err := store.Save(context.Background(), p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "image insert failed")
	require.NotContains(t, err.Error(), "cleanup hiccup")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSchedulesUnknownTitleIsNoOp(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM postings").
		WithArgs(sha256.Fingerprint("Unknown Notice")).
		WillReturnError(pgx.ErrNoRows)

	err := store.ReplaceSchedules(context.Background(), "Unknown Notice", []notice.Schedule{
		{Title: "ignored", Begin: notice.ScheduleBeginSentinel, End: notice.ScheduleEndSentinel},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSchedulesDeletesThenInserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	const title = "2025 Scholarship Notice"

	newSet := []notice.Schedule{
		{Title: "Round 1", Begin: notice.ScheduleBeginSentinel, End: time.Date(2025, 4, 1, 23, 59, 59, 0, notice.KST)},
		{Title: "Round 2", Begin: time.Date(2025, 5, 1, 0, 0, 0, 0, notice.KST), End: notice.ScheduleEndSentinel},
	}

	mock.ExpectQuery("SELECT id FROM postings").
		WithArgs(sha256.Fingerprint(title)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("DELETE FROM schedules").
		WithArgs(int64(7)).WillReturnResult(pgxmock.NewResult("DELETE", 3))
	for _, sched := range newSet {
		mock.ExpectExec("INSERT INTO schedules").
			WithArgs(sched.Title, sched.Description, sched.Begin, sched.End, false, int64(7)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	err := store.ReplaceSchedules(context.Background(), title, newSet)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentPostings(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, title, content").
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "title", "content", "writer", "writer_email", "publish_date",
			"is_notice", "summary_title", "summary_content", "markdown_content",
			"original_url", "ignore_flag", "fingerprint", "category",
			"created_at", "updated_at",
		}).
			AddRow(int64(2), "B", "", "", "", (*time.Time)(nil), false, "", "", "", "u2", false, "f2", 1, now, now).
			AddRow(int64(1), "A", "", "", "", (*time.Time)(nil), false, "", "", "", "u1", false, "f1", 0, now, now))

	postings, err := store.RecentPostings(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, postings, 2)
	require.Equal(t, "B", postings[0].Title)
	require.Nil(t, postings[0].PublishDate)
	require.NoError(t, mock.ExpectationsWereMet())
}
