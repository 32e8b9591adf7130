package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusfeed/notice-crawler/internal/notice"
)

const detailPage = `
<html><body>
<table>
<tbody>
<tr><td class="b-title-box">  2025 Scholarship Notice  </td></tr>
<tr><th>작성자</th><td class="b-no-right">학과사무실</td></tr>
<tr><td>조회수 152</td><td class="b-no-right">2025.03.02</td></tr>
<tr><th>이메일</th><td class="b-no-right">cse@cnu.ac.kr</td></tr>
<tr><td>
  <div class="fr-view">
    <p>Applications are open for the 2025 spring scholarship.</p>
    <p>Deadline: <strong>March 31</strong></p>
    <img src="/upload/poster.png">
    <img src="https://cdn.example.com/banner.jpg">
  </div>
</td></tr>
</tbody>
</table>
<div class="b-file-box">
  <ul>
    <li>
      <a class="file-down-btn pdf" href="?mode=download&articleNo=101&num=1">guide.pdf</a>
      <a class="file-down-btn hwp" href="?mode=download&articleNo=101&num=2">form.hwp</a>
    </li>
    <li>
      <a class="file-down-btn zip" href="?mode=download&articleNo=101&num=3">bundle.zip</a>
    </li>
  </ul>
</div>
</body></html>`

const baseURL = "https://computer.cnu.ac.kr/computer/notice/bachelor.do"

func TestParseDetail(t *testing.T) {
	t.Parallel()

	d, err := DetailParser{}.Parse([]byte(detailPage), baseURL)
	require.NoError(t, err)

	require.Equal(t, "2025 Scholarship Notice", d.Title)
	require.Equal(t, "학과사무실", d.Writer)
	require.Equal(t, "조회수 152", d.Views)
	require.Equal(t, "2025.03.02", d.Date)
	require.Equal(t, "cse@cnu.ac.kr", d.Email)
}

func TestParseDetailBodyPreservesLineBreaks(t *testing.T) {
	t.Parallel()

	d, err := DetailParser{}.Parse([]byte(detailPage), baseURL)
	require.NoError(t, err)

	lines := strings.Split(d.Content, "\n")
	require.Equal(t, "Applications are open for the 2025 spring scholarship.", lines[0])
	require.Contains(t, lines, "Deadline:")
	require.Contains(t, lines, "March 31")
}

func TestParseDetailResolvesRelativeImages(t *testing.T) {
	t.Parallel()

	d, err := DetailParser{}.Parse([]byte(detailPage), baseURL)
	require.NoError(t, err)

	require.Equal(t, []string{
		DefaultOrigin + "/upload/poster.png",
		"https://cdn.example.com/banner.jpg",
	}, d.Images)
}

func TestParseDetailCollectsTypedAttachments(t *testing.T) {
	t.Parallel()

	d, err := DetailParser{}.Parse([]byte(detailPage), baseURL)
	require.NoError(t, err)

	require.Equal(t, []notice.Attachment{
		{Filename: "guide.pdf", URL: baseURL + "?mode=download&articleNo=101&num=1"},
		{Filename: "form.hwp", URL: baseURL + "?mode=download&articleNo=101&num=2"},
		{Filename: "bundle.zip", URL: baseURL + "?mode=download&articleNo=101&num=3"},
	}, d.Files)
}

func TestParseDetailMissingAnchorsAreMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		markup string
	}{
		{"no tbody", "<html><body><p>gone</p></body></html>"},
		{"no title cell", `<html><body><table><tbody>
			<tr><td>x</td></tr>
			</tbody></table></body></html>`},
		{"no body container", `<html><body><table><tbody>
			<tr><td class="b-title-box">t</td></tr>
			<tr><td class="b-no-right">w</td></tr>
			<tr><td>1</td><td class="b-no-right">2025.01.01</td></tr>
			<tr><td class="b-no-right">a@b.c</td></tr>
			</tbody></table></body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DetailParser{}.Parse([]byte(tt.markup), baseURL)
			require.Error(t, err)
			require.True(t, errors.Is(err, notice.ErrMalformedDocument))
		})
	}
}

func TestParseDetailWithoutFileBox(t *testing.T) {
	t.Parallel()

	markup := `<html><body><table><tbody>
		<tr><td class="b-title-box">t</td></tr>
		<tr><td class="b-no-right">w</td></tr>
		<tr><td>1</td><td class="b-no-right">2025.01.01</td></tr>
		<tr><td class="b-no-right">a@b.c</td></tr>
		<tr><td><div class="fr-view">body text</div></td></tr>
		</tbody></table></body></html>`

	d, err := DetailParser{}.Parse([]byte(markup), baseURL)
	require.NoError(t, err)
	require.Empty(t, d.Images)
	require.Empty(t, d.Files)
	require.Equal(t, "body text", d.Content)
}
