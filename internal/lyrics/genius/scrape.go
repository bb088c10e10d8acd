package genius

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

var (
	lineBreak      = regexp.MustCompile(`(?i)<br\s*/?>`)
	excessiveBreak = regexp.MustCompile(`\n{3,}`)
)

// Lyrics scrapes the lyrics text from a song page. path is the song's site path ("/Eminem-lose-yourself-lyrics")
// or an absolute URL.
func (c *Client) Lyrics(ctx context.Context, path string) (string, error) {
	pageURL := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		pageURL = c.webURL + path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &Error{Op: "lyrics", Err: errors.Wrap(err, "create request")}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	body, err := c.fetch(req)
	if err != nil {
		return "", &Error{Op: "lyrics", Err: err}
	}

	text, err := extractLyrics(body)
	if err != nil {
		return "", &Error{Op: "lyrics", Err: err}
	}
	return text, nil
}

// extractLyrics pulls the text of every lyrics container, keeping line breaks.
func extractLyrics(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", errors.Wrap(err, "parse HTML")
	}

	var html strings.Builder
	doc.Find(`[data-lyrics-container="true"]`).Each(func(i int, s *goquery.Selection) {
		s.Find(`[data-exclude-from-selection="true"]`).Remove()
		inner, err := s.Html()
		if err != nil {
			return
		}
		if i > 0 {
			html.WriteString("<br/>")
		}
		html.WriteString(inner)
	})
	if html.Len() == 0 {
		return "", ErrNoLyrics
	}

	withBreaks := lineBreak.ReplaceAllString(html.String(), "\n")
	textDoc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + withBreaks + "</div>"))
	if err != nil {
		return "", errors.Wrap(err, "parse lyrics HTML")
	}

	return cleanLyrics(textDoc.Text()), nil
}

// cleanLyrics trims lines and makes sure every bracketed section label starts a new block.
func cleanLyrics(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		out = append(out, line)
	}
	joined := strings.Join(out, "\n")
	return strings.TrimSpace(excessiveBreak.ReplaceAllString(joined, "\n\n"))
}
