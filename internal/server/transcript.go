package server

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// trailing window of transcript fed to question generation, in seconds
const transcriptWindowSeconds = 60

type timedTextDocument struct {
	XMLName xml.Name       `xml:"transcript"`
	Lines   []timedTextCue `xml:"text"`
}

type timedTextCue struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Text     string  `xml:",chardata"`
}

// fetchCaptions pulls the caption track for a video. Manually uploaded tracks
// are tried first, then the auto-generated track.
func (s *Server) fetchCaptions(ctx context.Context, videoID, language string) ([]timedTextCue, error) {
	for _, kind := range []string{"", "asr"} {
		cues, err := s.fetchCaptionTrack(ctx, videoID, language, kind)
		if err != nil {
			continue
		}
		if len(cues) > 0 {
			return cues, nil
		}
	}
	return nil, fmt.Errorf("no captions available for video %s", videoID)
}

func (s *Server) fetchCaptionTrack(ctx context.Context, videoID, language, kind string) ([]timedTextCue, error) {
	query := url.Values{}
	query.Set("v", videoID)
	query.Set("lang", language)
	if kind != "" {
		query.Set("kind", kind)
	}
	endpoint := s.cfg.CaptionBaseURL + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption request failed (%d)", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

func parseTimedText(data []byte) ([]timedTextCue, error) {
	var doc timedTextDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("caption track is not valid timedtext XML")
	}
	cues := make([]timedTextCue, 0, len(doc.Lines))
	for _, cue := range doc.Lines {
		text := strings.TrimSpace(html.UnescapeString(cue.Text))
		if text == "" {
			continue
		}
		cue.Text = text
		cues = append(cues, cue)
	}
	return cues, nil
}

// transcriptSegment returns the transcript text for the trailing window that
// ends at the pause point, so questions cover what was just watched.
func (s *Server) transcriptSegment(ctx context.Context, videoID, language string, pauseAt float64) (string, error) {
	cues, err := s.fetchCaptions(ctx, videoID, language)
	if err != nil {
		return "", err
	}
	return windowText(cues, pauseAt), nil
}

func windowText(cues []timedTextCue, pauseAt float64) string {
	start := pauseAt - transcriptWindowSeconds
	if start < 0 {
		start = 0
	}
	parts := make([]string, 0, len(cues))
	for _, cue := range cues {
		end := cue.Start + cue.Duration
		if end <= start || cue.Start >= pauseAt {
			continue
		}
		parts = append(parts, cue.Text)
	}
	return strings.Join(parts, " ")
}

// probeCaptions checks at create time that a caption track exists, so a host
// finds out before the class is assembled rather than at the first boundary.
func (s *Server) probeCaptions(ctx context.Context, videoID, language string) error {
	cues, err := s.fetchCaptions(ctx, videoID, language)
	if err != nil {
		return err
	}
	if len(cues) == 0 {
		return fmt.Errorf("caption track for video %s is empty", videoID)
	}
	return nil
}
