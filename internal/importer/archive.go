package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// Archive reads the data export of the microblog platform: JavaScript
// files of the form `window.YTD.tweets.part0 = [...]` holding tweet or
// like entries.
type Archive struct {
	// Handle and DisplayName describe the account that produced the
	// export. Tweets in the export do not carry their author.
	Handle      string
	DisplayName string
}

func (*Archive) Format() string { return "archive" }

var (
	ytdPrefixRe   = regexp.MustCompile(`^\s*window\.YTD\.[A-Za-z0-9_.]+\s*=\s*`)
	statusOwnerRe = regexp.MustCompile(`(?:twitter|x)\.com/([A-Za-z0-9_]+)/status/`)
)

// flexInt accepts counters encoded either as numbers or as strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type archiveURL struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
	DisplayURL  string `json:"display_url"`
}

type archiveMedia struct {
	URL           string `json:"url"`
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
	VideoInfo     struct {
		DurationMillis flexInt `json:"duration_millis"`
		Variants       []struct {
			Bitrate     flexInt `json:"bitrate"`
			ContentType string  `json:"content_type"`
			URL         string  `json:"url"`
		} `json:"variants"`
	} `json:"video_info"`
}

type archiveTweet struct {
	IDStr               string  `json:"id_str"`
	ID                  string  `json:"id"`
	FullText            string  `json:"full_text"`
	CreatedAt           string  `json:"created_at"`
	FavoriteCount       flexInt `json:"favorite_count"`
	RetweetCount        flexInt `json:"retweet_count"`
	InReplyToScreenName string  `json:"in_reply_to_screen_name"`
	Entities            struct {
		Hashtags []struct {
			Text string `json:"text"`
		} `json:"hashtags"`
		UserMentions []struct {
			ScreenName string `json:"screen_name"`
		} `json:"user_mentions"`
		URLs []archiveURL `json:"urls"`
	} `json:"entities"`
	ExtendedEntities struct {
		Media []archiveMedia `json:"media"`
	} `json:"extended_entities"`
}

type archiveLike struct {
	TweetID     string `json:"tweetId"`
	FullText    string `json:"fullText"`
	ExpandedURL string `json:"expandedUrl"`
}

type archiveEntry struct {
	Tweet *archiveTweet `json:"tweet"`
	Like  *archiveLike  `json:"like"`
}

// Parse implements Adapter.
func (a *Archive) Parse(r io.Reader) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, malformed("read archive: %v", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	raw = ytdPrefixRe.ReplaceAll(raw, nil)
	raw = bytes.TrimRight(bytes.TrimSpace(raw), ";")

	var entries []archiveEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return Result{}, malformed("decode archive: %v", err)
	}

	res := Result{Posts: make([]*domain.CanonicalPost, 0, len(entries))}
	for _, e := range entries {
		switch {
		case e.Tweet != nil:
			p, err := a.fromTweet(e.Tweet)
			if err != nil {
				res.Skipped++
				continue
			}
			res.Posts = append(res.Posts, p)
		case e.Like != nil && strings.TrimSpace(e.Like.TweetID) != "":
			res.Posts = append(res.Posts, fromLike(e.Like))
		default:
			res.Skipped++
		}
	}
	return res, nil
}

func (a *Archive) fromTweet(t *archiveTweet) (*domain.CanonicalPost, error) {
	id := strings.TrimSpace(t.IDStr)
	if id == "" {
		id = strings.TrimSpace(t.ID)
	}
	if id == "" {
		return nil, errors.New("tweet without id")
	}

	text := t.FullText
	ents := domain.Entities{URLs: []domain.URLEntity{}, Hashtags: []string{}, Mentions: []string{}}
	for _, u := range t.Entities.URLs {
		if u.URL != "" && u.ExpandedURL != "" {
			text = strings.ReplaceAll(text, u.URL, u.ExpandedURL)
		}
		if u.ExpandedURL != "" {
			ents.URLs = append(ents.URLs, domain.URLEntity{URL: u.ExpandedURL, DisplayText: u.DisplayURL})
		}
	}
	for _, h := range t.Entities.Hashtags {
		ents.Hashtags = append(ents.Hashtags, h.Text)
	}
	for _, m := range t.Entities.UserMentions {
		ents.Mentions = append(ents.Mentions, m.ScreenName)
	}

	media := make([]domain.Media, 0, len(t.ExtendedEntities.Media))
	for _, m := range t.ExtendedEntities.Media {
		if m.URL != "" {
			text = strings.ReplaceAll(text, m.URL, "")
		}
		media = append(media, archiveMediaItem(m))
	}

	p := &domain.CanonicalPost{
		ExternalID: id,
		Platform:   domain.PlatformMicroblog,
		Author: domain.Author{
			Handle:      a.Handle,
			DisplayName: a.DisplayName,
		},
		Text:              strings.TrimSpace(text),
		Entities:          ents,
		Metrics:           domain.Metrics{Likes: int64(t.FavoriteCount), Reshares: int64(t.RetweetCount)},
		Media:             media,
		IsReply:           t.InReplyToScreenName != "",
		ReplyToHandle:     t.InReplyToScreenName,
		OriginalCreatedAt: parseDate(t.CreatedAt),
	}
	if p.Author.DisplayName == "" {
		p.Author.DisplayName = a.Handle
	}
	p.SourceURL = statusURL(a.Handle, id)
	return p, nil
}

func archiveMediaItem(m archiveMedia) domain.Media {
	item := domain.Media{Kind: domain.MediaImage, URL: m.MediaURLHTTPS, ThumbnailURL: m.MediaURLHTTPS}
	if m.Type != "video" && m.Type != "animated_gif" {
		return item
	}

	item.Kind = domain.MediaVideo
	if m.Type == "animated_gif" {
		item.Kind = domain.MediaGIF
	}
	variants := m.VideoInfo.Variants
	sort.SliceStable(variants, func(i, j int) bool { return variants[i].Bitrate > variants[j].Bitrate })
	for _, v := range variants {
		if v.ContentType == "video/mp4" {
			item.URL = v.URL
			break
		}
	}
	if ms := m.VideoInfo.DurationMillis; ms > 0 {
		secs := float64(ms) / 1000
		item.DurationSeconds = &secs
	}
	return item
}

func fromLike(l *archiveLike) *domain.CanonicalPost {
	handle := ""
	if m := statusOwnerRe.FindStringSubmatch(l.ExpandedURL); m != nil && m[1] != "i" {
		handle = m[1]
	}
	src := l.ExpandedURL
	if src == "" {
		src = statusURL(handle, l.TweetID)
	}
	return &domain.CanonicalPost{
		ExternalID: strings.TrimSpace(l.TweetID),
		Platform:   domain.PlatformMicroblog,
		SourceURL:  src,
		Author:     domain.Author{Handle: handle, DisplayName: handle},
		Text:       strings.TrimSpace(l.FullText),
	}
}

func statusURL(handle, id string) string {
	if handle == "" {
		return "https://x.com/i/web/status/" + id
	}
	return "https://x.com/" + handle + "/status/" + id
}
