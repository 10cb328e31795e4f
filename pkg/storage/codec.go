package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"clipharvest/pkg/models"
)

// Columns is the result table header, in order.
var Columns = []string{
	"url", "ai_label", "sensitive_topic", "views", "likes", "comments",
	"shares", "hashtags", "publishedAt", "country", "platform",
}

const legacyTimeLayout = "2006-01-02 15:04:05"

func encodeRecord(r *models.VideoRecord) []string {
	published := ""
	if !r.PublishedAt.IsZero() {
		published = r.PublishedAt.UTC().Format(time.RFC3339)
	}
	shares := ""
	if r.Shares != nil {
		shares = strconv.FormatInt(*r.Shares, 10)
	}

	return []string{
		string(r.URL),
		encodeBool(r.AILabel),
		encodeBool(r.SensitiveTopic),
		strconv.FormatInt(r.Views, 10),
		strconv.FormatInt(r.Likes, 10),
		strconv.FormatInt(r.Comments, 10),
		shares,
		EncodeHashtags(r.Hashtags),
		published,
		r.Country,
		string(r.Platform),
	}
}

func encodeBool(b *bool) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return "1"
	default:
		return "0"
	}
}

// EncodeHashtags renders hashtags as a list literal, e.g. ['#a', '#b'].
func EncodeHashtags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = "'" + t + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// DecodeHashtags parses a list literal or a JSON array of strings.
func DecodeHashtags(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("hashtags %q is not a list", s)
	}

	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err == nil {
		return tags, nil
	}

	for _, part := range strings.Split(s[1:len(s)-1], ",") {
		part = strings.Trim(strings.TrimSpace(part), `'"`)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags, nil
}

func decodeBool(s string) (*bool, error) {
	switch strings.TrimSpace(s) {
	case "":
		return nil, nil
	case "1", "1.0", "true", "True", "TRUE":
		return models.Bool(true), nil
	case "0", "0.0", "false", "False", "FALSE":
		return models.Bool(false), nil
	default:
		return nil, fmt.Errorf("invalid boolean %q", s)
	}
}

// decodeCount accepts integers and integral floats such as "12.0".
func decodeCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int64(f), nil
}

func decodeTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(legacyTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid publishedAt %q", s)
	}
	return t.UTC(), nil
}

// decodeTable reads a table by header name, so column order and extra
// columns do not matter. Only url is required.
func decodeTable(r io.Reader) ([]models.VideoRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := index["url"]; !ok {
		return nil, fmt.Errorf("missing url column")
	}

	var records []models.VideoRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec, err := decodeRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.URL == "" {
			continue
		}
		records = append(records, rec)
	}
}

func decodeRow(row []string, index map[string]int) (models.VideoRecord, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var (
		rec models.VideoRecord
		err error
	)
	rec.URL = models.CanonicalURL(strings.TrimSpace(field("url")))
	if rec.AILabel, err = decodeBool(field("ai_label")); err != nil {
		return rec, err
	}
	if rec.SensitiveTopic, err = decodeBool(field("sensitive_topic")); err != nil {
		return rec, err
	}
	if rec.Views, err = decodeCount(field("views")); err != nil {
		return rec, err
	}
	if rec.Likes, err = decodeCount(field("likes")); err != nil {
		return rec, err
	}
	if rec.Comments, err = decodeCount(field("comments")); err != nil {
		return rec, err
	}
	if s := strings.TrimSpace(field("shares")); s != "" {
		n, err := decodeCount(s)
		if err != nil {
			return rec, err
		}
		rec.Shares = models.Int64(n)
	}
	if rec.Hashtags, err = DecodeHashtags(field("hashtags")); err != nil {
		return rec, err
	}
	if rec.PublishedAt, err = decodeTime(field("publishedAt")); err != nil {
		return rec, err
	}
	rec.Country = strings.TrimSpace(field("country"))
	if p := strings.TrimSpace(field("platform")); p != "" {
		platform, err := models.ParsePlatform(p)
		if err != nil {
			return rec, err
		}
		rec.Platform = platform
	}
	return rec, nil
}
