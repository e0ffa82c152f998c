package model

import "strings"

// Column headers the row store must carry. Header names are a contract with
// the sheet and must match exactly.
const (
	ColumnImageURL = "image_url"
	ColumnCaption  = "caption"
)

type ContentRow struct {
	Row       int      // 1-based sheet row (header is row 1) or sqlite id
	ImageURLs []string // 1..n URLs, stored as one comma-delimited cell
	Caption   string
}

// SplitImageField splits a stored image cell on commas, trims each entry and
// drops empty ones. Duplicates are kept in order.
func SplitImageField(field string) []string {
	var urls []string
	for _, part := range strings.Split(field, ",") {
		if u := strings.TrimSpace(part); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// JoinImageURLs is the inverse used when appending rows.
func JoinImageURLs(urls []string) string {
	return strings.Join(urls, ", ")
}

// --- v2 create tweet ---

type TweetReq struct {
	Text  string      `json:"text"`
	Media *TweetMedia `json:"media,omitempty"`
}
type TweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}
type TweetResp struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// --- v1.1 media/upload (simple upload) ---

type MediaUploadResp struct {
	MediaID       int64  `json:"media_id"`
	MediaIDString string `json:"media_id_string"`
}

// --- content-read API ---

type SourcePostResp struct {
	Success bool       `json:"success"`
	Tweet   SourcePost `json:"tweet"`
}
type SourcePost struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
}
