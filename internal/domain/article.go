package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RawPayload is a single news item as delivered by an upstream news
// provider, before normalization. Field presence is not guaranteed.
type RawPayload struct {
	Title         string
	Summary       string
	URL           string
	Source        string
	TimePublished time.Time
	Relevance     float64
}

// Article is a normalized, deduplicated news article. Immutable once
// created by the normalizer.
type Article struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// ArticleID derives the stable article identity from source and URL.
// Two payloads describing the same article always map to the same ID.
func ArticleID(source, url string) string {
	sum := sha256.Sum256([]byte(source + "\x00" + url))
	return hex.EncodeToString(sum[:16])
}
