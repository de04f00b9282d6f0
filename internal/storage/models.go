package storage

import "time"

// Page is a cached college website page.
type Page struct {
	URL       string    // absolute URL, the primary key
	Path      string    // site-relative path, e.g. "/admissions"
	Title     string
	Text      string    // NFKC-normalized readable text
	Hash      string    // hex sha256 of Text
	FetchedAt time.Time
}
