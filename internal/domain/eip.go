package domain

import (
	"fmt"
	"slices"
)

type Eip struct {
	Number     uint32   `json:"number"`
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	Status     string   `json:"status"`
	Category   string   `json:"category"`
	Created    string   `json:"created,omitempty"`
	Requires   []uint32 `json:"requires,omitempty"`
	Abstract   string   `json:"abstract_text,omitempty"`
	Motivation string   `json:"motivation,omitempty"`
	URL        string   `json:"url"`
}

// Clone returns a copy that shares no slices with e.
func (e Eip) Clone() Eip {
	e.Requires = slices.Clone(e.Requires)
	return e
}

// NewEip returns the minimal record known from a file listing alone.
func NewEip(number uint32) Eip {
	return Eip{
		Number: number,
		Title:  fmt.Sprintf("EIP-%d", number),
		URL:    fmt.Sprintf("https://eips.ethereum.org/EIPS/eip-%d", number),
	}
}

// ResearchTopic is a forum topic as listed by ethresear.ch.
type ResearchTopic struct {
	ID         uint32 `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	CreatedAt  string `json:"created_at"`
	Views      uint32 `json:"views"`
	LikeCount  uint32 `json:"like_count"`
	PostsCount uint32 `json:"posts_count"`
	CategoryID uint32 `json:"category_id"`
}
