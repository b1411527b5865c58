// Package pagination maps a variable-length collection onto fixed-size pages.
package pagination

import (
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/rivo/uniseg"
)

const (
	DefaultPageSize = 5
	Ellipsis        = "…"
)

// Page describes one clamped page of a collection.
type Page struct {
	Index   int
	Count   int
	Offset  int
	Limit   int
	HasPrev bool
	HasNext bool
}

// Paginate clamps page into range and computes the slice bounds for it.
// Callers render an empty state instead of paginating when total is zero.
func Paginate(total, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}

	count := (total + pageSize - 1) / pageSize
	if count < 1 {
		count = 1
	}

	if page < 0 {
		page = 0
	}
	if page > count-1 {
		page = count - 1
	}

	return Page{
		Index:   page,
		Count:   count,
		Offset:  page * pageSize,
		Limit:   pageSize,
		HasPrev: page > 0,
		HasNext: page < count-1,
	}
}

// Synopsis collapses whitespace and cuts text to at most limit grapheme
// clusters, ending with an ellipsis when something was cut.
func Synopsis(text string, limit int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if limit <= 0 || uniseg.GraphemeClusterCount(collapsed) <= limit {
		return collapsed
	}

	keep := limit - 1
	if keep == 0 {
		return Ellipsis
	}

	var b strings.Builder
	gr := uniseg.NewGraphemes(collapsed)
	for i := 0; i < keep && gr.Next(); i++ {
		b.WriteString(gr.Str())
	}

	return strings.TrimRight(b.String(), " ") + Ellipsis
}

// Clip cuts text to at most limit UTF-16 code units, the unit Telegram
// measures message length in. Line breaks are kept and grapheme clusters
// are never split. A cut text ends with an ellipsis.
func Clip(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if TextLength(text) <= limit {
		return text
	}

	budget := limit - TextLength(Ellipsis)
	var b strings.Builder
	gr := uniseg.NewGraphemes(text)
	for used := 0; gr.Next(); {
		cluster := gr.Str()
		n := TextLength(cluster)
		if used+n > budget {
			break
		}
		b.WriteString(cluster)
		used += n
	}

	return strings.TrimRightFunc(b.String(), unicode.IsSpace) + Ellipsis
}

// TextLength counts text in UTF-16 code units.
func TextLength(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}
