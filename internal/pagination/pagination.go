// Package pagination cuts ordered result sets into fixed-size, 1-based pages.
package pagination

import "math"

// DefaultPageSize is the server-side page size for every list resource.
const DefaultPageSize = 10

// Page is one bounded slice of an ordered result set.
type Page[T any] struct {
	Items        []T
	TotalCount   int
	NextPage     *int
	PreviousPage *int
}

// Request identifies a page by number and size.
type Request struct {
	Number int
	Size   int
}

// Offset returns the index of the first item of the page.
func (r Request) Offset() int {
	n := r.normalized()
	return (n.Number - 1) * n.Size
}

// Limit returns the maximum number of items on the page.
func (r Request) Limit() int {
	return r.normalized().Size
}

func (r Request) normalized() Request {
	if r.Number < 1 {
		r.Number = 1
	}
	if r.Size < 1 {
		r.Size = DefaultPageSize
	}
	// Number saturates so Number*Size cannot overflow.
	if maxNumber := math.MaxInt / r.Size; r.Number > maxNumber {
		r.Number = maxNumber
	}
	return r
}

// Paginate returns the requested page of seq. seq is treated as an immutable
// snapshot; the returned Items slice shares its backing array.
func Paginate[T any](seq []T, page, size int) Page[T] {
	req := Request{Number: page, Size: size}
	start := req.Offset()
	if start > len(seq) {
		start = len(seq)
	}
	end := start + req.Limit()
	if end > len(seq) {
		end = len(seq)
	}
	return FromWindow(seq[start:end], len(seq), req)
}

// FromWindow builds a Page from an already windowed slice and the total size
// of the result set it was cut from.
func FromWindow[T any](items []T, total int, req Request) Page[T] {
	req = req.normalized()
	if items == nil {
		items = []T{}
	}
	p := Page[T]{Items: items, TotalCount: total}
	if req.Number*req.Size < total {
		next := req.Number + 1
		p.NextPage = &next
	}
	if req.Number > 1 {
		prev := req.Number - 1
		if last := lastPage(total, req.Size); prev > last {
			prev = last
		}
		if prev >= 1 {
			p.PreviousPage = &prev
		}
	}
	return p
}

func lastPage(total, size int) int {
	if total == 0 {
		return 0
	}
	return (total + size - 1) / size
}
