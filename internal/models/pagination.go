package models

// PageRequest holds the parsed page/limit query parameters.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the request to sane bounds: page >= 1, 1 <= limit <= 100.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// Skip returns the number of documents to skip for this page.
func (p PageRequest) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// PageMeta is the pagination block attached to paginated responses.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageMeta computes the pagination block for a filtered total.
// Out-of-range pages are valid: they produce an empty window, not an error.
func NewPageMeta(req PageRequest, total int64) PageMeta {
	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return PageMeta{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}
}
