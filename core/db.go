package core

// PageRequest asks for a page of a collection, resuming after the position marked by Cursor.
// Cursor is opaque; it must be passed back unmodified.
type PageRequest struct {
	Size   int    `query:"limit"`
	Cursor string `query:"cursor"`
}

// Clean bounds the page size.
func (pr PageRequest) Clean(conf PaginationConfig) PageRequest {
	switch {
	case pr.Size <= 0:
		pr.Size = conf.DefaultSize
	case conf.MaxSize > 0 && pr.Size > conf.MaxSize:
		pr.Size = conf.MaxSize
	}
	pr.Cursor = CleanString(pr.Cursor)
	return pr
}
