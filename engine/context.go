package engine

// ContextItem is a titled piece of extra context attached to a test
type ContextItem struct {
	Title string `json:"title"`
	Value any    `json:"value"`
}

// AddContext attaches value to the runnable's context. The first value is
// stored as-is; later values turn the context into an ordered list.
func AddContext(r *Runnable, value any) {
	if r == nil || value == nil {
		return
	}
	switch existing := r.Context.(type) {
	case nil:
		r.Context = value
	case []any:
		r.Context = append(existing, value)
	default:
		r.Context = []any{existing, value}
	}
}
