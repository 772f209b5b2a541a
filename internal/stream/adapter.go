package stream

// Adapter exposes this package to the cycle runtime. It satisfies
// cycle.Adapter[*stream.Stream].
type Adapter struct{}

// MakeEmpty returns a fresh proxy stream.
func (Adapter) MakeEmpty() *Stream {
	return NewProxy()
}

// FromValue returns a stream of the elements of v when v is a []any, and a
// single-value stream otherwise.
func (Adapter) FromValue(v any) *Stream {
	if items, ok := v.([]any); ok {
		return FromSlice(items)
	}
	return Of(v)
}

// IsValid reports whether candidate is a non-nil *Stream.
func (Adapter) IsValid(candidate any) bool {
	s, ok := candidate.(*Stream)
	return ok && s != nil
}

// Imitate binds placeholder to source and returns the function that cuts the
// link.
func (Adapter) Imitate(placeholder, source *Stream, onError func(err error)) (func(), error) {
	if placeholder == nil || source == nil {
		return nil, ErrNilStream
	}
	sub, err := placeholder.Imitate(source, onError)
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// ObserveErrors returns s tapped with Do: onError sees every error s emits
// before it travels on.
func (Adapter) ObserveErrors(s *Stream, onError func(err error)) *Stream {
	if s == nil || onError == nil {
		return s
	}
	return s.Do(Listener{Error: onError})
}
