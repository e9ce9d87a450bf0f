package hprof

// ElementParser decodes one T from cur. Stateless parsers (primitive array
// elements) simply ignore idSize; id-size-stateful parsers (ids, field
// descriptors, static-field entries) use it. Go's generics let both flavors
// share one function signature, where the original's iterator adapter needed
// a small zoo of wrapper types (StatelessParser, StatelessParserWithId,
// IdSizeParserWrapper, StatelessParserWrapper) to paper over the same
// distinction - the wrapper layer collapses entirely here.
type ElementParser[T any] func(cur *cursor, idSize IdSize) (T, error)

// ParsingIterator produces exactly Count items by repeatedly applying parse
// to cur, advancing it each time. It is single-use and single-threaded: a
// fresh ParsingIterator must be constructed to re-traverse the same slice.
type ParsingIterator[T any] struct {
	cur    *cursor
	idSize IdSize
	count  uint32
	done   uint32
	parse  ElementParser[T]
	err    error
}

// newParsingIterator builds an iterator over buf, expected to yield exactly
// count items.
func newParsingIterator[T any](buf []byte, base int64, idSize IdSize, count uint32, parse ElementParser[T]) *ParsingIterator[T] {
	return &ParsingIterator[T]{
		cur:    newCursorAt(buf, base),
		idSize: idSize,
		count:  count,
		parse:  parse,
	}
}

// Next returns the next item, or ok=false once Count items have been
// produced. When Count is zero and the underlying cursor still holds bytes,
// that is reported as a malformed-input error rather than silently
// ignored; leftover bytes after a non-zero Count are not checked.
func (it *ParsingIterator[T]) Next() (item T, ok bool, err error) {
	if it.err != nil {
		return item, false, it.err
	}
	if it.done >= it.count {
		if it.count == 0 && it.cur.len() > 0 {
			it.err = it.cur.malformed("trailing bytes after zero-length parsing iterator")
			return item, false, it.err
		}
		return item, false, nil
	}
	v, err := it.parse(it.cur, it.idSize)
	if err != nil {
		it.err = err
		return item, false, err
	}
	it.done++
	return v, true, nil
}

// Collect drains the iterator into a slice, stopping at the first error.
func Collect[T any](it *ParsingIterator[T]) ([]T, error) {
	out := make([]T, 0, it.count)
	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

