package procurement

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// MinSearchTermLength is the shortest supplier search term that reaches the
// remote directory; shorter terms resolve to an empty set with no call.
const MinSearchTermLength = 2

// DefaultSearchDelay is the debounce window between the last keystroke and
// the query it triggers.
const DefaultSearchDelay = 300 * time.Millisecond

// SearchResult carries the outcome of one supplier query, tagged with the
// term that triggered it.
type SearchResult struct {
	Term      string
	Suppliers []Supplier
	Err       error
}

// SupplierSearcher debounces search-as-you-type input against the supplier
// directory. Each issued query carries a monotonically increasing sequence
// number; a response belonging to a superseded query is discarded, so stale
// results never overwrite a more current set.
type SupplierSearcher struct {
	store   Store
	delay   time.Duration
	deliver func(SearchResult)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	applied uint64
	closed  bool
}

// NewSupplierSearcher constructs a searcher delivering results through the
// given callback. A non-positive delay falls back to DefaultSearchDelay.
func NewSupplierSearcher(store Store, delay time.Duration, deliver func(SearchResult)) *SupplierSearcher {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &SupplierSearcher{store: store, delay: delay, deliver: deliver}
}

// Input registers a keystroke's worth of search text. Terms shorter than
// MinSearchTermLength deliver an empty result immediately and suppress any
// pending query; longer terms restart the debounce timer, so a fast typist
// produces at most one request per pause.
func (s *SupplierSearcher) Input(ctx context.Context, term string) {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if utf8.RuneCountInString(term) < MinSearchTermLength {
		s.seq++
		s.applied = s.seq
		deliver := s.deliver
		s.mu.Unlock()
		if deliver != nil {
			deliver(SearchResult{Term: term})
		}
		return
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.query(ctx, term)
	})
	s.mu.Unlock()
}

// Close stops any pending query. Results arriving afterwards are discarded.
func (s *SupplierSearcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *SupplierSearcher) query(ctx context.Context, term string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	suppliers, err := s.store.SearchSuppliers(ctx, term)

	s.mu.Lock()
	if s.closed || seq < s.seq || seq <= s.applied {
		s.mu.Unlock()
		return
	}
	s.applied = seq
	deliver := s.deliver
	s.mu.Unlock()

	if deliver != nil {
		deliver(SearchResult{Term: term, Suppliers: suppliers, Err: err})
	}
}
