package adapter

// streamState accumulates the values reported by the finish event.
type streamState struct {
	finishReason string
	usage        *Usage
}

// chunkStream adapts a provider chunk iterator to Stream. Each raw chunk is
// converted into zero or more events; a finish event carrying the accumulated
// finish reason and usage is emitted once the provider stream ends cleanly.
type chunkStream[T any] struct {
	next    func() (T, bool)
	err     func() error
	close   func() error
	convert func(T, *streamState) []StreamEvent

	state    streamState
	pending  []StreamEvent
	cur      StreamEvent
	finished bool
}

func (s *chunkStream[T]) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.cur = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}
		if s.finished {
			return false
		}
		raw, ok := s.next()
		if !ok {
			s.finished = true
			if s.Err() != nil {
				return false
			}
			s.cur = StreamEvent{
				Type:         EventFinish,
				FinishReason: s.state.finishReason,
				Usage:        s.state.usage.Normalize(),
			}
			return true
		}
		s.pending = s.convert(raw, &s.state)
	}
}

func (s *chunkStream[T]) Current() StreamEvent { return s.cur }

func (s *chunkStream[T]) Err() error {
	if s.err == nil {
		return nil
	}
	return s.err()
}

func (s *chunkStream[T]) Close() error {
	s.finished = true
	s.pending = nil
	if s.close == nil {
		return nil
	}
	return s.close()
}

// primedStream replays an event that was pulled ahead of time.
type primedStream struct {
	Stream
	primed bool
}

func (p *primedStream) Next() bool {
	if p.primed {
		p.primed = false
		return true
	}
	return p.Stream.Next()
}

// prime pulls the first event so that connection and status errors surface
// from Adapter.Stream instead of from the first Next call.
func prime(s Stream) (Stream, error) {
	if s.Next() {
		return &primedStream{Stream: s, primed: true}, nil
	}
	if err := s.Err(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &primedStream{Stream: s}, nil
}

// SliceStream replays a fixed list of events, then reports err (if any).
type SliceStream struct {
	events []StreamEvent
	err    error
	pos    int
	cur    StreamEvent
	closed bool
}

// NewSliceStream creates a stream over events.
func NewSliceStream(events []StreamEvent, err error) *SliceStream {
	return &SliceStream{events: events, err: err}
}

func (s *SliceStream) Next() bool {
	if s.closed || s.pos >= len(s.events) {
		return false
	}
	s.cur = s.events[s.pos]
	s.pos++
	return true
}

func (s *SliceStream) Current() StreamEvent { return s.cur }

func (s *SliceStream) Err() error {
	if s.closed || s.pos < len(s.events) {
		return nil
	}
	return s.err
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceStream) Closed() bool { return s.closed }

// Collect drains a stream and returns all events. The stream is closed.
func Collect(s Stream) ([]StreamEvent, error) {
	defer s.Close()
	var events []StreamEvent
	for s.Next() {
		events = append(events, s.Current())
	}
	return events, s.Err()
}
