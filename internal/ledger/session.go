package ledger

// Stats summarises what a session has done so far.
type Stats struct {
	Inserts uint64 // insert frames applied
	Queries uint64 // query frames answered
	Entries int    // distinct timestamps currently stored
}

// Session is the per-connection state: one Ledger plus counters.
// Frames must be applied one at a time, in arrival order.
type Session struct {
	ledger  *Ledger
	inserts uint64
	queries uint64
}

func NewSession() *Session {
	return &Session{ledger: New()}
}

// OnFrame applies one raw frame and returns the bytes to write back, if any.
// An error means the session must be terminated; the ledger is left untouched.
func (s *Session) OnFrame(raw [FrameSize]byte) ([]byte, error) {
	f, err := DecodeFrame(raw)
	if err != nil {
		return nil, err
	}
	return s.Apply(f)
}

// Apply executes a decoded frame. Inserts produce no response; queries
// always produce exactly ResponseSize bytes.
func (s *Session) Apply(f Frame) ([]byte, error) {
	switch f.Tag {
	case TagInsert:
		s.ledger.Insert(f.Arg1, f.Arg2)
		s.inserts++
		return nil, nil
	case TagQuery:
		s.queries++
		resp := EncodeResponse(s.ledger.Mean(f.Arg1, f.Arg2))
		return resp[:], nil
	default:
		return nil, ErrUnknownTag
	}
}

func (s *Session) Stats() Stats {
	return Stats{
		Inserts: s.inserts,
		Queries: s.queries,
		Entries: s.ledger.Len(),
	}
}
