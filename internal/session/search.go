package session

import (
	"context"
	"errors"
	"slices"

	"github.com/ziadkadry99/docnav/internal/docset"
	"github.com/ziadkadry99/docnav/internal/search"
)

// Search runs query against the shards loaded so far and starts loading the
// shards it still needs. The returned result is marked partial while those
// loads are outstanding; completed loads re-run the latest query and push the
// improved result to listeners.
func (s *Session) Search(ctx context.Context, query string) (search.Result, error) {
	var res search.Result
	err := s.do(ctx, func() { res = s.search(query) })
	return res, err
}

// Results returns the result currently on display: the newest one for the
// latest query.
func (s *Session) Results(ctx context.Context) (search.Result, error) {
	var res search.Result
	err := s.do(ctx, func() { res = s.shown })
	return res, err
}

// OfferShard tells the session a shard script appeared or changed. Unknown
// labels are added, labels that previously failed are retried, and the
// shard is loaded right away if the query in flight needs it. A registered
// shard is never reloaded because the merged index is append-only.
func (s *Session) OfferShard(ctx context.Context, label string) error {
	return s.do(ctx, func() {
		s.addLabel(label)
		delete(s.missing, label)
		if s.index.Has(label) {
			s.log.Printf("docnav: session %s: shard %s changed after it was registered; start a new session to see the change", s.ID, label)
			return
		}
		if s.query == "" || !slices.Contains(s.router(s.labels, s.query), label) {
			return
		}
		s.inflight = true
		s.loadShard(label)
	})
}

func (s *Session) addLabel(label string) bool {
	if s.known[label] {
		return false
	}
	s.known[label] = true
	s.labels = append(s.labels, label)
	return true
}

func (s *Session) search(query string) search.Result {
	res := s.engine.Search(query)
	s.query = query
	res.Partial = s.requestShards(query)
	s.inflight = res.Partial
	s.show(res)
	return res
}

// requestShards starts loading every shard the query still needs and reports
// whether there were any.
func (s *Session) requestShards(query string) bool {
	if len(search.Tokenize(query)) == 0 {
		return false
	}
	pending := false
	for _, label := range s.router(s.labels, query) {
		if s.index.Has(label) || s.missing[label] {
			continue
		}
		s.loadShard(label)
		pending = true
	}
	return pending
}

func (s *Session) loadShard(label string) {
	if s.loading[label] {
		return
	}
	s.loading[label] = true
	go func() {
		shard, err := s.loader.LoadShard(s.ctx, label)
		s.post(func() { s.shardLoaded(label, shard, err) })
	}()
}

func (s *Session) shardLoaded(label string, shard search.Shard, err error) {
	delete(s.loading, label)
	defer s.checkIdle()

	switch {
	case err == nil:
		s.index.Register(shard)
	case s.ctx.Err() != nil:
		return
	case errors.Is(err, docset.ErrShardNotFound):
		s.log.Printf("docnav: session %s: %v", s.ID, err)
		s.missing[label] = true
	default:
		s.log.Printf("docnav: session %s: loading shard %s: %v", s.ID, label, err)
		s.missing[label] = true
	}

	if s.inflight {
		s.rerun()
	}
}

// rerun evaluates the latest query again under its own sequence number, so a
// completion triggered by a superseded query can only ever refresh the newer
// one.
func (s *Session) rerun() {
	res := search.Result{
		Seq:     s.engine.Latest(),
		Query:   s.query,
		Matches: s.engine.Run(s.query),
	}
	res.Partial = s.requestShards(s.query)
	s.inflight = res.Partial
	if s.show(res) {
		s.emit(Event{Type: EventResults, Results: &res})
	}
}

// show puts res on display unless a newer query has been issued.
func (s *Session) show(res search.Result) bool {
	if !s.engine.IsLatest(res.Seq) || res.Seq < s.shown.Seq {
		return false
	}
	s.shown = res
	return true
}
