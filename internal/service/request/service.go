// internal/service/request/service.go
package request

import (
	"context"
	"strconv"
	"strings"

	"swiftel-client/internal/domain/auth"
	"swiftel-client/internal/domain/request"
	"swiftel-client/internal/pkg/cache"

	"golang.org/x/sync/errgroup"
)

const (
	StatsQuery    = "dashboardStats"
	RequestsQuery = "requests"
)

type Backend interface {
	ListRequests(ctx context.Context) ([]request.Request, error)
	ListMyRequests(ctx context.Context) ([]request.Request, error)
	GetRequest(ctx context.Context, id int64) (*request.Request, error)
	CreateRequest(ctx context.Context, req request.CreateRequest) (*request.Request, error)
	Decide(ctx context.Context, id int64, req request.DecideRequest) error
	GetStats(ctx context.Context) (*request.Stats, error)
}

type RequestService struct {
	backend Backend
	cache   *cache.Cache
}

func NewRequestService(backend Backend, c *cache.Cache) *RequestService {
	return &RequestService{backend: backend, cache: c}
}

// Filter narrows a request list.
type Filter struct {
	Status request.Status
	Search string
}

// ParseFilter reads the status query of the list views. Approvers land on
// pending requests by default, employees on all of theirs; "all" clears
// the status filter explicitly.
func ParseFilter(status, search string, id auth.Identity) Filter {
	f := Filter{Search: strings.TrimSpace(search)}
	switch s := request.Status(strings.ToLower(status)); {
	case s == "all":
	case s.Valid():
		f.Status = s
	case id.IsApprover():
		f.Status = request.StatusPending
	}
	return f
}

func (f Filter) apply(reqs []request.Request) []request.Request {
	out := request.FilterByStatus(reqs, f.Status)
	if f.Search == "" {
		return out
	}
	needle := strings.ToLower(f.Search)
	kept := make([]request.Request, 0, len(out))
	for _, r := range out {
		if strings.Contains(strings.ToLower(r.Title), needle) {
			kept = append(kept, r)
		}
	}
	return kept
}

// Stats returns the dashboard counters.
func (s *RequestService) Stats(ctx context.Context) (*request.Stats, error) {
	return cache.Fetch(ctx, s.cache, StatsQuery, s.backend.GetStats)
}

// Dashboard loads the counters and the most recent requests together.
func (s *RequestService) Dashboard(ctx context.Context, id auth.Identity, recent int) (*request.Stats, []request.Request, error) {
	var (
		stats *request.Stats
		reqs  []request.Request
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reqs, err = s.List(gctx, id, Filter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if recent > 0 && len(reqs) > recent {
		reqs = reqs[:recent]
	}
	return stats, reqs, nil
}

// List returns every request for approvers and the caller's own for
// employees, filtered.
func (s *RequestService) List(ctx context.Context, id auth.Identity, f Filter) ([]request.Request, error) {
	key, fetch := cache.Key(RequestsQuery, "mine"), s.backend.ListMyRequests
	if id.IsApprover() {
		key, fetch = cache.Key(RequestsQuery, "all"), s.backend.ListRequests
	}
	reqs, err := cache.Fetch(ctx, s.cache, key, fetch)
	if err != nil {
		return nil, err
	}
	return f.apply(reqs), nil
}

func (s *RequestService) Get(ctx context.Context, id int64) (*request.Request, error) {
	key := cache.Key(RequestsQuery, strconv.FormatInt(id, 10))
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*request.Request, error) {
		return s.backend.GetRequest(ctx, id)
	})
}

func (s *RequestService) Create(ctx context.Context, req request.CreateRequest) (*request.Request, error) {
	r, err := s.backend.CreateRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	s.changed()
	return r, nil
}

func (s *RequestService) Decide(ctx context.Context, id int64, req request.DecideRequest) error {
	if err := s.backend.Decide(ctx, id, req); err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *RequestService) changed() {
	s.cache.Invalidate(RequestsQuery)
	s.cache.Invalidate(StatsQuery)
}
