// Package scan provides the placeholder ScanProducer used until a real
// detection pipeline is attached.
package scan

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	assist "github.com/bt-bridge/vision-assist"
	"github.com/bt-bridge/vision-assist/shared"
	"go.uber.org/zap"
)

const (
	MinObjects = 3
	MaxObjects = 6
)

// Entry is one kind of object the placeholder can report, with the
// positions and distances it may appear at.
type Entry struct {
	Name      string
	Positions []assist.Position
	Distances []assist.Distance
}

var (
	left   = assist.PositionLeft
	center = assist.PositionCenter
	right  = assist.PositionRight
	near   = assist.DistanceNear
	medium = assist.DistanceMedium
	far    = assist.DistanceFar
)

// DefaultCatalog is the indoor object catalog.
var DefaultCatalog = []Entry{
	{Name: "Chair", Positions: []assist.Position{left, right, center}, Distances: []assist.Distance{near, medium}},
	{Name: "Table", Positions: []assist.Position{center, right}, Distances: []assist.Distance{near, medium}},
	{Name: "Door", Positions: []assist.Position{left, center, right}, Distances: []assist.Distance{medium, far}},
	{Name: "Wall", Positions: []assist.Position{left, right}, Distances: []assist.Distance{near, medium}},
	{Name: "Person", Positions: []assist.Position{left, center, right}, Distances: []assist.Distance{medium, far}},
	{Name: "Window", Positions: []assist.Position{left, right}, Distances: []assist.Distance{medium, far}},
	{Name: "Book", Positions: []assist.Position{center}, Distances: []assist.Distance{near}},
	{Name: "Cup", Positions: []assist.Position{center, right}, Distances: []assist.Distance{near}},
	{Name: "Plant", Positions: []assist.Position{left, right}, Distances: []assist.Distance{near, medium}},
	{Name: "Lamp", Positions: []assist.Position{left, right}, Distances: []assist.Distance{medium}},
}

// RandomProducer picks 3 to 6 catalog entries after a simulated latency.
// It is safe for concurrent use.
type RandomProducer struct {
	logger  shared.LoggerAdapter
	catalog []Entry
	latency time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

var _ assist.ScanProducer = (*RandomProducer)(nil)

// NewRandomProducer returns a producer over DefaultCatalog. A zero seed
// picks a random one.
func NewRandomProducer(logger shared.LoggerAdapter, latency time.Duration, seed uint64) (*RandomProducer, error) {
	return NewCatalogProducer(logger, DefaultCatalog, latency, seed)
}

func NewCatalogProducer(logger shared.LoggerAdapter, catalog []Entry, latency time.Duration, seed uint64) (*RandomProducer, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if err := validateCatalog(catalog); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomProducer{
		logger:  logger.With(zap.String("component", "scan")),
		catalog: catalog,
		latency: latency,
		rnd:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

func validateCatalog(catalog []Entry) error {
	if len(catalog) == 0 {
		return fmt.Errorf("catalog is empty")
	}
	for _, e := range catalog {
		if e.Name == "" || len(e.Positions) == 0 || len(e.Distances) == 0 {
			return fmt.Errorf("catalog entry %q is incomplete", e.Name)
		}
		for _, p := range e.Positions {
			if !p.Valid() {
				return fmt.Errorf("catalog entry %q: invalid position %q", e.Name, p)
			}
		}
		for _, d := range e.Distances {
			if !d.Valid() {
				return fmt.Errorf("catalog entry %q: invalid distance %q", e.Name, d)
			}
		}
	}
	return nil
}

// ProduceScan waits out the latency and returns a fresh set. It returns
// ctx's error, wrapped in shared.ErrScanTimeout on deadline, if ctx ends
// first.
func (p *RandomProducer) ProduceScan(ctx context.Context) (assist.ObjectSet, error) {
	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			err := ctx.Err()
			if ctx.Err() == context.DeadlineExceeded {
				err = fmt.Errorf("%w: %w", shared.ErrScanTimeout, err)
			}
			p.logger.Warn("scan interrupted", zap.Error(err))
			return nil, err
		}
	}
	set := p.pick()
	p.logger.Debug("scan produced", zap.Int("objects", len(set)))
	return set, nil
}

func (p *RandomProducer) pick() assist.ObjectSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := MinObjects + p.rnd.IntN(MaxObjects-MinObjects+1)
	set := make(assist.ObjectSet, 0, n)
	for range n {
		e := p.catalog[p.rnd.IntN(len(p.catalog))]
		set = append(set, assist.DetectedObject{
			Name:     e.Name,
			Position: e.Positions[p.rnd.IntN(len(e.Positions))],
			Distance: e.Distances[p.rnd.IntN(len(e.Distances))],
		})
	}
	return set
}
