package geocode

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "geocode",
		Name:      "cache_hits_total",
		Help:      "Reverse lookups answered from the address cache.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "geocode",
		Name:      "cache_misses_total",
		Help:      "Reverse lookups that fell through the address cache.",
	})

	placesHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "geocode",
		Name:      "places_hits_total",
		Help:      "Reverse lookups answered by the local places database.",
	})

	remoteHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "geocode",
		Name:      "remote_hits_total",
		Help:      "Reverse lookups answered by the remote geocoder.",
	})

	lookupFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "geocode",
		Name:      "fallbacks_total",
		Help:      "Reverse lookups that fell back to the formatted coordinate.",
	})
)

// remoteGeocoder is the outbound lookup behind the local layers.
type remoteGeocoder interface {
	Reverse(ctx context.Context, coord domain.Coordinate) (string, error)
}

// Resolver implements ports.ReverseGeocoder as a lookup chain: LRU cache,
// then the local places database, then the remote service. It never fails a
// lookup; when every layer misses it falls back to the formatted coordinate.
type Resolver struct {
	cache  *AddressCache
	places *PlacesDB
	remote remoteGeocoder

	mu     sync.RWMutex
	closed bool
}

// Options configures the resolver layers. Zero values disable a layer.
type Options struct {
	// PlacesPath is the path to the local gazetteer database.
	PlacesPath string

	// PlacesRadiusMeters is the nearest-place search radius. Values above
	// 25km are capped.
	PlacesRadiusMeters float64

	// NominatimURL is the base URL of the remote geocoder.
	NominatimURL string

	// RemoteTimeout bounds each remote call.
	RemoteTimeout time.Duration

	// CacheSize is the LRU capacity.
	CacheSize int
}

// NewResolver assembles the lookup chain.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.PlacesRadiusMeters <= 0 {
		opts.PlacesRadiusMeters = 500
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 5 * time.Second
	}

	r := &Resolver{
		cache: NewAddressCache(opts.CacheSize),
	}

	if opts.PlacesPath != "" {
		places, err := NewPlacesDB(opts.PlacesPath, opts.PlacesRadiusMeters)
		if err != nil {
			return nil, err
		}
		r.places = places
	}
	if opts.NominatimURL != "" {
		r.remote = NewNominatimClient(opts.NominatimURL, opts.RemoteTimeout)
	}

	return r, nil
}

var _ ports.ReverseGeocoder = (*Resolver)(nil)

// Reverse resolves a coordinate to a human-readable address.
func (r *Resolver) Reverse(ctx context.Context, coord domain.Coordinate) (string, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return "", ErrGeocoderClosed
	}
	r.mu.RUnlock()

	key := cellKey(coord)
	if address, ok := r.cache.Get(key); ok {
		cacheHits.Inc()
		return address, nil
	}
	cacheMisses.Inc()

	if r.places != nil {
		address, err := r.places.Nearest(ctx, coord)
		if err == nil && address != "" {
			placesHits.Inc()
			r.cache.Set(key, address)
			return address, nil
		}
		if err != nil && !errors.Is(err, ErrAddressNotFound) {
			log.Printf("[Geocode] Places lookup failed: %v", err)
		}
	}

	if r.remote != nil {
		address, err := r.remote.Reverse(ctx, coord)
		if err == nil && address != "" {
			remoteHits.Inc()
			r.cache.Set(key, address)
			return address, nil
		}
		if err != nil && !errors.Is(err, ErrAddressNotFound) {
			log.Printf("[Geocode] Remote lookup failed: %v", err)
		}
	}

	lookupFallbacks.Inc()
	return coord.String(), nil
}

// Close releases the underlying layers.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.places != nil {
		return r.places.Close()
	}
	return nil
}
