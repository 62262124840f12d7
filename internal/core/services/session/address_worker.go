package session

import (
	"context"
	"log"
	"time"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
)

const resolveTimeout = 10 * time.Second

type addressJob struct {
	sessionID string
	coord     domain.Coordinate
}

// AddressWorker resolves selected coordinates to human-readable addresses in
// the background so selection itself never blocks on the geocoder.
type AddressWorker struct {
	geocoder ports.ReverseGeocoder
	jobs     chan addressJob
	apply    func(sessionID, address string)
}

// NewAddressWorker creates a new worker.
func NewAddressWorker(geocoder ports.ReverseGeocoder, bufferSize int, apply func(sessionID, address string)) *AddressWorker {
	return &AddressWorker{
		geocoder: geocoder,
		jobs:     make(chan addressJob, bufferSize),
		apply:    apply,
	}
}

// Enqueue queues a coordinate for resolution. A full queue drops the job so
// the selection path never blocks.
func (w *AddressWorker) Enqueue(sessionID string, coord domain.Coordinate) {
	if w.geocoder == nil {
		return
	}
	select {
	case w.jobs <- addressJob{sessionID: sessionID, coord: coord}:
	default:
		geocodeDrops.Inc()
		log.Printf("[Address] Queue full, dropping resolution for session %s", sessionID)
	}
}

// Start begins the resolution loop.
func (w *AddressWorker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-w.jobs:
				w.resolve(ctx, job)
			}
		}
	}()
}

func (w *AddressWorker) resolve(ctx context.Context, job addressJob) {
	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	address, err := w.geocoder.Reverse(resolveCtx, job.coord)
	if err != nil {
		log.Printf("[Address] Resolution failed for session %s: %v", job.sessionID, err)
		address = job.coord.String()
	}
	if address == "" {
		address = job.coord.String()
	}
	w.apply(job.sessionID, address)
}
