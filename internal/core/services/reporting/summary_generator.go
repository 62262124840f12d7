package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
)

// topAddressCount limits the hotspot list in the summary.
const topAddressCount = 5

// SummaryGenerator aggregates the stored reports into the figures shown
// on the stats endpoint and the PDF export.
type SummaryGenerator struct {
	store ports.ReportStore
}

// NewSummaryGenerator creates a new summary generator.
func NewSummaryGenerator(store ports.ReportStore) *SummaryGenerator {
	return &SummaryGenerator{store: store}
}

// Generate builds a summary over all stored reports.
func (g *SummaryGenerator) Generate(ctx context.Context, generatedBy string) (*domain.ReportSummary, error) {
	reports, err := g.store.ListReports(ctx, domain.ReportFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}

	summary := &domain.ReportSummary{
		GeneratedAt: time.Now().UTC(),
		GeneratedBy: generatedBy,
		Total:       len(reports),
		ByCategory:  make(map[domain.Category]int),
		ByStatus:    make(map[domain.ReportStatus]int),
		BySource:    make(map[domain.Source]int),
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	addresses := make(map[string]int)

	for _, r := range reports {
		summary.ByCategory[r.Category]++
		summary.ByStatus[r.Status]++
		summary.BySource[r.Source]++

		if r.Flagged() {
			summary.Flagged++
		}
		if r.CreatedAt.After(cutoff) {
			summary.Last24h++
		}
		if r.Address != "" {
			addresses[r.Address]++
		}
	}

	summary.TopAddresses = topAddresses(addresses, topAddressCount)

	return summary, nil
}

// topAddresses ranks addresses by report count, ties broken
// alphabetically so output stays stable.
func topAddresses(counts map[string]int, limit int) []domain.AddressStat {
	if len(counts) == 0 {
		return nil
	}

	stats := make([]domain.AddressStat, 0, len(counts))
	for address, count := range counts {
		stats = append(stats, domain.AddressStat{Address: address, Count: count})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Address < stats[j].Address
	})

	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}
