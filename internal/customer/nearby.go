package customer

import (
	"sort"

	"github.com/skydreamer0/VOICEAPP/internal/geo"
)

// WithinRadius returns the customers no farther than radiusKm from at,
// nearest first, each annotated with its distance. A radius <= 0 means
// DefaultRadiusKm. Equal distances keep their input order. The input slice
// is not modified.
func WithinRadius(customers []Customer, at geo.Coords, radiusKm float64) []Customer {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	nearby := make([]Customer, 0, len(customers))
	for _, c := range customers {
		d := geo.Distance(at, c.Coords())
		if d > radiusKm {
			continue
		}
		c.Distance = &d
		nearby = append(nearby, c)
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return *nearby[i].Distance < *nearby[j].Distance
	})
	return nearby
}

// ByDistance annotates every customer with its distance from at and sorts
// them nearest first.
func ByDistance(customers []Customer, at geo.Coords) []Customer {
	sorted := make([]Customer, len(customers))
	for i, c := range customers {
		d := geo.Distance(at, c.Coords())
		c.Distance = &d
		sorted[i] = c
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return *sorted[i].Distance < *sorted[j].Distance
	})
	return sorted
}
