package customer

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/skydreamer0/VOICEAPP/internal/db"
	"github.com/skydreamer0/VOICEAPP/internal/geo"
	"github.com/skydreamer0/VOICEAPP/internal/logging"
	"github.com/skydreamer0/VOICEAPP/internal/observability/metrics"
)

// Store persists customers as one JSON array.
type Store struct {
	list *db.List[Customer]
	now  func() time.Time
	log  zerolog.Logger
}

// NewStore returns a Store over the "customers" key of kv.
func NewStore(kv *db.Store) *Store {
	return &Store{
		list: db.NewList[Customer](kv, db.KeyCustomers),
		now:  time.Now,
		log:  logging.WithComponent("customer"),
	}
}

// List returns all customers in stored order.
func (s *Store) List(ctx context.Context) ([]Customer, error) {
	customers, err := s.list.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	return customers, nil
}

// Get returns the customer with id.
func (s *Store) Get(ctx context.Context, id string) (Customer, error) {
	customers, err := s.List(ctx)
	if err != nil {
		return Customer{}, err
	}
	for _, c := range customers {
		if c.ID == id {
			return c, nil
		}
	}
	return Customer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Create appends a new customer. Its id is the creation time in Unix
// milliseconds, bumped until it does not collide with a stored id.
func (s *Store) Create(ctx context.Context, in Input) (Customer, error) {
	if err := in.Validate(); err != nil {
		return Customer{}, err
	}

	var created Customer
	err := s.list.Mutate(ctx, func(customers []Customer) ([]Customer, error) {
		ms := s.now().UnixMilli()
		for containsID(customers, strconv.FormatInt(ms, 10)) {
			ms++
		}
		created = Customer{ID: strconv.FormatInt(ms, 10)}
		in.apply(&created)
		return append(customers, created), nil
	})
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}

	metrics.DefaultMetrics.RecordCustomerCreated()
	s.log.Info().Str("customerId", created.ID).Str("name", created.Name).Msg("customer created")
	return created, nil
}

// Update overwrites the editable fields of the customer with id.
func (s *Store) Update(ctx context.Context, id string, in Input) (Customer, error) {
	if err := in.Validate(); err != nil {
		return Customer{}, err
	}

	var updated Customer
	err := s.list.Mutate(ctx, func(customers []Customer) ([]Customer, error) {
		i := slices.IndexFunc(customers, func(c Customer) bool { return c.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		in.apply(&customers[i])
		customers[i].Distance = nil
		updated = customers[i]
		return customers, nil
	})
	if err != nil {
		return Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

// Delete removes the customer with id. Unknown ids are ignored. The
// customer's recordings are left in place.
func (s *Store) Delete(ctx context.Context, id string) error {
	removed := false
	err := s.list.Mutate(ctx, func(customers []Customer) ([]Customer, error) {
		n := len(customers)
		customers = slices.DeleteFunc(customers, func(c Customer) bool { return c.ID == id })
		if len(customers) == n {
			return nil, db.ErrSkipWrite
		}
		removed = true
		return customers, nil
	})
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if removed {
		metrics.DefaultMetrics.RecordCustomerDeleted()
		s.log.Info().Str("customerId", id).Msg("customer deleted")
	}
	return nil
}

// Nearby returns the customers within radiusKm of at, nearest first.
func (s *Store) Nearby(ctx context.Context, at geo.Coords, radiusKm float64) ([]Customer, error) {
	customers, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	metrics.DefaultMetrics.RecordNearbyQuery()
	return WithinRadius(customers, at, radiusKm), nil
}

// UpdateDistances stores each customer's current distance from at.
func (s *Store) UpdateDistances(ctx context.Context, at geo.Coords) error {
	err := s.list.Mutate(ctx, func(customers []Customer) ([]Customer, error) {
		for i := range customers {
			d := geo.Distance(at, customers[i].Coords())
			customers[i].Distance = &d
		}
		return customers, nil
	})
	if err != nil {
		return fmt.Errorf("update distances: %w", err)
	}
	return nil
}

func containsID(customers []Customer, id string) bool {
	return slices.ContainsFunc(customers, func(c Customer) bool { return c.ID == id })
}
