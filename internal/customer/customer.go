// Package customer manages the persisted customer list and proximity lookups.
package customer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skydreamer0/VOICEAPP/internal/geo"
)

// DefaultRadiusKm is the radius used when a lookup does not give one.
const DefaultRadiusKm = 5.0

var (
	ErrNotFound = errors.New("customer not found")
	ErrInvalid  = errors.New("invalid customer")
)

// Customer is a contact with a fixed position.
type Customer struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Distance  *float64 `json:"distance,omitempty"` // km from the last lookup position
}

// Coords returns the customer's position.
func (c Customer) Coords() geo.Coords {
	return geo.Coords{Latitude: c.Latitude, Longitude: c.Longitude}
}

// Input carries the user-editable fields of a customer.
type Input struct {
	Name      string
	Address   string
	Phone     string
	Latitude  float64
	Longitude float64
}

// Validate checks the fields a customer must carry.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if err := (geo.Coords{Latitude: in.Latitude, Longitude: in.Longitude}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (in Input) apply(c *Customer) {
	c.Name = strings.TrimSpace(in.Name)
	c.Address = strings.TrimSpace(in.Address)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Latitude = in.Latitude
	c.Longitude = in.Longitude
}
