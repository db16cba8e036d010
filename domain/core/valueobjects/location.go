package valueobjects

import (
	"fmt"
	"time"
)

// Location is the latest known position of the user.
type Location struct {
	Latitude  float64   `json:"lat" dynamodbav:"Lat" validate:"latitude"`
	Longitude float64   `json:"lng" dynamodbav:"Lng" validate:"longitude"`
	Address   string    `json:"address,omitempty" dynamodbav:"Address,omitempty"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"UpdatedAt"`
}

// NewLocation creates a location stamped with the given time
func NewLocation(lat, lng float64, address string, at time.Time) Location {
	return Location{Latitude: lat, Longitude: lng, Address: address, UpdatedAt: at}
}

// Moved returns a copy displaced by the given deltas and restamped.
func (l Location) Moved(dLat, dLng float64, at time.Time) Location {
	l.Latitude += dLat
	l.Longitude += dLng
	l.UpdatedAt = at
	return l
}

// IsZero reports whether the location was never set
func (l Location) IsZero() bool {
	return l.UpdatedAt.IsZero() && l.Latitude == 0 && l.Longitude == 0
}

// Coordinates formats the position the way contacts receive it
func (l Location) Coordinates() string {
	return fmt.Sprintf("%.6f, %.6f", l.Latitude, l.Longitude)
}
