// Package models defines the data shapes shared across the resource finder:
// the raw place records returned by the lookup provider and the canonical
// resource records persisted in the saved list.
package models

// Coordinate represents a geographic location with latitude and longitude
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a raw record as returned by the place-lookup provider. Field
// names vary between responses (address vs formatted_address, flat lat/lng
// vs nested location), so readers go through the accessor methods instead
// of the fields directly.
type Place struct {
	PlaceID              string      `json:"place_id"`
	Name                 string      `json:"name"`
	Address              string      `json:"address,omitempty"`
	FormattedAddress     string      `json:"formatted_address,omitempty"`
	PhoneNumber          string      `json:"phone_number,omitempty"`
	FormattedPhoneNumber string      `json:"formatted_phone_number,omitempty"`
	Website              string      `json:"website,omitempty"`
	Lat                  float64     `json:"lat,omitempty"`
	Lng                  float64     `json:"lng,omitempty"`
	Location             *Coordinate `json:"location,omitempty"`
}

// DisplayAddress returns whichever address variant the record carries.
func (p Place) DisplayAddress() string {
	if p.Address != "" {
		return p.Address
	}
	return p.FormattedAddress
}

// DisplayPhone returns whichever phone variant the record carries.
func (p Place) DisplayPhone() string {
	if p.PhoneNumber != "" {
		return p.PhoneNumber
	}
	return p.FormattedPhoneNumber
}

// Coord returns the place coordinate, preferring the nested location over
// the flat lat/lng fields. ok is false when the record has no coordinate.
func (p Place) Coord() (lat, lng float64, ok bool) {
	if p.Location != nil {
		return p.Location.Lat, p.Location.Lng, true
	}
	if p.Lat != 0 || p.Lng != 0 {
		return p.Lat, p.Lng, true
	}
	return 0, 0, false
}

// Resource is the canonical record shape kept in the saved list. Raw places
// are converted through Normalize exactly once, at the point of saving.
type Resource struct {
	PlaceID     string  `json:"place_id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	PhoneNumber string  `json:"phone_number"`
	Website     string  `json:"website"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Normalize converts a raw place record into the canonical resource shape,
// filling placeholder values for missing name and address.
func Normalize(p Place) Resource {
	name := p.Name
	if name == "" {
		name = "No Name"
	}
	address := p.DisplayAddress()
	if address == "" {
		address = "No Address"
	}

	r := Resource{
		PlaceID:     p.PlaceID,
		Name:        name,
		Address:     address,
		PhoneNumber: p.DisplayPhone(),
		Website:     p.Website,
	}
	if lat, lng, ok := p.Coord(); ok {
		r.Lat = lat
		r.Lng = lng
	}
	return r
}

// Card is the view-neutral projection rendered by the CLI and the TUI.
// Both raw places and saved resources flatten into this shape.
type Card struct {
	PlaceID  string
	Name     string
	Address  string
	Phone    string
	Website  string
	Lat      float64
	Lng      float64
	HasCoord bool
}

// CardFromPlace projects a raw place record for display, reading either
// field variant.
func CardFromPlace(p Place) Card {
	c := Card{
		PlaceID: p.PlaceID,
		Name:    p.Name,
		Address: p.DisplayAddress(),
		Phone:   p.DisplayPhone(),
		Website: p.Website,
	}
	if lat, lng, ok := p.Coord(); ok {
		c.Lat = lat
		c.Lng = lng
		c.HasCoord = true
	}
	return c
}

// CardFromResource projects a canonical saved resource for display.
func CardFromResource(r Resource) Card {
	return Card{
		PlaceID:  r.PlaceID,
		Name:     r.Name,
		Address:  r.Address,
		Phone:    r.PhoneNumber,
		Website:  r.Website,
		Lat:      r.Lat,
		Lng:      r.Lng,
		HasCoord: r.Lat != 0 || r.Lng != 0,
	}
}
