// Package wasteorgs provides a client for the waste organisations registry.
package wasteorgs

import (
	"time"

	"github.com/google/uuid"
)

// Address is a postal address.
type Address struct {
	// AddressLine1 is the first line of the street address.
	AddressLine1 string `json:"addressLine1,omitempty"`

	// AddressLine2 is the second line of the street address.
	AddressLine2 string `json:"addressLine2,omitempty"`

	// Country is the country name.
	Country string `json:"country,omitempty"`

	// County is the county name.
	County string `json:"county,omitempty"`

	// Postcode is the postal code.
	Postcode string `json:"postcode,omitempty"`

	// Town is the post town.
	Town string `json:"town,omitempty"`
}

// Organisation is an organisation in the registry.
type Organisation struct {
	// Address is the registered address.
	Address Address `json:"address"`

	// BusinessCountry is the nation the organisation is registered in.
	BusinessCountry string `json:"businessCountry,omitempty"`

	// CompaniesHouseNumber is the Companies House registration number.
	CompaniesHouseNumber string `json:"companiesHouseNumber,omitempty"`

	// ID is the organisation identifier.
	ID uuid.UUID `json:"id"`

	// Name is the registered name.
	Name string `json:"name"`

	// Registrations lists the organisation's registrations.
	Registrations []Registration `json:"registrations"`

	// TradingName is the trading name.
	TradingName string `json:"tradingName,omitempty"`
}

// Registration is one registration of an organisation.
type Registration struct {
	// RegistrationYear is the compliance year registered for.
	RegistrationYear int `json:"registrationYear"`

	// Status is the registration status.
	Status string `json:"status"`

	// Type is "LARGE_PRODUCER", "SMALL_PRODUCER" or "COMPLIANCE_SCHEME".
	Type string `json:"type"`

	// UpdatedAt is when the registration last changed.
	UpdatedAt time.Time `json:"updatedAt"`
}
