// Package rrepw provides a client for the RREPW recycling-notes API.
package rrepw

import "time"

const (
	// StatusAccepted is the RREPW status of an accepted PRN.
	StatusAccepted = "accepted"

	// StatusAwaitingAcceptance is the RREPW status of a newly issued PRN.
	StatusAwaitingAcceptance = "awaiting_acceptance"

	// StatusCancelled is the RREPW status of a cancelled PRN.
	StatusCancelled = "cancelled"

	// StatusRejected is the RREPW status of a rejected PRN.
	StatusRejected = "rejected"
)

// Accreditation describes the accreditation a PRN was issued under.
type Accreditation struct {
	// AccreditationNumber is the accreditation number.
	AccreditationNumber string `json:"accreditationNumber"`

	// AccreditationYear is the accreditation year.
	AccreditationYear int `json:"accreditationYear"`

	// Material is the packaging material.
	Material string `json:"material"`

	// SubmittedToRegulator is the regulator the accreditation was submitted to.
	SubmittedToRegulator string `json:"submittedToRegulator"`
}

// Address is a postal address.
type Address struct {
	// Country is the country name.
	Country string `json:"country,omitempty"`

	// County is the county name.
	County string `json:"county,omitempty"`

	// Line1 is the first line of the street address.
	Line1 string `json:"line1,omitempty"`

	// Line2 is the second line of the street address.
	Line2 string `json:"line2,omitempty"`

	// Postcode is the postal code.
	Postcode string `json:"postcode,omitempty"`

	// Town is the post town.
	Town string `json:"town,omitempty"`
}

// Organisation is an organisation as RREPW records it.
type Organisation struct {
	// Address is the registered address.
	Address Address `json:"address"`

	// BusinessCountry is the nation the organisation is registered in.
	BusinessCountry string `json:"businessCountry,omitempty"`

	// CompaniesHouseNumber is the Companies House registration number.
	CompaniesHouseNumber string `json:"companiesHouseNumber,omitempty"`

	// ID is the organisation identifier shared with the backend.
	ID string `json:"id"`

	// Name is the registered name.
	Name string `json:"name"`

	// RegistrationYear is the year of the latest registration.
	RegistrationYear int `json:"registrationYear,omitempty"`

	// Status is the registration status.
	Status string `json:"status"`

	// TradingName is the trading name.
	TradingName string `json:"tradingName,omitempty"`

	// Type is "producer" or "compliance_scheme".
	Type string `json:"type"`
}

// OrganisationRef identifies an organisation on a PRN.
type OrganisationRef struct {
	// ID is the organisation identifier.
	ID string `json:"id"`

	// Name is the organisation name.
	Name string `json:"name"`
}

// Prn is a PRN or PERN issued in RREPW.
type Prn struct {
	// Accreditation is the accreditation the note was issued under.
	Accreditation Accreditation `json:"accreditation"`

	// ID is the RREPW identifier.
	ID string `json:"id"`

	// IsDecemberWaste indicates the waste was received in December.
	IsDecemberWaste bool `json:"isDecemberWaste"`

	// IsExport indicates the note is a PERN.
	IsExport bool `json:"isExport"`

	// IssuedByOrganisation is the issuing reprocessor or exporter.
	IssuedByOrganisation OrganisationRef `json:"issuedByOrganisation"`

	// IssuedToOrganisation is the receiving producer or compliance scheme.
	IssuedToOrganisation OrganisationRef `json:"issuedToOrganisation"`

	// IssuerNotes are free-text notes from the issuer.
	IssuerNotes string `json:"issuerNotes,omitempty"`

	// PrnNumber is the PRN number.
	PrnNumber string `json:"prnNumber"`

	// ProcessToBeUsed is the recovery process code.
	ProcessToBeUsed string `json:"processToBeUsed,omitempty"`

	// Status is the current status.
	Status PrnState `json:"status"`

	// TonnageValue is the tonnage the note evidences.
	TonnageValue int `json:"tonnageValue"`
}

// PrnState is the status block of a PRN.
type PrnState struct {
	// AuthorisedAt is when the note was authorised for issue.
	AuthorisedAt time.Time `json:"authorisedAt"`

	// AuthorisedBy is the name of the signatory.
	AuthorisedBy string `json:"authorisedBy,omitempty"`

	// CurrentStatus is the current status.
	CurrentStatus string `json:"currentStatus"`
}

// StatusUpdate changes the status of a PRN.
type StatusUpdate struct {
	// Status is the new status.
	Status string `json:"status"`

	// UpdatedAt is when the status changed.
	UpdatedAt time.Time `json:"updatedAt"`
}

// prnsResponse is one page of issued PRNs.
type prnsResponse struct {
	// HasMore indicates more pages follow.
	HasMore bool `json:"hasMore"`

	// Items holds the page's PRNs.
	Items []Prn `json:"items"`

	// NextCursor is the cursor for the next page.
	NextCursor string `json:"nextCursor"`
}
