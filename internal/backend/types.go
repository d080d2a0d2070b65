// Package backend provides a client for the common backend API that holds
// PRNs, producers and their contacts.
package backend

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SourceSystemNpwd marks records that originated in NPWD.
	SourceSystemNpwd SourceSystem = "NPWD"

	// SourceSystemRrepw marks records that originated in RREPW.
	SourceSystemRrepw SourceSystem = "RREPW"
)

const (
	// PrnStatusAccepted is the status of a PRN accepted by its producer.
	PrnStatusAccepted = "ACCEPTED"

	// PrnStatusAwaitingAcceptance is the status of a newly issued PRN.
	PrnStatusAwaitingAcceptance = "AWAITING_ACCEPTANCE"

	// PrnStatusCancelled is the status of a PRN cancelled by its issuer.
	PrnStatusCancelled = "CANCELLED"

	// PrnStatusRejected is the status of a PRN rejected by its producer.
	PrnStatusRejected = "REJECTED"
)

// SourceSystem identifies the system a PRN came from.
type SourceSystem string

// Address is a postal address.
type Address struct {
	// Country is the country name.
	Country string `json:"country,omitempty"`

	// County is the county name.
	County string `json:"county,omitempty"`

	// Locality is the locality or district.
	Locality string `json:"locality,omitempty"`

	// Postcode is the postal code.
	Postcode string `json:"postcode,omitempty"`

	// Street is the street name.
	Street string `json:"street,omitempty"`

	// SubBuildingName is the flat or unit name.
	SubBuildingName string `json:"subBuildingName,omitempty"`

	// Town is the post town.
	Town string `json:"town,omitempty"`
}

// PrnStatusUpdate is a PRN status change recorded by the backend.
type PrnStatusUpdate struct {
	// AccreditationYear is the accreditation year of the PRN.
	AccreditationYear string `json:"accreditationYear"`

	// EvidenceNo is the PRN number.
	EvidenceNo string `json:"evidenceNo"`

	// EvidenceStatusCode is the new status.
	EvidenceStatusCode string `json:"evidenceStatusCode"`

	// SourceSystemID is the identifier of the PRN in its source system.
	SourceSystemID string `json:"sourceSystemId,omitempty"`

	// StatusDate is when the status changed.
	StatusDate time.Time `json:"statusDate"`
}

// ProducerEmail is a contact to notify about PRNs issued to an organisation.
type ProducerEmail struct {
	// Email is the contact's email address.
	Email string `json:"email"`

	// FirstName is the contact's first name.
	FirstName string `json:"firstName"`

	// LastName is the contact's last name.
	LastName string `json:"lastName"`
}

// SavePrnRequest creates or updates a PRN in the backend.
type SavePrnRequest struct {
	// AccreditationNumber is the issuer's accreditation number.
	AccreditationNumber string `json:"accreditationNumber"`

	// AccreditationYear is the accreditation year.
	AccreditationYear string `json:"accreditationYear"`

	// DecemberWaste indicates the waste was received in December.
	DecemberWaste bool `json:"decemberWaste"`

	// ExternalID is the identifier of the PRN in its source system.
	ExternalID string `json:"externalId"`

	// IsExport indicates the PRN is a PERN for exported waste.
	IsExport bool `json:"isExport"`

	// IssueDate is when the PRN was issued.
	IssueDate time.Time `json:"issueDate"`

	// IssuedByOrg is the name of the issuing reprocessor or exporter.
	IssuedByOrg string `json:"issuedByOrg"`

	// IssuerNotes are free-text notes from the issuer.
	IssuerNotes string `json:"issuerNotes,omitempty"`

	// MaterialName is the packaging material.
	MaterialName string `json:"materialName"`

	// ObligationYear is the compliance year the PRN counts towards.
	ObligationYear string `json:"obligationYear"`

	// OrganisationID is the backend identifier of the receiving organisation.
	OrganisationID uuid.UUID `json:"organisationId"`

	// OrganisationName is the name of the receiving organisation.
	OrganisationName string `json:"organisationName"`

	// PrnNumber is the PRN number.
	PrnNumber string `json:"prnNumber"`

	// PrnSignatory is the name of the person who signed the PRN.
	PrnSignatory string `json:"prnSignatory,omitempty"`

	// PrnStatus is the current PRN status.
	PrnStatus string `json:"prnStatus"`

	// ProcessToBeUsed is the recovery process code.
	ProcessToBeUsed string `json:"processToBeUsed,omitempty"`

	// ReprocessorExporterAgency is the regulator of the issuer.
	ReprocessorExporterAgency string `json:"reprocessorExporterAgency,omitempty"`

	// SourceSystem is the system the PRN came from.
	SourceSystem SourceSystem `json:"sourceSystem"`

	// StatusUpdatedOn is when the status last changed.
	StatusUpdatedOn time.Time `json:"statusUpdatedOn"`

	// TonnageValue is the tonnage the PRN evidences.
	TonnageValue int `json:"tonnageValue"`
}

// UpdatedProducer is a producer or compliance scheme that changed in the backend.
type UpdatedProducer struct {
	// Address is the registered address.
	Address Address `json:"address"`

	// BusinessCountry is the nation the producer is registered in.
	BusinessCountry string `json:"businessCountry,omitempty"`

	// CompaniesHouseNumber is the Companies House registration number.
	CompaniesHouseNumber string `json:"companiesHouseNumber,omitempty"`

	// IsComplianceScheme indicates the organisation is a compliance scheme.
	IsComplianceScheme bool `json:"isComplianceScheme"`

	// OrganisationID is the backend identifier of the organisation.
	OrganisationID string `json:"organisationId"`

	// OrganisationName is the registered name.
	OrganisationName string `json:"organisationName"`

	// OrganisationType is the type code, e.g. "DR" for direct registrant.
	OrganisationType string `json:"organisationType,omitempty"`

	// ReferenceNumber is the producer's external reference.
	ReferenceNumber string `json:"referenceNumber"`

	// RegistrationYear is the year of the latest registration.
	RegistrationYear int `json:"registrationYear,omitempty"`

	// Status is the registration status.
	Status string `json:"status"`

	// TradingName is the trading name.
	TradingName string `json:"tradingName,omitempty"`

	// UpdatedAt is when the organisation last changed.
	UpdatedAt time.Time `json:"updatedDateTime"`
}

// Cancelled reports whether the request records a cancelled PRN.
func (r *SavePrnRequest) Cancelled() bool {
	return r != nil && r.PrnStatus == PrnStatusCancelled
}
