// Package npwd provides a client for the NPWD waste-tracking OData API.
package npwd

import "time"

const (
	// StatusAccepted is the NPWD code of an accepted PRN.
	StatusAccepted = "EV-ACCEP"

	// StatusAwaitingAcceptance is the NPWD code of a newly issued PRN.
	StatusAwaitingAcceptance = "EV-AWACCEP"

	// StatusAwaitingAcceptanceEPA is the NPWD code of a newly issued PRN awaiting regulator checks.
	StatusAwaitingAcceptanceEPA = "EV-AWACCEP-EPA"

	// StatusCancelled is the NPWD code of a cancelled PRN.
	StatusCancelled = "EV-CANCEL"

	// StatusRejected is the NPWD code of a rejected PRN.
	StatusRejected = "EV-REJECT"
)

// IssuedStatuses are the status codes fetched as issued PRNs.
var IssuedStatuses = []string{
	StatusAwaitingAcceptance,
	StatusAwaitingAcceptanceEPA,
	StatusCancelled,
}

// Prn is a PRN or PERN issued in NPWD.
type Prn struct {
	// AccreditationNo is the issuer's accreditation number.
	AccreditationNo string `json:"AccreditationNo" validate:"required"`

	// AccreditationYear is the accreditation year.
	AccreditationYear string `json:"AccreditationYear" validate:"required,len=4,numeric"`

	// DecemberWaste indicates the waste was received in December.
	DecemberWaste bool `json:"DecemberWaste"`

	// EvidenceMaterial is the packaging material.
	EvidenceMaterial string `json:"EvidenceMaterial" validate:"required"`

	// EvidenceNo is the PRN number.
	EvidenceNo string `json:"EvidenceNo" validate:"required,max=20"`

	// EvidenceStatusCode is the NPWD status code.
	EvidenceStatusCode string `json:"EvidenceStatusCode" validate:"required,oneof=EV-ACCEP EV-AWACCEP EV-AWACCEP-EPA EV-CANCEL EV-REJECT"`

	// EvidenceTonnes is the tonnage the PRN evidences.
	EvidenceTonnes int `json:"EvidenceTonnes" validate:"gte=0"`

	// IssueDate is when the PRN was issued.
	IssueDate time.Time `json:"IssueDate" validate:"required"`

	// IssuedByOrgName is the name of the issuing reprocessor or exporter.
	IssuedByOrgName string `json:"IssuedByOrgName" validate:"required"`

	// IssuedToEPRId is the backend identifier of the receiving organisation.
	IssuedToEPRId string `json:"IssuedToEPRId" validate:"required,uuid"`

	// IssuedToOrgName is the name of the receiving organisation.
	IssuedToOrgName string `json:"IssuedToOrgName" validate:"required"`

	// IssuerNotes are free-text notes from the issuer.
	IssuerNotes string `json:"IssuerNotes"`

	// ModifiedOn is when the record last changed in NPWD.
	ModifiedOn time.Time `json:"ModifiedOn"`

	// ObligationYear is the compliance year the PRN counts towards.
	ObligationYear string `json:"ObligationYear" validate:"required,len=4,numeric"`

	// PrnSignatory is the name of the person who signed the PRN.
	PrnSignatory string `json:"PrnSignatory"`

	// RecoveryProcessCode is the recovery process code.
	RecoveryProcessCode string `json:"RecoveryProcessCode"`

	// ReprocessorAgency is the regulator of the issuer.
	ReprocessorAgency string `json:"ReprocessorAgency"`

	// StatusDate is when the status last changed.
	StatusDate time.Time `json:"StatusDate" validate:"required"`
}

// PrnDelta is an OData delta payload of PRN status changes.
type PrnDelta struct {
	// Context is the OData delta context URL.
	Context string `json:"@odata.context"`

	// Value holds the changes.
	Value []PrnStatus `json:"value"`
}

// PrnStatus is a PRN status change sent to NPWD.
type PrnStatus struct {
	// EvidenceNo is the PRN number.
	EvidenceNo string `json:"EvidenceNo"`

	// EvidenceStatusCode is the NPWD status code.
	EvidenceStatusCode string `json:"EvidenceStatusCode"`

	// StatusDate is when the status changed.
	StatusDate time.Time `json:"StatusDate"`
}

// Producer is a producer or compliance scheme as NPWD records it.
type Producer struct {
	// AddressLine1 is the first line of the address.
	AddressLine1 string `json:"AddressLine1,omitempty"`

	// AddressLine2 is the second line of the address.
	AddressLine2 string `json:"AddressLine2,omitempty"`

	// CompanyRegNo is the Companies House registration number.
	CompanyRegNo string `json:"CompanyRegNo,omitempty"`

	// Country is the country name.
	Country string `json:"Country,omitempty"`

	// County is the county name.
	County string `json:"County,omitempty"`

	// EntityTypeCode distinguishes producers from compliance schemes.
	EntityTypeCode string `json:"EntityTypeCode"`

	// EPRCode is the producer's external reference.
	EPRCode string `json:"EPRCode"`

	// EPRId is the backend identifier of the organisation.
	EPRId string `json:"EPRId"`

	// Postcode is the postal code.
	Postcode string `json:"Postcode,omitempty"`

	// ProducerName is the registered name.
	ProducerName string `json:"ProducerName"`

	// StatusCode is the registration status.
	StatusCode string `json:"StatusCode"`

	// Town is the post town.
	Town string `json:"Town,omitempty"`

	// TradingName is the trading name.
	TradingName string `json:"TradingName,omitempty"`
}

// ProducerDelta is an OData delta payload of producer changes.
type ProducerDelta struct {
	// Context is the OData delta context URL.
	Context string `json:"@odata.context"`

	// Value holds the changes.
	Value []Producer `json:"value"`
}

// prnsResponse is one page of an OData PRN query.
type prnsResponse struct {
	// NextLink is the absolute URL of the next page, empty on the last page.
	NextLink string `json:"@odata.nextLink"`

	// Value holds the page's PRNs.
	Value []Prn `json:"value"`
}
