package npwd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/peteski22/prnbridge/internal/backend"
)

// toBackendStatus maps NPWD status codes to backend statuses.
var toBackendStatus = map[string]string{
	StatusAccepted:              backend.PrnStatusAccepted,
	StatusAwaitingAcceptance:    backend.PrnStatusAwaitingAcceptance,
	StatusAwaitingAcceptanceEPA: backend.PrnStatusAwaitingAcceptance,
	StatusCancelled:             backend.PrnStatusCancelled,
	StatusRejected:              backend.PrnStatusRejected,
}

// fromBackendStatus maps backend statuses to NPWD status codes.
var fromBackendStatus = map[string]string{
	backend.PrnStatusAccepted:           StatusAccepted,
	backend.PrnStatusAwaitingAcceptance: StatusAwaitingAcceptance,
	backend.PrnStatusCancelled:          StatusCancelled,
	backend.PrnStatusRejected:           StatusRejected,
}

// ToSaveRequest converts a Prn to the backend save request.
func (p *Prn) ToSaveRequest() (*backend.SavePrnRequest, error) {
	if p == nil {
		return nil, nil
	}

	orgID, err := uuid.Parse(p.IssuedToEPRId)
	if err != nil {
		return nil, fmt.Errorf("parsing IssuedToEPRId %q: %w", p.IssuedToEPRId, err)
	}

	status, ok := toBackendStatus[p.EvidenceStatusCode]
	if !ok {
		return nil, fmt.Errorf("unknown evidence status %q", p.EvidenceStatusCode)
	}

	return &backend.SavePrnRequest{
		AccreditationNumber:       p.AccreditationNo,
		AccreditationYear:         p.AccreditationYear,
		DecemberWaste:             p.DecemberWaste,
		ExternalID:                p.EvidenceNo,
		IsExport:                  p.IsExport(),
		IssueDate:                 p.IssueDate.UTC(),
		IssuedByOrg:               p.IssuedByOrgName,
		IssuerNotes:               p.IssuerNotes,
		MaterialName:              p.EvidenceMaterial,
		ObligationYear:            p.ObligationYear,
		OrganisationID:            orgID,
		OrganisationName:          p.IssuedToOrgName,
		PrnNumber:                 p.EvidenceNo,
		PrnSignatory:              p.PrnSignatory,
		PrnStatus:                 status,
		ProcessToBeUsed:           p.RecoveryProcessCode,
		ReprocessorExporterAgency: p.ReprocessorAgency,
		SourceSystem:              backend.SourceSystemNpwd,
		StatusUpdatedOn:           p.StatusDate.UTC(),
		TonnageValue:              p.EvidenceTonnes,
	}, nil
}

// IsExport reports whether the note is a PERN, whose numbers start with "EX".
func (p *Prn) IsExport() bool {
	return strings.HasPrefix(strings.ToUpper(p.EvidenceNo), "EX")
}

// NewPrnStatus converts a backend status update to an NPWD PRN status change.
func NewPrnStatus(u backend.PrnStatusUpdate) (PrnStatus, error) {
	code, ok := fromBackendStatus[u.EvidenceStatusCode]
	if !ok {
		return PrnStatus{}, fmt.Errorf("no NPWD status for %q", u.EvidenceStatusCode)
	}

	return PrnStatus{
		EvidenceNo:         u.EvidenceNo,
		EvidenceStatusCode: code,
		StatusDate:         u.StatusDate.UTC(),
	}, nil
}

// NewProducer converts a backend updated producer to an NPWD producer.
func NewProducer(u backend.UpdatedProducer) (Producer, error) {
	if u.OrganisationID == "" {
		return Producer{}, fmt.Errorf("producer %q has no organisation ID", u.ReferenceNumber)
	}

	entityType := "DR"
	if u.IsComplianceScheme {
		entityType = "CS"
	}

	line1 := u.Address.Street
	if u.Address.SubBuildingName != "" {
		line1 = strings.TrimSpace(u.Address.SubBuildingName + " " + u.Address.Street)
	}

	return Producer{
		AddressLine1:   line1,
		AddressLine2:   u.Address.Locality,
		CompanyRegNo:   u.CompaniesHouseNumber,
		Country:        u.Address.Country,
		County:         u.Address.County,
		EntityTypeCode: entityType,
		EPRCode:        u.ReferenceNumber,
		EPRId:          u.OrganisationID,
		Postcode:       u.Address.Postcode,
		ProducerName:   u.OrganisationName,
		StatusCode:     u.Status,
		Town:           u.Address.Town,
		TradingName:    u.TradingName,
	}, nil
}
