package rrepw

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/peteski22/prnbridge/internal/backend"
)

// ToSaveRequest converts a Prn to the backend save request.
func (p *Prn) ToSaveRequest() (*backend.SavePrnRequest, error) {
	if p == nil {
		return nil, nil
	}

	orgID, err := uuid.Parse(p.IssuedToOrganisation.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing issued-to organisation ID %q: %w", p.IssuedToOrganisation.ID, err)
	}

	status, err := backendStatus(p.Status.CurrentStatus)
	if err != nil {
		return nil, err
	}

	var year string
	if p.Accreditation.AccreditationYear > 0 {
		year = strconv.Itoa(p.Accreditation.AccreditationYear)
	}

	return &backend.SavePrnRequest{
		AccreditationNumber:       p.Accreditation.AccreditationNumber,
		AccreditationYear:         year,
		DecemberWaste:             p.IsDecemberWaste,
		ExternalID:                p.ID,
		IsExport:                  p.IsExport,
		IssueDate:                 p.Status.AuthorisedAt.UTC(),
		IssuedByOrg:               p.IssuedByOrganisation.Name,
		IssuerNotes:               p.IssuerNotes,
		MaterialName:              p.Accreditation.Material,
		ObligationYear:            year,
		OrganisationID:            orgID,
		OrganisationName:          p.IssuedToOrganisation.Name,
		PrnNumber:                 p.PrnNumber,
		PrnSignatory:              p.Status.AuthorisedBy,
		PrnStatus:                 status,
		ProcessToBeUsed:           p.ProcessToBeUsed,
		ReprocessorExporterAgency: p.Accreditation.SubmittedToRegulator,
		SourceSystem:              backend.SourceSystemRrepw,
		StatusUpdatedOn:           p.Status.AuthorisedAt.UTC(),
		TonnageValue:              p.TonnageValue,
	}, nil
}

// NewOrganisation converts a backend updated producer to an RREPW organisation.
func NewOrganisation(u backend.UpdatedProducer) (Organisation, error) {
	if u.OrganisationID == "" {
		return Organisation{}, fmt.Errorf("producer %q has no organisation ID", u.ReferenceNumber)
	}

	orgType := "producer"
	if u.IsComplianceScheme {
		orgType = "compliance_scheme"
	}

	return Organisation{
		Address: Address{
			Country:  u.Address.Country,
			County:   u.Address.County,
			Line1:    strings.TrimSpace(u.Address.SubBuildingName + " " + u.Address.Street),
			Line2:    u.Address.Locality,
			Postcode: u.Address.Postcode,
			Town:     u.Address.Town,
		},
		BusinessCountry:      u.BusinessCountry,
		CompaniesHouseNumber: u.CompaniesHouseNumber,
		ID:                   u.OrganisationID,
		Name:                 u.OrganisationName,
		RegistrationYear:     u.RegistrationYear,
		Status:               strings.ToLower(u.Status),
		TradingName:          u.TradingName,
		Type:                 orgType,
	}, nil
}

// NewStatusUpdate converts a backend status update to an RREPW status change.
// Only producer decisions are sent back to RREPW.
func NewStatusUpdate(u backend.PrnStatusUpdate) (StatusUpdate, error) {
	var status string
	switch u.EvidenceStatusCode {
	case backend.PrnStatusAccepted:
		status = StatusAccepted
	case backend.PrnStatusRejected:
		status = StatusRejected
	default:
		return StatusUpdate{}, fmt.Errorf("status %q cannot be sent to RREPW", u.EvidenceStatusCode)
	}

	return StatusUpdate{
		Status:    status,
		UpdatedAt: u.StatusDate.UTC(),
	}, nil
}

// backendStatus maps an RREPW status to the backend status.
func backendStatus(status string) (string, error) {
	switch status {
	case StatusAccepted:
		return backend.PrnStatusAccepted, nil
	case StatusAwaitingAcceptance:
		return backend.PrnStatusAwaitingAcceptance, nil
	case StatusCancelled:
		return backend.PrnStatusCancelled, nil
	case StatusRejected:
		return backend.PrnStatusRejected, nil
	default:
		return "", fmt.Errorf("unknown PRN status %q", status)
	}
}
