package wasteorgs

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/peteski22/prnbridge/internal/backend"
)

// NewOrganisation converts a backend updated producer to a registry organisation.
func NewOrganisation(u backend.UpdatedProducer) (Organisation, error) {
	id, err := uuid.Parse(u.OrganisationID)
	if err != nil {
		return Organisation{}, fmt.Errorf("parsing organisation ID %q: %w", u.OrganisationID, err)
	}

	return Organisation{
		Address: Address{
			AddressLine1: strings.TrimSpace(u.Address.SubBuildingName + " " + u.Address.Street),
			AddressLine2: u.Address.Locality,
			Country:      u.Address.Country,
			County:       u.Address.County,
			Postcode:     u.Address.Postcode,
			Town:         u.Address.Town,
		},
		BusinessCountry:      u.BusinessCountry,
		CompaniesHouseNumber: u.CompaniesHouseNumber,
		ID:                   id,
		Name:                 u.OrganisationName,
		Registrations: []Registration{{
			RegistrationYear: u.RegistrationYear,
			Status:           strings.ToUpper(u.Status),
			Type:             registrationType(u),
			UpdatedAt:        u.UpdatedAt.UTC(),
		}},
		TradingName: u.TradingName,
	}, nil
}

// registrationType derives the registry registration type of a producer.
func registrationType(u backend.UpdatedProducer) string {
	switch {
	case u.IsComplianceScheme:
		return "COMPLIANCE_SCHEME"
	case strings.EqualFold(u.OrganisationType, "SP"):
		return "SMALL_PRODUCER"
	default:
		return "LARGE_PRODUCER"
	}
}
