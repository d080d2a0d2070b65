package npwd

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peteski22/prnbridge/internal/backend"
	"github.com/stretchr/testify/require"
)

func TestPrn_ToSaveRequest(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	statusDate := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	tests := map[string]struct {
		errMsg  string
		prn     *Prn
		want    *backend.SavePrnRequest
		wantErr bool
	}{
		"nil prn": {
			prn:  nil,
			want: nil,
		},
		"issued PRN": {
			prn: &Prn{
				AccreditationNo:    "ACC-1",
				AccreditationYear:  "2024",
				EvidenceMaterial:   "Plastic",
				EvidenceNo:         "ER2400001",
				EvidenceStatusCode: StatusAwaitingAcceptanceEPA,
				EvidenceTonnes:     12,
				IssuedByOrgName:    "Reprocessor Ltd",
				IssuedToEPRId:      orgID.String(),
				IssuedToOrgName:    "Acme",
				ObligationYear:     "2024",
				StatusDate:         statusDate,
			},
			want: &backend.SavePrnRequest{
				AccreditationNumber: "ACC-1",
				AccreditationYear:   "2024",
				ExternalID:          "ER2400001",
				IssuedByOrg:         "Reprocessor Ltd",
				MaterialName:        "Plastic",
				ObligationYear:      "2024",
				OrganisationID:      orgID,
				OrganisationName:    "Acme",
				PrnNumber:           "ER2400001",
				PrnStatus:           backend.PrnStatusAwaitingAcceptance,
				SourceSystem:        backend.SourceSystemNpwd,
				StatusUpdatedOn:     statusDate,
				TonnageValue:        12,
			},
		},
		"export PRN": {
			prn: &Prn{
				EvidenceNo:         "EX2400001",
				EvidenceStatusCode: StatusCancelled,
				IssuedToEPRId:      orgID.String(),
			},
			want: &backend.SavePrnRequest{
				ExternalID:     "EX2400001",
				IsExport:       true,
				OrganisationID: orgID,
				PrnNumber:      "EX2400001",
				PrnStatus:      backend.PrnStatusCancelled,
				SourceSystem:   backend.SourceSystemNpwd,
			},
		},
		"invalid organisation id": {
			prn:     &Prn{EvidenceNo: "ER1", EvidenceStatusCode: StatusAccepted, IssuedToEPRId: "not-a-uuid"},
			wantErr: true,
			errMsg:  "parsing IssuedToEPRId",
		},
		"unknown status": {
			prn:     &Prn{EvidenceNo: "ER1", EvidenceStatusCode: "EV-UNKNOWN", IssuedToEPRId: orgID.String()},
			wantErr: true,
			errMsg:  "unknown evidence status",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := tc.prn.ToSaveRequest()

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestNewPrnStatus(t *testing.T) {
	t.Parallel()

	local := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("BST", 3600))

	got, err := NewPrnStatus(backend.PrnStatusUpdate{
		EvidenceNo:         "ER2400001",
		EvidenceStatusCode: backend.PrnStatusAccepted,
		StatusDate:         local,
	})
	require.NoError(t, err)
	require.Equal(t, PrnStatus{
		EvidenceNo:         "ER2400001",
		EvidenceStatusCode: StatusAccepted,
		StatusDate:         local.UTC(),
	}, got)

	_, err = NewPrnStatus(backend.PrnStatusUpdate{EvidenceNo: "ER1", EvidenceStatusCode: "DRAFT"})
	require.Error(t, err)
	require.Contains(t, err.Error(), `no NPWD status for "DRAFT"`)
}

func TestNewProducer(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		errMsg   string
		producer backend.UpdatedProducer
		want     Producer
		wantErr  bool
	}{
		"direct registrant": {
			producer: backend.UpdatedProducer{
				Address: backend.Address{
					Locality:        "Holbeck",
					Postcode:        "LS11 1AA",
					Street:          "Water Lane",
					SubBuildingName: "Unit 4",
					Town:            "Leeds",
				},
				CompaniesHouseNumber: "01234567",
				OrganisationID:       "org-1",
				OrganisationName:     "Acme Packaging",
				ReferenceNumber:      "100001",
				Status:               "registered",
			},
			want: Producer{
				AddressLine1:   "Unit 4 Water Lane",
				AddressLine2:   "Holbeck",
				CompanyRegNo:   "01234567",
				EntityTypeCode: "DR",
				EPRCode:        "100001",
				EPRId:          "org-1",
				Postcode:       "LS11 1AA",
				ProducerName:   "Acme Packaging",
				StatusCode:     "registered",
				Town:           "Leeds",
			},
		},
		"compliance scheme": {
			producer: backend.UpdatedProducer{
				IsComplianceScheme: true,
				OrganisationID:     "org-2",
				OrganisationName:   "Scheme Co",
			},
			want: Producer{
				EntityTypeCode: "CS",
				EPRId:          "org-2",
				ProducerName:   "Scheme Co",
			},
		},
		"missing organisation id": {
			producer: backend.UpdatedProducer{ReferenceNumber: "100002"},
			wantErr:  true,
			errMsg:   `producer "100002" has no organisation ID`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := NewProducer(tc.producer)

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.want, got)
			}
		})
	}
}
