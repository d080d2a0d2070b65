package runners

import (
	"context"
	"time"

	"github.com/peteski22/prnbridge/internal/backend"
	"github.com/peteski22/prnbridge/internal/config"
	"github.com/peteski22/prnbridge/internal/npwd"
	"github.com/peteski22/prnbridge/internal/remote"
	"github.com/peteski22/prnbridge/internal/rrepw"
	"github.com/peteski22/prnbridge/internal/sync"
	"github.com/peteski22/prnbridge/internal/wasteorgs"
)

// wasteOrganisationsParallelism is the number of concurrent waste-organisations pushes.
const wasteOrganisationsParallelism = 20

// rrepwSkip lists the RREPW statuses that skip a record rather than fail it.
var rrepwSkip = []int{401, 403, 404}

// rrepwStatusChange is a status change addressed to one RREPW PRN.
type rrepwStatusChange struct {
	prnNumber string
	update    rrepw.StatusUpdate
}

func prnUpdateID(u backend.PrnStatusUpdate) string { return u.EvidenceNo }

func prnUpdateStamp(u backend.PrnStatusUpdate) time.Time { return u.StatusDate }

func producerID(p backend.UpdatedProducer) string { return p.OrganisationID }

func producerStamp(p backend.UpdatedProducer) time.Time { return p.UpdatedAt }

// updatedProducersSource fetches producers changed in the backend.
func updatedProducersSource(client BackendAPI) sync.Source[backend.UpdatedProducer] {
	return sync.SourceFunc[backend.UpdatedProducer](client.UpdatedProducers)
}

// updatedPrnsSource fetches PRN status changes recorded against source.
func updatedPrnsSource(client BackendAPI, source backend.SourceSystem) sync.Source[backend.PrnStatusUpdate] {
	return sync.SourceFunc[backend.PrnStatusUpdate](
		func(ctx context.Context, from time.Time, to time.Time) ([]backend.PrnStatusUpdate, error) {
			return client.UpdatedPrns(ctx, backend.PrnQuery{From: from, SourceSystem: source, To: to})
		})
}

// fetchNpwdIssuedPrns enqueues PRNs issued in NPWD for ingestion.
func fetchNpwdIssuedPrns(cfg config.Runner, deps Deps) (Runnable, error) {
	if err := required(map[string]bool{
		"npwd client":      deps.Npwd != nil,
		"issued PRN queue": deps.IssuedPrnQueue != nil,
	}); err != nil {
		return nil, err
	}

	c, err := base[npwd.Prn, npwd.Prn](sync.KeyFetchNpwdIssuedPrns, cfg, deps)
	if err != nil {
		return nil, err
	}
	c.Bulk = sync.BulkTargetFunc[npwd.Prn](deps.IssuedPrnQueue.Enqueue)
	c.EmptyPolicy = sync.HoldOnEmpty
	c.Identify = func(p npwd.Prn) string { return p.EvidenceNo }
	c.Mapper = sync.Identity[npwd.Prn]()
	c.Source = sync.SourceFunc[npwd.Prn](deps.Npwd.IssuedPrns)
	c.Stamp = func(p npwd.Prn) time.Time { return p.StatusDate }

	return runnable(c)
}

// fetchRrepwIssuedPrns saves PRNs authorised in RREPW to the backend.
func fetchRrepwIssuedPrns(cfg config.Runner, deps Deps) (Runnable, error) {
	if err := required(map[string]bool{
		"rrepw client":   deps.Rrepw != nil,
		"backend client": deps.Backend != nil,
	}); err != nil {
		return nil, err
	}

	c, err := base[rrepw.Prn, *backend.SavePrnRequest](sync.KeyFetchRrepwIssuedPrns, cfg, deps)
	if err != nil {
		return nil, err
	}
	c.EmptyPolicy = sync.HoldOnEmpty
	c.Identify = func(p rrepw.Prn) string { return p.PrnNumber }
	c.Mapper = sync.MapperFunc[rrepw.Prn, *backend.SavePrnRequest](func(p rrepw.Prn) (*backend.SavePrnRequest, error) {
		return p.ToSaveRequest()
	})
	c.PerItem = sync.ItemTargetFunc[*backend.SavePrnRequest](deps.Backend.SavePrn)
	c.Source = sync.SourceFunc[rrepw.Prn](deps.Rrepw.IssuedPrns)
	c.Stamp = func(p rrepw.Prn) time.Time { return p.Status.AuthorisedAt }

	return runnable(c)
}

// updatePrns sends backend PRN status changes to NPWD as one delta.
func updatePrns(cfg config.Runner, deps Deps) (Runnable, error) {
	if err := required(map[string]bool{
		"backend client": deps.Backend != nil,
		"npwd client":    deps.Npwd != nil,
	}); err != nil {
		return nil, err
	}

	c, err := base[backend.PrnStatusUpdate, npwd.PrnStatus](sync.KeyUpdatePrns, cfg, deps)
	if err != nil {
		return nil, err
	}
	c.Bulk = sync.BulkTargetFunc[npwd.PrnStatus](func(ctx context.Context, batch []npwd.PrnStatus) error {
		return deps.Npwd.PatchPrns(ctx, npwd.PrnDelta{Value: batch})
	})
	c.EmptyPolicy = sync.AdvanceOnEmpty
	c.Identify = prnUpdateID
	c.Mapper = sync.MapperFunc[backend.PrnStatusUpdate, npwd.PrnStatus](npwd.NewPrnStatus)
	c.Source = updatedPrnsSource(deps.Backend, backend.SourceSystemNpwd)
	c.Stamp = prnUpdateStamp

	return runnable(c)
}

// updatedProducers sends backend producer changes to NPWD as one delta.
func updatedProducers(cfg config.Runner, deps Deps) (Runnable, error) {
	if err := required(map[string]bool{
		"backend client": deps.Backend != nil,
		"npwd client":    deps.Npwd != nil,
	}); err != nil {
		return nil, err
	}

	c, err := base[backend.UpdatedProducer, npwd.Producer](sync.KeyUpdatedProducers, cfg, deps)
	if err != nil {
		return nil, err
	}
	c.Bulk = sync.BulkTargetFunc[npwd.Producer](func(ctx context.Context, batch []npwd.Producer) error {
		return deps.Npwd.PatchProducers(ctx, npwd.ProducerDelta{Value: batch})
	})
	c.EmptyPolicy = sync.AdvanceOnEmpty
	c.Identify = producerID
	c.Mapper = sync.MapperFunc[backend.UpdatedProducer, npwd.Producer](npwd.NewProducer)
	c.Source = updatedProducersSource(deps.Backend)
	c.Stamp = producerStamp

	return runnable(c)
}

// updateWasteOrganisations sends backend producer changes to the waste-organisations registry.
func updateWasteOrganisations(cfg config.Runner, deps Deps) (Runnable, error) {
	if err := required(map[string]bool{
		"backend client":             deps.Backend != nil,
		"waste organisations client": deps.WasteOrganisations != nil,
	}); err != nil {
		return nil, err
	}

	c, err := base[backend.UpdatedProducer, wasteorgs.Organisation](sync.KeyUpdateWasteOrganisations, cfg, deps)
	if err != nil {
		return nil, err
	}
	c.EmptyPolicy = sync.AdvanceOnEmpty
	c.Identify = producerID
	c.Mapper = sync.MapperFunc[backend.UpdatedProducer, wasteorgs.Organisation](wasteorgs.NewOrganisation)
	c.Parallelism = wasteOrganisationsParallelism
	c.PerItem = sync.ItemTargetFunc[wasteorgs.Organisation](deps.WasteOrganisations.PutOrganisation)
	c.Source = updatedProducersSource(deps.Backend)
	c.Stamp = producerStamp

	return runnable(c)
}

// updateRrepwPrns sends producer decisions on RREPW PRNs back to RREPW.
func updateRrepwPrns(cfg config.Runner, deps Deps) (Runnable, error) {
	if err := required(map[string]bool{
		"backend client": deps.Backend != nil,
		"rrepw client":   deps.Rrepw != nil,
	}); err != nil {
		return nil, err
	}

	c, err := base[backend.PrnStatusUpdate, rrepwStatusChange](sync.KeyUpdateRrepwPrns, cfg, deps)
	if err != nil {
		return nil, err
	}
	c.Classifier = remote.Classifier{Skip: rrepwSkip}
	c.EmptyPolicy = sync.AdvanceOnEmpty
	c.Identify = prnUpdateID
	c.Mapper = sync.MapperFunc[backend.PrnStatusUpdate, rrepwStatusChange](
		func(u backend.PrnStatusUpdate) (rrepwStatusChange, error) {
			update, err := rrepw.NewStatusUpdate(u)
			if err != nil {
				return rrepwStatusChange{}, err
			}
			return rrepwStatusChange{prnNumber: u.EvidenceNo, update: update}, nil
		})
	c.PerItem = sync.ItemTargetFunc[rrepwStatusChange](func(ctx context.Context, change rrepwStatusChange) error {
		return deps.Rrepw.UpdatePrnStatus(ctx, change.prnNumber, change.update)
	})
	c.Source = updatedPrnsSource(deps.Backend, backend.SourceSystemRrepw)
	c.Stamp = prnUpdateStamp

	return runnable(c)
}

// updatedRrepwProducers sends backend producer changes to RREPW.
func updatedRrepwProducers(cfg config.Runner, deps Deps) (Runnable, error) {
	if err := required(map[string]bool{
		"backend client": deps.Backend != nil,
		"rrepw client":   deps.Rrepw != nil,
	}); err != nil {
		return nil, err
	}

	c, err := base[backend.UpdatedProducer, rrepw.Organisation](sync.KeyUpdatedRrepwProducers, cfg, deps)
	if err != nil {
		return nil, err
	}
	c.Classifier = remote.Classifier{Skip: rrepwSkip}
	c.EmptyPolicy = sync.AdvanceOnEmpty
	c.Identify = producerID
	c.Mapper = sync.MapperFunc[backend.UpdatedProducer, rrepw.Organisation](rrepw.NewOrganisation)
	c.PerItem = sync.ItemTargetFunc[rrepw.Organisation](deps.Rrepw.UpsertOrganisation)
	c.Source = updatedProducersSource(deps.Backend)
	c.Stamp = producerStamp

	return runnable(c)
}
