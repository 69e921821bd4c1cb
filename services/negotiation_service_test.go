package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hadialmais/lynqmarket_backend/models"
	"github.com/hadialmais/lynqmarket_backend/repositories"
)

func floatPtr(v float64) *float64 { return &v }

// fakeCommissionStore is an in-memory CommissionStore with the same
// conditional-update semantics as the Mongo repository.
type fakeCommissionStore struct {
	commissions  map[primitive.ObjectID]*models.Commission
	beforeUpdate func()
}

func newFakeCommissionStore() *fakeCommissionStore {
	return &fakeCommissionStore{commissions: make(map[primitive.ObjectID]*models.Commission)}
}

func cloneCommission(c *models.Commission) *models.Commission {
	clone := *c
	clone.NegotiationHistory = append([]models.NegotiationEntry(nil), c.NegotiationHistory...)
	return &clone
}

func (f *fakeCommissionStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	commission, ok := f.commissions[id]
	if !ok {
		return nil, models.NewNotFoundError("commission not found")
	}
	return cloneCommission(commission), nil
}

func (f *fakeCommissionStore) FindByService(ctx context.Context, serviceID primitive.ObjectID) (*models.Commission, error) {
	for _, commission := range f.commissions {
		if commission.ServiceID == serviceID {
			return cloneCommission(commission), nil
		}
	}
	return nil, models.NewNotFoundError("no commission found for service")
}

func (f *fakeCommissionStore) Insert(ctx context.Context, commission *models.Commission) error {
	commission.ID = primitive.NewObjectID()
	f.commissions[commission.ID] = cloneCommission(commission)
	return nil
}

func (f *fakeCommissionStore) Update(ctx context.Context, commission *models.Commission, expectedStatus string) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	stored, ok := f.commissions[commission.ID]
	if !ok || stored.Status != expectedStatus {
		return models.NewInvalidStateError("commission was modified concurrently, please retry")
	}
	f.commissions[commission.ID] = cloneCommission(commission)
	return nil
}

func (f *fakeCommissionStore) Find(ctx context.Context, filter repositories.CommissionFilter) ([]models.Commission, error) {
	var result []models.Commission
	for _, commission := range f.commissions {
		if filter.Status != "" && commission.Status != filter.Status {
			continue
		}
		if filter.Type != "" && commission.Type != filter.Type {
			continue
		}
		if filter.ManagerID != nil && commission.ManagerID != *filter.ManagerID {
			continue
		}
		if filter.ServiceID != nil && commission.ServiceID != *filter.ServiceID {
			continue
		}
		result = append(result, *cloneCommission(commission))
	}
	return result, nil
}

func (f *fakeCommissionStore) FindByManager(ctx context.Context, managerID primitive.ObjectID) ([]models.Commission, error) {
	return f.Find(ctx, repositories.CommissionFilter{ManagerID: &managerID})
}

func (f *fakeCommissionStore) StatusStats(ctx context.Context, managerID *primitive.ObjectID) ([]repositories.CommissionStatusStat, error) {
	sums := make(map[string]float64)
	counts := make(map[string]int64)
	for _, commission := range f.commissions {
		if managerID != nil && commission.ManagerID != *managerID {
			continue
		}
		counts[commission.Status]++
		sums[commission.Status] += commission.OfferedPercentage
	}

	var stats []repositories.CommissionStatusStat
	for status, count := range counts {
		stats = append(stats, repositories.CommissionStatusStat{
			Status:        status,
			Count:         count,
			AvgPercentage: sums[status] / float64(count),
		})
	}
	return stats, nil
}

func (f *fakeCommissionStore) MonthlyStats(ctx context.Context, buckets int) ([]repositories.CommissionMonthlyStat, error) {
	counts := make(map[[2]int]int64)
	for _, commission := range f.commissions {
		key := [2]int{commission.CreatedAt.Year(), int(commission.CreatedAt.Month())}
		counts[key]++
	}

	var stats []repositories.CommissionMonthlyStat
	for key, count := range counts {
		if len(stats) == buckets {
			break
		}
		stats = append(stats, repositories.CommissionMonthlyStat{Year: key[0], Month: key[1], Count: count})
	}
	return stats, nil
}

func (f *fakeCommissionStore) GlobalStats(ctx context.Context) (*repositories.CommissionGlobalStats, error) {
	stats := &repositories.CommissionGlobalStats{}
	var offeredSum, counterSum, finalSum float64
	var counterCount, finalCount int64

	for _, commission := range f.commissions {
		stats.Total++
		offeredSum += commission.OfferedPercentage
		if commission.AdminCounterPercentage != nil {
			counterSum += *commission.AdminCounterPercentage
			counterCount++
		}
		if commission.FinalPercentage != nil {
			finalSum += *commission.FinalPercentage
			finalCount++
		}
		switch commission.Status {
		case models.CommissionStatusAccepted:
			stats.AcceptedTotal++
		case models.CommissionStatusRejected:
			stats.RejectedTotal++
		default:
			stats.OutstandingTotal++
		}
	}

	if stats.Total > 0 {
		avg := offeredSum / float64(stats.Total)
		stats.AvgOffered = &avg
	}
	if counterCount > 0 {
		avg := counterSum / float64(counterCount)
		stats.AvgAdminCounter = &avg
	}
	if finalCount > 0 {
		avg := finalSum / float64(finalCount)
		stats.AvgFinal = &avg
	}
	return stats, nil
}

// fakeServiceStore is an in-memory ServiceStore
type fakeServiceStore struct {
	services  map[primitive.ObjectID]*models.Service
	updateErr error
}

func newFakeServiceStore() *fakeServiceStore {
	return &fakeServiceStore{services: make(map[primitive.ObjectID]*models.Service)}
}

func (f *fakeServiceStore) addService(managerID primitive.ObjectID) primitive.ObjectID {
	id := primitive.NewObjectID()
	f.services[id] = &models.Service{ID: id, ManagerID: managerID, Title: "test service", Price: 100, IsActive: true}
	return id
}

func (f *fakeServiceStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Service, error) {
	service, ok := f.services[id]
	if !ok {
		return nil, models.NewNotFoundError("service not found")
	}
	return service, nil
}

func (f *fakeServiceStore) UpdateCommissionProjection(ctx context.Context, serviceID primitive.ObjectID, projection models.ServiceCommissionProjection) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	service, ok := f.services[serviceID]
	if !ok {
		// Absent target services are tolerated, mirroring the Mongo impl.
		return nil
	}
	service.CommissionStatus = projection.CommissionStatus
	service.FinalCommissionPercentage = projection.FinalCommissionPercentage
	commissionID := projection.CommissionID
	service.CommissionID = &commissionID
	return nil
}

type negotiationFixture struct {
	engine      *NegotiationService
	commissions *fakeCommissionStore
	services    *fakeServiceStore
	managerID   primitive.ObjectID
	adminID     primitive.ObjectID
	serviceID   primitive.ObjectID
}

func newNegotiationFixture() *negotiationFixture {
	commissions := newFakeCommissionStore()
	services := newFakeServiceStore()
	managerID := primitive.NewObjectID()

	return &negotiationFixture{
		engine:      NewNegotiationService(commissions, services),
		commissions: commissions,
		services:    services,
		managerID:   managerID,
		adminID:     primitive.NewObjectID(),
		serviceID:   services.addService(managerID),
	}
}

func TestSubmitOffer(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesCommissionAndSyncsService", func(t *testing.T) {
		fx := newNegotiationFixture()

		commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "initial")
		require.NoError(t, err)
		assert.False(t, commission.ID.IsZero())
		assert.Equal(t, models.CommissionStatusPending, commission.Status)

		service := fx.services.services[fx.serviceID]
		assert.Equal(t, models.ServiceCommissionPending, service.CommissionStatus)
		require.NotNil(t, service.CommissionID)
		assert.Equal(t, commission.ID, *service.CommissionID)
		assert.Nil(t, service.FinalCommissionPercentage)
	})

	t.Run("ResubmitUpdatesExistingRecord", func(t *testing.T) {
		fx := newNegotiationFixture()

		first, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "initial")
		require.NoError(t, err)

		second, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 18, "updated")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, fx.commissions.commissions, 1)
		assert.Equal(t, 18.0, second.OfferedPercentage)
		require.Len(t, second.NegotiationHistory, 2)
		assert.Equal(t, models.NegotiationActionOfferUpdated, second.NegotiationHistory[1].Action)
	})

	t.Run("RejectsOutOfRangePercentage", func(t *testing.T) {
		fx := newNegotiationFixture()
		_, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 0, "")
		var validationErr *models.ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Empty(t, fx.commissions.commissions)
	})

	t.Run("RejectsForeignService", func(t *testing.T) {
		fx := newNegotiationFixture()
		_, err := fx.engine.SubmitOffer(ctx, primitive.NewObjectID(), fx.serviceID, 15, "")
		var forbiddenErr *models.ForbiddenError
		assert.ErrorAs(t, err, &forbiddenErr)
	})

	t.Run("UnknownService", func(t *testing.T) {
		fx := newNegotiationFixture()
		_, err := fx.engine.SubmitOffer(ctx, fx.managerID, primitive.NewObjectID(), 15, "")
		var notFoundErr *models.NotFoundError
		assert.ErrorAs(t, err, &notFoundErr)
	})
}

func TestAdminRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("AcceptSyncsAgreedProjection", func(t *testing.T) {
		fx := newNegotiationFixture()
		commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
		require.NoError(t, err)

		updated, err := fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionAccept, nil, "deal")
		require.NoError(t, err)

		assert.Equal(t, models.CommissionStatusAccepted, updated.Status)
		require.NotNil(t, updated.FinalPercentage)
		assert.Equal(t, 15.0, *updated.FinalPercentage)

		service := fx.services.services[fx.serviceID]
		assert.Equal(t, models.ServiceCommissionAgreed, service.CommissionStatus)
		require.NotNil(t, service.FinalCommissionPercentage)
		assert.Equal(t, 15.0, *service.FinalCommissionPercentage)
	})

	t.Run("UnknownCommission", func(t *testing.T) {
		fx := newNegotiationFixture()
		_, err := fx.engine.AdminRespond(ctx, primitive.NewObjectID(), fx.adminID, models.ResponseActionAccept, nil, "")
		var notFoundErr *models.NotFoundError
		assert.ErrorAs(t, err, &notFoundErr)
	})

	t.Run("FinalizedCommission", func(t *testing.T) {
		fx := newNegotiationFixture()
		commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
		require.NoError(t, err)
		_, err = fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionReject, nil, "")
		require.NoError(t, err)

		_, err = fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionAccept, nil, "")
		var stateErr *models.InvalidStateError
		assert.ErrorAs(t, err, &stateErr)

		stored := fx.commissions.commissions[commission.ID]
		assert.Equal(t, models.CommissionStatusRejected, stored.Status)
		assert.Len(t, stored.NegotiationHistory, 2)
	})

	t.Run("ConcurrentResponseLosesConditionalWrite", func(t *testing.T) {
		fx := newNegotiationFixture()
		commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
		require.NoError(t, err)

		// Another response lands between this call's read and write.
		fx.commissions.beforeUpdate = func() {
			fx.commissions.commissions[commission.ID].Status = models.CommissionStatusAccepted
			fx.commissions.beforeUpdate = nil
		}

		_, err = fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionReject, nil, "")
		var stateErr *models.InvalidStateError
		assert.ErrorAs(t, err, &stateErr)
		assert.Equal(t, models.CommissionStatusAccepted, fx.commissions.commissions[commission.ID].Status)
	})
}

func TestManagerRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("AcceptCounterUsesCounterValue", func(t *testing.T) {
		fx := newNegotiationFixture()
		commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
		require.NoError(t, err)
		_, err = fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionCounter, floatPtr(10), "")
		require.NoError(t, err)

		updated, err := fx.engine.ManagerRespond(ctx, commission.ID, fx.managerID, models.ResponseActionAccept, nil, "")
		require.NoError(t, err)

		require.NotNil(t, updated.FinalPercentage)
		assert.Equal(t, 10.0, *updated.FinalPercentage)
		assert.Equal(t, models.ServiceCommissionAgreed, fx.services.services[fx.serviceID].CommissionStatus)
	})

	t.Run("CounterRoundTrip", func(t *testing.T) {
		fx := newNegotiationFixture()
		commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
		require.NoError(t, err)
		_, err = fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionCounter, floatPtr(10), "")
		require.NoError(t, err)

		updated, err := fx.engine.ManagerRespond(ctx, commission.ID, fx.managerID, models.ResponseActionCounter, floatPtr(12), "")
		require.NoError(t, err)

		assert.Equal(t, models.CommissionStatusPending, updated.Status)
		assert.Equal(t, models.CommissionTypeManagerOffer, updated.Type)
		assert.Equal(t, 12.0, updated.OfferedPercentage)
		assert.Nil(t, updated.AdminCounterPercentage)
		assert.Equal(t, models.ServiceCommissionPending, fx.services.services[fx.serviceID].CommissionStatus)
	})

	t.Run("ForeignManagerForbidden", func(t *testing.T) {
		fx := newNegotiationFixture()
		commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
		require.NoError(t, err)
		_, err = fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionCounter, floatPtr(10), "")
		require.NoError(t, err)

		_, err = fx.engine.ManagerRespond(ctx, commission.ID, primitive.NewObjectID(), models.ResponseActionAccept, nil, "")
		var forbiddenErr *models.ForbiddenError
		assert.ErrorAs(t, err, &forbiddenErr)
	})

	t.Run("NoOutstandingCounter", func(t *testing.T) {
		fx := newNegotiationFixture()
		commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
		require.NoError(t, err)

		_, err = fx.engine.ManagerRespond(ctx, commission.ID, fx.managerID, models.ResponseActionAccept, nil, "")
		var stateErr *models.InvalidStateError
		assert.ErrorAs(t, err, &stateErr)
	})
}

func TestBulkAdminRespond(t *testing.T) {
	ctx := context.Background()
	fx := newNegotiationFixture()

	pending, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
	require.NoError(t, err)

	finalizedServiceID := fx.services.addService(fx.managerID)
	finalized, err := fx.engine.SubmitOffer(ctx, fx.managerID, finalizedServiceID, 20, "")
	require.NoError(t, err)
	_, err = fx.engine.AdminRespond(ctx, finalized.ID, fx.adminID, models.ResponseActionAccept, nil, "")
	require.NoError(t, err)

	results := fx.engine.BulkAdminRespond(ctx, []string{
		pending.ID.Hex(),
		finalized.ID.Hex(),
		"not-a-hex-id",
	}, fx.adminID, models.ResponseActionAccept, nil, "bulk accept")

	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.Equal(t, pending.ID.Hex(), results[0].ID)
	assert.Equal(t, models.CommissionStatusAccepted, fx.commissions.commissions[pending.ID].Status)

	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "finalized")
	// The finalized record stays exactly as it was.
	stored := fx.commissions.commissions[finalized.ID]
	require.NotNil(t, stored.FinalPercentage)
	assert.Equal(t, 20.0, *stored.FinalPercentage)
	assert.Len(t, stored.NegotiationHistory, 2)

	assert.False(t, results[2].Success)
	assert.Contains(t, results[2].Error, "invalid commission ID")
}

func TestProjectionSyncFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	fx := newNegotiationFixture()

	commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
	require.NoError(t, err)

	fx.services.updateErr = errors.New("catalog unavailable")
	updated, err := fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionAccept, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusAccepted, updated.Status)
	assert.Equal(t, models.CommissionStatusAccepted, fx.commissions.commissions[commission.ID].Status)
}

func TestFullNegotiationScenario(t *testing.T) {
	// Manager offers 15%, admin counters 10%, manager counters 12%, admin
	// accepts: the final percentage is 12 and the service reads agreed.
	ctx := context.Background()
	fx := newNegotiationFixture()

	commission, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "opening offer")
	require.NoError(t, err)

	_, err = fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionCounter, floatPtr(10), "too steep")
	require.NoError(t, err)

	_, err = fx.engine.ManagerRespond(ctx, commission.ID, fx.managerID, models.ResponseActionCounter, floatPtr(12), "middle ground")
	require.NoError(t, err)

	final, err := fx.engine.AdminRespond(ctx, commission.ID, fx.adminID, models.ResponseActionAccept, nil, "done")
	require.NoError(t, err)

	assert.Equal(t, models.CommissionStatusAccepted, final.Status)
	require.NotNil(t, final.FinalPercentage)
	assert.Equal(t, 12.0, *final.FinalPercentage)

	require.Len(t, final.NegotiationHistory, 4)
	actions := make([]string, 0, 4)
	for _, entry := range final.NegotiationHistory {
		actions = append(actions, entry.Action)
	}
	assert.Equal(t, []string{
		models.NegotiationActionOffer,
		models.NegotiationActionAdminCounter,
		models.NegotiationActionManagerCounter,
		models.NegotiationActionAdminAccept,
	}, actions)

	service := fx.services.services[fx.serviceID]
	assert.Equal(t, models.ServiceCommissionAgreed, service.CommissionStatus)
	require.NotNil(t, service.FinalCommissionPercentage)
	assert.Equal(t, 12.0, *service.FinalCommissionPercentage)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	fx := newNegotiationFixture()

	accepted, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 20, "")
	require.NoError(t, err)
	_, err = fx.engine.AdminRespond(ctx, accepted.ID, fx.adminID, models.ResponseActionAccept, nil, "")
	require.NoError(t, err)

	secondServiceID := fx.services.addService(fx.managerID)
	_, err = fx.engine.SubmitOffer(ctx, fx.managerID, secondServiceID, 10, "")
	require.NoError(t, err)

	stats, err := fx.engine.Stats(ctx)
	require.NoError(t, err)

	require.NotNil(t, stats.Totals)
	assert.Equal(t, int64(2), stats.Totals.Total)
	assert.Equal(t, int64(1), stats.Totals.AcceptedTotal)
	assert.Equal(t, int64(1), stats.Totals.OutstandingTotal)
	require.NotNil(t, stats.Totals.AvgOffered)
	assert.Equal(t, 15.0, *stats.Totals.AvgOffered)
	require.NotNil(t, stats.Totals.AvgFinal)
	assert.Equal(t, 20.0, *stats.Totals.AvgFinal)
	// No counter was ever outstanding, so the counter average is unset.
	assert.Nil(t, stats.Totals.AvgAdminCounter)

	assert.Len(t, stats.ByStatus, 2)
	require.NotEmpty(t, stats.Monthly)
}

func TestManagerSummary(t *testing.T) {
	ctx := context.Background()
	fx := newNegotiationFixture()

	_, err := fx.engine.SubmitOffer(ctx, fx.managerID, fx.serviceID, 15, "")
	require.NoError(t, err)

	otherManager := primitive.NewObjectID()
	otherService := fx.services.addService(otherManager)
	_, err = fx.engine.SubmitOffer(ctx, otherManager, otherService, 30, "")
	require.NoError(t, err)

	summary, err := fx.engine.ManagerSummary(ctx, fx.managerID)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, models.CommissionStatusPending, summary[0].Status)
	assert.Equal(t, int64(1), summary[0].Count)
	assert.Equal(t, 15.0, summary[0].AvgPercentage)
}
