package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func floatPtr(v float64) *float64 { return &v }

func newTestOffer(t *testing.T, percentage float64) *Commission {
	t.Helper()
	commission, err := NewCommissionOffer(primitive.NewObjectID(), primitive.NewObjectID(), percentage, "initial offer", time.Now())
	require.NoError(t, err)
	return commission
}

func TestNewCommissionOffer(t *testing.T) {
	managerID := primitive.NewObjectID()
	serviceID := primitive.NewObjectID()
	now := time.Now()

	t.Run("ValidOffer", func(t *testing.T) {
		commission, err := NewCommissionOffer(managerID, serviceID, 15, "let's start at 15", now)
		require.NoError(t, err)

		assert.Equal(t, CommissionStatusPending, commission.Status)
		assert.Equal(t, CommissionTypeManagerOffer, commission.Type)
		assert.Equal(t, 15.0, commission.OfferedPercentage)
		assert.Nil(t, commission.AdminCounterPercentage)
		assert.Nil(t, commission.FinalPercentage)
		require.Len(t, commission.NegotiationHistory, 1)

		entry := commission.NegotiationHistory[0]
		assert.Equal(t, NegotiationActionOffer, entry.Action)
		assert.Equal(t, managerID, entry.ByUser)
		assert.Equal(t, RoleManager, entry.ByRole)
		require.NotNil(t, entry.Percentage)
		assert.Equal(t, 15.0, *entry.Percentage)
	})

	t.Run("BoundaryPercentages", func(t *testing.T) {
		for _, p := range []float64{0.1, 100} {
			_, err := NewCommissionOffer(managerID, serviceID, p, "", now)
			assert.NoError(t, err, "percentage %g should be accepted", p)
		}
	})

	t.Run("OutOfRangePercentages", func(t *testing.T) {
		for _, p := range []float64{0, 0.05, -5, 100.5, 200} {
			_, err := NewCommissionOffer(managerID, serviceID, p, "", now)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr, "percentage %g should be rejected", p)
		}
	})
}

func TestResubmitOffer(t *testing.T) {
	t.Run("UpdatesInPlace", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		err := commission.ResubmitOffer(commission.ManagerID, 18, "raising the ask", time.Now())
		require.NoError(t, err)

		assert.Equal(t, 18.0, commission.OfferedPercentage)
		assert.Equal(t, CommissionStatusPending, commission.Status)
		assert.Equal(t, CommissionTypeManagerOffer, commission.Type)
		require.Len(t, commission.NegotiationHistory, 2)
		assert.Equal(t, NegotiationActionOfferUpdated, commission.NegotiationHistory[1].Action)
	})

	t.Run("ClearsOutstandingCounter", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		adminID := primitive.NewObjectID()
		require.NoError(t, commission.ApplyAdminResponse(adminID, ResponseActionCounter, floatPtr(10), "too high", time.Now()))

		require.NoError(t, commission.ResubmitOffer(commission.ManagerID, 12, "", time.Now()))
		assert.Nil(t, commission.AdminCounterPercentage)
		assert.Nil(t, commission.AdminRespondedBy)
		assert.Empty(t, commission.AdminNotes)
	})

	t.Run("WrongManager", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		err := commission.ResubmitOffer(primitive.NewObjectID(), 18, "", time.Now())
		var forbiddenErr *ForbiddenError
		assert.ErrorAs(t, err, &forbiddenErr)
	})
}

func TestAdminAccept(t *testing.T) {
	commission := newTestOffer(t, 15)
	adminID := primitive.NewObjectID()

	err := commission.ApplyAdminResponse(adminID, ResponseActionAccept, nil, "deal", time.Now())
	require.NoError(t, err)

	assert.Equal(t, CommissionStatusAccepted, commission.Status)
	require.NotNil(t, commission.FinalPercentage)
	assert.Equal(t, 15.0, *commission.FinalPercentage)
	assert.NotNil(t, commission.AgreedAt)
	require.NotNil(t, commission.AgreedBy)
	assert.Equal(t, adminID, *commission.AgreedBy)
	require.Len(t, commission.NegotiationHistory, 2)
	assert.Equal(t, NegotiationActionAdminAccept, commission.NegotiationHistory[1].Action)
	assert.Equal(t, ServiceCommissionAgreed, commission.ServiceCommissionStatus())
}

func TestAdminReject(t *testing.T) {
	commission := newTestOffer(t, 15)

	err := commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionReject, nil, "not viable", time.Now())
	require.NoError(t, err)

	assert.Equal(t, CommissionStatusRejected, commission.Status)
	assert.Nil(t, commission.FinalPercentage)
	assert.Nil(t, commission.AgreedAt)
	require.Len(t, commission.NegotiationHistory, 2)
	assert.Equal(t, NegotiationActionAdminReject, commission.NegotiationHistory[1].Action)
	assert.Equal(t, ServiceCommissionRejected, commission.ServiceCommissionStatus())
}

func TestAdminCounter(t *testing.T) {
	t.Run("ValidCounter", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		adminID := primitive.NewObjectID()

		err := commission.ApplyAdminResponse(adminID, ResponseActionCounter, floatPtr(10), "meet in the middle", time.Now())
		require.NoError(t, err)

		assert.Equal(t, CommissionStatusNegotiating, commission.Status)
		assert.Equal(t, CommissionTypeAdminCounter, commission.Type)
		require.NotNil(t, commission.AdminCounterPercentage)
		assert.Equal(t, 10.0, *commission.AdminCounterPercentage)
		assert.Equal(t, 15.0, commission.OfferedPercentage)
		require.Len(t, commission.NegotiationHistory, 2)
		assert.Equal(t, NegotiationActionAdminCounter, commission.NegotiationHistory[1].Action)
	})

	t.Run("MissingCounterPercentage", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		err := commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionCounter, nil, "", time.Now())
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Nil(t, commission.AdminCounterPercentage)
		assert.Len(t, commission.NegotiationHistory, 1)
	})

	t.Run("ZeroCounterPercentage", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		err := commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionCounter, floatPtr(0), "", time.Now())
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Nil(t, commission.AdminCounterPercentage)
		assert.Equal(t, CommissionStatusPending, commission.Status)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		err := commission.ApplyAdminResponse(primitive.NewObjectID(), "escalate", nil, "", time.Now())
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestFinalizedCommissionIsTerminal(t *testing.T) {
	for _, terminalAction := range []string{ResponseActionAccept, ResponseActionReject} {
		commission := newTestOffer(t, 15)
		require.NoError(t, commission.ApplyAdminResponse(primitive.NewObjectID(), terminalAction, nil, "", time.Now()))

		before := *commission
		historyLen := len(commission.NegotiationHistory)

		var stateErr *InvalidStateError
		err := commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionAccept, nil, "", time.Now())
		assert.ErrorAs(t, err, &stateErr)

		err = commission.ApplyManagerResponse(commission.ManagerID, ResponseActionCounter, floatPtr(12), "", time.Now())
		assert.ErrorAs(t, err, &stateErr)

		err = commission.ResubmitOffer(commission.ManagerID, 20, "", time.Now())
		assert.ErrorAs(t, err, &stateErr)

		assert.Equal(t, before.Status, commission.Status)
		assert.Equal(t, before.OfferedPercentage, commission.OfferedPercentage)
		assert.Equal(t, before.FinalPercentage, commission.FinalPercentage)
		assert.Len(t, commission.NegotiationHistory, historyLen)
	}
}

func TestManagerAcceptCounter(t *testing.T) {
	commission := newTestOffer(t, 15)
	require.NoError(t, commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionCounter, floatPtr(10), "", time.Now()))

	err := commission.ApplyManagerResponse(commission.ManagerID, ResponseActionAccept, nil, "fine", time.Now())
	require.NoError(t, err)

	assert.Equal(t, CommissionStatusAccepted, commission.Status)
	require.NotNil(t, commission.FinalPercentage)
	// The counter value wins, not the original offer.
	assert.Equal(t, 10.0, *commission.FinalPercentage)
	require.NotNil(t, commission.AgreedBy)
	assert.Equal(t, commission.ManagerID, *commission.AgreedBy)
	require.Len(t, commission.NegotiationHistory, 3)
	assert.Equal(t, NegotiationActionManagerAccept, commission.NegotiationHistory[2].Action)
}

func TestManagerRejectCounter(t *testing.T) {
	commission := newTestOffer(t, 15)
	require.NoError(t, commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionCounter, floatPtr(10), "", time.Now()))

	err := commission.ApplyManagerResponse(commission.ManagerID, ResponseActionReject, nil, "too low", time.Now())
	require.NoError(t, err)

	assert.Equal(t, CommissionStatusRejected, commission.Status)
	assert.Nil(t, commission.FinalPercentage)
	require.Len(t, commission.NegotiationHistory, 3)
	assert.Equal(t, NegotiationActionManagerReject, commission.NegotiationHistory[2].Action)
}

func TestManagerCounter(t *testing.T) {
	commission := newTestOffer(t, 15)
	require.NoError(t, commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionCounter, floatPtr(10), "", time.Now()))

	err := commission.ApplyManagerResponse(commission.ManagerID, ResponseActionCounter, floatPtr(12), "meet me at 12", time.Now())
	require.NoError(t, err)

	assert.Equal(t, CommissionStatusPending, commission.Status)
	assert.Equal(t, CommissionTypeManagerOffer, commission.Type)
	assert.Equal(t, 12.0, commission.OfferedPercentage)
	assert.Nil(t, commission.AdminCounterPercentage)
	assert.Nil(t, commission.AdminRespondedBy)
	assert.Empty(t, commission.AdminNotes)
	require.Len(t, commission.NegotiationHistory, 3)
	assert.Equal(t, NegotiationActionManagerCounter, commission.NegotiationHistory[2].Action)
}

func TestManagerCounterUpward(t *testing.T) {
	// Countering above the admin's counter is deliberately allowed; the
	// negotiation range is unconstrained apart from the percentage bounds.
	commission := newTestOffer(t, 15)
	require.NoError(t, commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionCounter, floatPtr(10), "", time.Now()))

	err := commission.ApplyManagerResponse(commission.ManagerID, ResponseActionCounter, floatPtr(25), "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 25.0, commission.OfferedPercentage)
}

func TestManagerRespondGuards(t *testing.T) {
	t.Run("NoOutstandingCounter", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		err := commission.ApplyManagerResponse(commission.ManagerID, ResponseActionAccept, nil, "", time.Now())
		var stateErr *InvalidStateError
		assert.ErrorAs(t, err, &stateErr)
		assert.Contains(t, err.Error(), "no admin counter offer")
	})

	t.Run("WrongManager", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		require.NoError(t, commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionCounter, floatPtr(10), "", time.Now()))

		err := commission.ApplyManagerResponse(primitive.NewObjectID(), ResponseActionAccept, nil, "", time.Now())
		var forbiddenErr *ForbiddenError
		assert.ErrorAs(t, err, &forbiddenErr)
	})

	t.Run("CounterWithoutPercentage", func(t *testing.T) {
		commission := newTestOffer(t, 15)
		require.NoError(t, commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionCounter, floatPtr(10), "", time.Now()))

		err := commission.ApplyManagerResponse(commission.ManagerID, ResponseActionCounter, nil, "", time.Now())
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestAcceptUnchangedOfferIsValid(t *testing.T) {
	// Accepting an offer whose value equals the stored one is a legal
	// transition, not a conflict.
	commission := newTestOffer(t, 15)
	require.NoError(t, commission.ResubmitOffer(commission.ManagerID, 15, "same ask again", time.Now()))

	err := commission.ApplyAdminResponse(primitive.NewObjectID(), ResponseActionAccept, nil, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, CommissionStatusAccepted, commission.Status)
}

func TestLedgerGrowsByOnePerOperation(t *testing.T) {
	commission := newTestOffer(t, 15)
	adminID := primitive.NewObjectID()

	operations := []func() error{
		func() error {
			return commission.ApplyAdminResponse(adminID, ResponseActionCounter, floatPtr(10), "", time.Now())
		},
		func() error {
			return commission.ApplyManagerResponse(commission.ManagerID, ResponseActionCounter, floatPtr(12), "", time.Now())
		},
		func() error {
			return commission.ApplyAdminResponse(adminID, ResponseActionCounter, floatPtr(11), "", time.Now())
		},
		func() error {
			return commission.ApplyManagerResponse(commission.ManagerID, ResponseActionAccept, nil, "", time.Now())
		},
	}

	for i, op := range operations {
		require.NoError(t, op())
		assert.Len(t, commission.NegotiationHistory, i+2)
	}

	require.NotNil(t, commission.FinalPercentage)
	assert.Equal(t, 11.0, *commission.FinalPercentage)
}
