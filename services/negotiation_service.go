// services/negotiation_service.go
package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hadialmais/lynqmarket_backend/models"
	"github.com/hadialmais/lynqmarket_backend/repositories"
)

// NegotiationService drives the commission negotiation between managers and
// admins. The commission record is authoritative; the service catalog only
// receives a best-effort projection after each transition.
type NegotiationService struct {
	commissions repositories.CommissionStore
	services    repositories.ServiceStore
	now         func() time.Time
}

func NewNegotiationService(commissions repositories.CommissionStore, services repositories.ServiceStore) *NegotiationService {
	return &NegotiationService{
		commissions: commissions,
		services:    services,
		now:         time.Now,
	}
}

// CommissionStats is the admin dashboard view over the commission collection
type CommissionStats struct {
	ByStatus []repositories.CommissionStatusStat  `json:"byStatus"`
	Monthly  []repositories.CommissionMonthlyStat `json:"monthly"`
	Totals   *repositories.CommissionGlobalStats  `json:"totals"`
}

// SubmitOffer records a manager's commission offer on a service. A service
// that already carries a commission gets its record updated in place rather
// than a duplicate.
func (s *NegotiationService) SubmitOffer(ctx context.Context, managerID, serviceID primitive.ObjectID, percentage float64, notes string) (*models.Commission, error) {
	service, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if service.ManagerID != managerID {
		return nil, models.NewForbiddenError("service belongs to another manager")
	}

	existing, err := s.commissions.FindByService(ctx, serviceID)
	if err != nil {
		if _, ok := err.(*models.NotFoundError); !ok {
			return nil, err
		}

		commission, err := models.NewCommissionOffer(managerID, serviceID, percentage, notes, s.now())
		if err != nil {
			return nil, err
		}
		if err := s.commissions.Insert(ctx, commission); err != nil {
			return nil, err
		}
		s.syncServiceProjection(ctx, commission)
		return commission, nil
	}

	previousStatus := existing.Status
	if err := existing.ResubmitOffer(managerID, percentage, notes, s.now()); err != nil {
		return nil, err
	}
	if err := s.commissions.Update(ctx, existing, previousStatus); err != nil {
		return nil, err
	}
	s.syncServiceProjection(ctx, existing)
	return existing, nil
}

// AdminRespond applies an admin's accept, reject or counter decision
func (s *NegotiationService) AdminRespond(ctx context.Context, commissionID, adminID primitive.ObjectID, action string, counterPercentage *float64, notes string) (*models.Commission, error) {
	commission, err := s.commissions.FindByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}

	previousStatus := commission.Status
	if err := commission.ApplyAdminResponse(adminID, action, counterPercentage, notes, s.now()); err != nil {
		return nil, err
	}
	if err := s.commissions.Update(ctx, commission, previousStatus); err != nil {
		return nil, err
	}

	s.syncServiceProjection(ctx, commission)
	return commission, nil
}

// ManagerRespond applies the owning manager's reaction to an outstanding
// admin counter offer
func (s *NegotiationService) ManagerRespond(ctx context.Context, commissionID, managerID primitive.ObjectID, response string, counterPercentage *float64, notes string) (*models.Commission, error) {
	commission, err := s.commissions.FindByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}

	previousStatus := commission.Status
	if err := commission.ApplyManagerResponse(managerID, response, counterPercentage, notes, s.now()); err != nil {
		return nil, err
	}
	if err := s.commissions.Update(ctx, commission, previousStatus); err != nil {
		return nil, err
	}

	s.syncServiceProjection(ctx, commission)
	return commission, nil
}

// BulkAdminRespond applies one admin response to each listed commission
// independently. Per-item failures go into that item's result entry; one
// bad id never aborts the batch.
func (s *NegotiationService) BulkAdminRespond(ctx context.Context, commissionIDs []string, adminID primitive.ObjectID, action string, counterPercentage *float64, notes string) []models.BulkCommissionResult {
	results := make([]models.BulkCommissionResult, 0, len(commissionIDs))

	for _, idHex := range commissionIDs {
		commissionID, err := primitive.ObjectIDFromHex(idHex)
		if err != nil {
			results = append(results, models.BulkCommissionResult{
				ID:      idHex,
				Success: false,
				Error:   "invalid commission ID format",
			})
			continue
		}

		if _, err := s.AdminRespond(ctx, commissionID, adminID, action, counterPercentage, notes); err != nil {
			results = append(results, models.BulkCommissionResult{
				ID:      idHex,
				Success: false,
				Error:   err.Error(),
			})
			continue
		}

		results = append(results, models.BulkCommissionResult{ID: idHex, Success: true})
	}

	return results
}

// Get returns one commission by id
func (s *NegotiationService) Get(ctx context.Context, commissionID primitive.ObjectID) (*models.Commission, error) {
	return s.commissions.FindByID(ctx, commissionID)
}

// GetForManager returns one commission after checking ownership
func (s *NegotiationService) GetForManager(ctx context.Context, commissionID, managerID primitive.ObjectID) (*models.Commission, error) {
	commission, err := s.commissions.FindByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if commission.ManagerID != managerID {
		return nil, models.NewForbiddenError("commission belongs to another manager")
	}
	return commission, nil
}

// List returns commissions matching the admin filter
func (s *NegotiationService) List(ctx context.Context, filter repositories.CommissionFilter) ([]models.Commission, error) {
	return s.commissions.Find(ctx, filter)
}

// ListForManager returns all commissions owned by one manager
func (s *NegotiationService) ListForManager(ctx context.Context, managerID primitive.ObjectID) ([]models.Commission, error) {
	return s.commissions.FindByManager(ctx, managerID)
}

// ListPendingAdminReview returns offers awaiting an admin decision
func (s *NegotiationService) ListPendingAdminReview(ctx context.Context) ([]models.Commission, error) {
	return s.commissions.Find(ctx, repositories.CommissionFilter{
		Status: models.CommissionStatusPending,
		Type:   models.CommissionTypeManagerOffer,
	})
}

// ManagerSummary returns per-status counts for one manager's commissions
func (s *NegotiationService) ManagerSummary(ctx context.Context, managerID primitive.ObjectID) ([]repositories.CommissionStatusStat, error) {
	return s.commissions.StatusStats(ctx, &managerID)
}

// Stats assembles the admin dashboard aggregation: by-status buckets,
// twelve monthly creation buckets and global averages.
func (s *NegotiationService) Stats(ctx context.Context) (*CommissionStats, error) {
	byStatus, err := s.commissions.StatusStats(ctx, nil)
	if err != nil {
		return nil, err
	}

	monthly, err := s.commissions.MonthlyStats(ctx, 12)
	if err != nil {
		return nil, err
	}

	totals, err := s.commissions.GlobalStats(ctx)
	if err != nil {
		return nil, err
	}

	return &CommissionStats{
		ByStatus: byStatus,
		Monthly:  monthly,
		Totals:   totals,
	}, nil
}

// syncServiceProjection pushes the commission state onto the linked service
// after the authoritative write has committed. Failures are logged and
// swallowed: the projection is a read optimization and must never roll back
// or fail the commission change.
func (s *NegotiationService) syncServiceProjection(ctx context.Context, commission *models.Commission) {
	projection := models.ServiceCommissionProjection{
		CommissionStatus: commission.ServiceCommissionStatus(),
		CommissionID:     commission.ID,
	}
	if commission.Status == models.CommissionStatusAccepted {
		projection.FinalCommissionPercentage = commission.FinalPercentage
	}

	if err := s.services.UpdateCommissionProjection(ctx, commission.ServiceID, projection); err != nil {
		log.Printf("Failed to sync commission projection onto service %s: %v", commission.ServiceID.Hex(), err)
	}
}
