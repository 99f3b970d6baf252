package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dloopdao/governd/internal/domain"
)

// Delegator submits delegation transactions with the operator key.
type Delegator interface {
	From() string
	Delegate(ctx context.Context, delegatee string) (string, error)
}

// DelegationService tracks who has delegated voting power to whom and keeps
// the AI-node registry's delegated-power totals in sync.
type DelegationService struct {
	delegations domain.DelegationStore
	nodes       domain.AINodeStore
	submitter   Delegator
	bus         domain.SignalBus
	logger      *slog.Logger
	now         func() time.Time
}

// NewDelegationService creates a DelegationService with all required
// dependencies.
func NewDelegationService(
	delegations domain.DelegationStore,
	nodes domain.AINodeStore,
	submitter Delegator,
	bus domain.SignalBus,
	logger *slog.Logger,
) *DelegationService {
	return &DelegationService{
		delegations: delegations,
		nodes:       nodes,
		submitter:   submitter,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
	}
}

// Delegate submits an on-chain delegation for the operator address and
// records it locally. Token delegation is all-or-nothing at the contract
// level; amount is the caller's current voting weight for display.
func (s *DelegationService) Delegate(ctx context.Context, delegatee string, amount float64) (string, error) {
	txHash, err := s.submitter.Delegate(ctx, delegatee)
	if err != nil {
		return "", fmt.Errorf("delegation_service: delegate to %s: %w", delegatee, err)
	}

	toNode := false
	if _, err := s.nodes.GetByAddress(ctx, delegatee); err == nil {
		toNode = true
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "delegation_service: ai node lookup failed",
			slog.String("delegatee", delegatee),
			slog.String("error", err.Error()),
		)
	}

	d := domain.Delegation{
		Delegator: s.submitter.From(),
		Delegatee: delegatee,
		Amount:    amount,
		ToAINode:  toNode,
		TxHash:    txHash,
	}
	if err := s.delegations.Upsert(ctx, d); err != nil {
		s.logger.WarnContext(ctx, "delegation_service: record delegation failed",
			slog.String("delegatee", delegatee),
			slog.String("error", err.Error()),
		)
	}

	s.publish(ctx, "delegation_created", d)
	return txHash, nil
}

// GetByDelegator returns the current delegation for an address.
func (s *DelegationService) GetByDelegator(ctx context.Context, delegator string) (domain.Delegation, error) {
	d, err := s.delegations.GetByDelegator(ctx, delegator)
	if err != nil {
		return domain.Delegation{}, fmt.Errorf("delegation_service: get %s: %w", delegator, err)
	}
	return d, nil
}

// ListByDelegatee returns all delegations pointing at an address.
func (s *DelegationService) ListByDelegatee(ctx context.Context, delegatee string, opts domain.ListOpts) ([]domain.Delegation, error) {
	ds, err := s.delegations.ListByDelegatee(ctx, delegatee, opts)
	if err != nil {
		return nil, fmt.Errorf("delegation_service: list to %s: %w", delegatee, err)
	}
	return ds, nil
}

func (s *DelegationService) publish(ctx context.Context, event string, d domain.Delegation) {
	detail, err := json.Marshal(d)
	if err != nil {
		return
	}
	payload, err := json.Marshal(domain.GovernanceEvent{
		Type:    event,
		Address: d.Delegator,
		Payload: detail,
		At:      s.now(),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelDelegations, payload); err != nil {
		s.logger.WarnContext(ctx, "delegation_service: publish failed",
			slog.String("error", err.Error()),
		)
	}
}
