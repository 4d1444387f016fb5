package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"farmtrack/internal/amqp"
	"farmtrack/internal/core"
	"farmtrack/internal/store"

	"github.com/google/uuid"
)

// FarmService manages milestones and the singleton farm metadata document.
type FarmService struct {
	store      store.Store
	amqpClient *amqp.Client
}

func NewFarmService(st store.Store, amqpClient *amqp.Client) *FarmService {
	return &FarmService{
		store:      st,
		amqpClient: amqpClient,
	}
}

// ListMilestones returns the user's milestones in date order, most recent
// first. Unparseable dates sort last.
func (s *FarmService) ListMilestones(ctx context.Context, user string) ([]core.Milestone, error) {
	milestones, err := s.store.ListMilestones(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	sort.SliceStable(milestones, func(i, j int) bool {
		ti, oki := core.ParseDate(milestones[i].Date)
		tj, okj := core.ParseDate(milestones[j].Date)
		if oki != okj {
			return oki
		}
		return ti.After(tj)
	})
	return milestones, nil
}

func (s *FarmService) CreateMilestone(ctx context.Context, user string, m core.Milestone) (core.Milestone, error) {
	if err := m.Validate(); err != nil {
		return core.Milestone{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt == "" {
		m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := s.store.PutMilestone(ctx, user, m); err != nil {
		return core.Milestone{}, fmt.Errorf("save milestone: %w", err)
	}
	s.publishFarm(ctx, user, store.CollectionMilestones, m.ID, amqp.OpPut)
	return m, nil
}

func (s *FarmService) DeleteMilestone(ctx context.Context, user, id string) error {
	if err := s.store.DeleteMilestone(ctx, user, id); err != nil {
		return fmt.Errorf("delete milestone: %w", err)
	}
	s.publishFarm(ctx, user, store.CollectionMilestones, id, amqp.OpDelete)
	return nil
}

// GetFarmInfo returns the farm metadata, or an empty document if none has
// been written yet.
func (s *FarmService) GetFarmInfo(ctx context.Context, user string) (core.FarmInfo, error) {
	info, err := s.store.GetFarmInfo(ctx, user)
	if errors.Is(err, store.ErrNotFound) {
		return core.FarmInfo{}, nil
	}
	if err != nil {
		return core.FarmInfo{}, fmt.Errorf("load farm info: %w", err)
	}
	return info, nil
}

func (s *FarmService) PutFarmInfo(ctx context.Context, user string, info core.FarmInfo) (core.FarmInfo, error) {
	info.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.store.PutFarmInfo(ctx, user, info); err != nil {
		return core.FarmInfo{}, fmt.Errorf("save farm info: %w", err)
	}
	s.publishFarm(ctx, user, store.CollectionFarmData, store.FarmMetadataKey, amqp.OpPut)
	return info, nil
}

func (s *FarmService) publishFarm(ctx context.Context, user, collection, docID, op string) {
	publishSync(ctx, s.amqpClient, user, collection, docID, op)
}
