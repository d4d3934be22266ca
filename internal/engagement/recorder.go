// Package engagement records point-valued interaction events.
package engagement

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/metrics"
	"github.com/aura-webinar/engagement/internal/models"
	"github.com/aura-webinar/engagement/internal/scoring"
)

// TenantLookup maps a webinar to its owning tenant. Unknown webinars are apperr.ErrNotFound;
// a webinar without a tenant returns uuid.Nil.
type TenantLookup interface {
	GetTenantID(ctx context.Context, webinarID uuid.UUID) (uuid.UUID, error)
}

// PointResolver returns the effective point table for a tenant.
type PointResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID) (scoring.PointTable, error)
}

// Store appends engagement events.
type Store interface {
	Insert(ctx context.Context, e *models.EngagementEvent) error
}

// Recorder prices and persists engagement events. It never triggers score recalculation itself.
type Recorder struct {
	tenants  TenantLookup
	resolver PointResolver
	store    Store
	logger   *zap.Logger
}

// NewRecorder creates an engagement event recorder.
func NewRecorder(tenants TenantLookup, resolver PointResolver, store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{tenants: tenants, resolver: resolver, store: store, logger: logger}
}

// Record prices the event with the tenant's current point table and appends it.
func (r *Recorder) Record(ctx context.Context, webinarID, registrationID uuid.UUID, eventType models.EventType, data map[string]any) (*models.EngagementEvent, error) {
	if !eventType.Valid() {
		return nil, apperr.Invalid("unknown event type %q", eventType)
	}
	table, err := r.pointTable(ctx, webinarID)
	if err != nil {
		return nil, err
	}

	points, err := price(table, eventType, data)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	ev := &models.EngagementEvent{
		WebinarID:      webinarID,
		RegistrationID: registrationID,
		EventType:      eventType,
		EventData:      data,
		PointsEarned:   points,
	}
	if err := r.store.Insert(ctx, ev); err != nil {
		return nil, apperr.Unavailable("insert engagement event", err)
	}
	r.Recorded(ev)
	return ev, nil
}

// MilestoneEvents prices one watch_milestone event per milestone without storing them.
// The watch tracker inserts them in the same transaction as the session update that reached them.
func (r *Recorder) MilestoneEvents(ctx context.Context, webinarID, registrationID uuid.UUID, milestones []int) ([]*models.EngagementEvent, error) {
	if len(milestones) == 0 {
		return nil, nil
	}
	table, err := r.pointTable(ctx, webinarID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.EngagementEvent, 0, len(milestones))
	for _, m := range milestones {
		out = append(out, &models.EngagementEvent{
			WebinarID:      webinarID,
			RegistrationID: registrationID,
			EventType:      models.EventWatchMilestone,
			EventData:      map[string]any{models.EventDataMilestone: m},
			PointsEarned:   table.MilestonePoints(m),
		})
	}
	return out, nil
}

// Recorded counts and logs events once they are durably stored.
func (r *Recorder) Recorded(events ...*models.EngagementEvent) {
	for _, ev := range events {
		metrics.EngagementEventsRecorded.WithLabelValues(string(ev.EventType)).Inc()
		metrics.EngagementPointsAwarded.WithLabelValues(string(ev.EventType)).Add(float64(ev.PointsEarned))
		r.logger.Debug("engagement event recorded",
			zap.String("event_id", ev.ID.String()),
			zap.String("registration_id", ev.RegistrationID.String()),
			zap.String("event_type", string(ev.EventType)),
			zap.Int("points", ev.PointsEarned),
		)
	}
}

func (r *Recorder) pointTable(ctx context.Context, webinarID uuid.UUID) (scoring.PointTable, error) {
	tenantID, err := r.tenants.GetTenantID(ctx, webinarID)
	if err != nil {
		return scoring.PointTable{}, apperr.Unavailable("resolve tenant", err)
	}
	return r.resolver.Resolve(ctx, tenantID)
}

func price(table scoring.PointTable, eventType models.EventType, data map[string]any) (int, error) {
	if eventType != models.EventWatchMilestone {
		return table.EventPoints(eventType), nil
	}
	m, ok := milestoneValue(data)
	if !ok {
		return 0, apperr.Invalid("watch_milestone requires an integer %q in event_data", models.EventDataMilestone)
	}
	// Non-canonical milestones are stored with zero points.
	return table.MilestonePoints(m), nil
}

func milestoneValue(data map[string]any) (int, bool) {
	raw, ok := data[models.EventDataMilestone]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
