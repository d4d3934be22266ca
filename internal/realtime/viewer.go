package realtime

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
	"github.com/aura-webinar/engagement/internal/watch"
)

// Inbound frame events.
const (
	EventWatchProgress = "watch_progress"
	EventWatchLeave    = "watch_leave"
	EventReaction      = "reaction"
	EventCTAClick      = "cta_click"
)

// Outbound ack events.
const (
	AckWatchSession      = "watch_session"
	AckMilestonesReached = "milestones_reached"
	AckSessionEnded      = "watch_session_ended"
	AckEngagement        = "engagement_recorded"
	AckError             = "error"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WatchTracker is the watch session lifecycle the socket drives.
type WatchTracker interface {
	Start(ctx context.Context, webinarID, registrationID uuid.UUID) (*models.WatchSession, error)
	Progress(ctx context.Context, sessionID uuid.UUID, currentSeconds, totalDurationSeconds float64) (*watch.ProgressResult, error)
	End(ctx context.Context, sessionID uuid.UUID) (*models.WatchSession, error)
}

// EventRecorder records discrete engagement events.
type EventRecorder interface {
	Record(ctx context.Context, webinarID, registrationID uuid.UUID, eventType models.EventType, data map[string]any) (*models.EngagementEvent, error)
}

// AttendanceMarker records live or replay attendance.
type AttendanceMarker interface {
	MarkAttended(ctx context.Context, registrationID uuid.UUID) error
	MarkWatchedReplay(ctx context.Context, registrationID uuid.UUID) error
}

// RecalcTrigger schedules a best-effort lead score recalculation.
type RecalcTrigger interface {
	Trigger(ctx context.Context, webinarID, registrationID uuid.UUID)
}

// Deps are the engine components a viewer socket talks to.
type Deps struct {
	Tracker    WatchTracker
	Recorder   EventRecorder
	Attendance AttendanceMarker
	Trigger    RecalcTrigger
}

type progressFrame struct {
	CurrentSeconds       *float64 `json:"current_seconds"`
	TotalDurationSeconds float64  `json:"total_duration_seconds"`
}

type errorAck struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// Viewer is the per-connection state of one registrant watching one webinar.
type Viewer struct {
	deps           Deps
	webinarID      uuid.UUID
	registrationID uuid.UUID
	replay         bool
	session        *models.WatchSession
	logger         *zap.Logger
}

// NewViewer creates viewer state; call Join before Handle.
func NewViewer(deps Deps, webinarID, registrationID uuid.UUID, replay bool, logger *zap.Logger) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Viewer{deps: deps, webinarID: webinarID, registrationID: registrationID, replay: replay, logger: logger}
}

// Join opens (or resumes) the watch session and marks attendance.
func (v *Viewer) Join(ctx context.Context) (WSMessage, error) {
	s, err := v.deps.Tracker.Start(ctx, v.webinarID, v.registrationID)
	if err != nil {
		return WSMessage{}, err
	}
	v.session = s
	if v.deps.Attendance != nil {
		mark := v.deps.Attendance.MarkAttended
		if v.replay {
			mark = v.deps.Attendance.MarkWatchedReplay
		}
		if err := mark(ctx, v.registrationID); err != nil {
			v.logger.Warn("mark attendance failed", zap.Error(err), zap.String("registration_id", v.registrationID.String()))
		}
	}
	v.trigger(ctx)
	return ack(AckWatchSession, s), nil
}

// Handle applies one inbound frame and returns the ack for the sender. done is true after
// the viewer left.
func (v *Viewer) Handle(ctx context.Context, msg WSMessage) (reply WSMessage, done bool) {
	switch msg.Event {
	case EventWatchProgress:
		var f progressFrame
		if err := json.Unmarshal(msg.Data, &f); err != nil || f.CurrentSeconds == nil {
			return errorReply(msg.Event, "current_seconds required"), false
		}
		res, err := v.deps.Tracker.Progress(ctx, v.session.ID, *f.CurrentSeconds, f.TotalDurationSeconds)
		if err != nil {
			return v.fail(msg.Event, err), false
		}
		v.session = res.Session
		if len(res.NewMilestones) > 0 {
			v.trigger(ctx)
		}
		return ack(AckMilestonesReached, res), false

	case EventWatchLeave:
		s, err := v.deps.Tracker.End(ctx, v.session.ID)
		if err != nil {
			return v.fail(msg.Event, err), false
		}
		v.session = s
		v.trigger(ctx)
		return ack(AckSessionEnded, s), true

	case EventReaction, EventCTAClick:
		var data map[string]any
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return errorReply(msg.Event, "data must be an object"), false
			}
		}
		ev, err := v.deps.Recorder.Record(ctx, v.webinarID, v.registrationID, models.EventType(msg.Event), data)
		if err != nil {
			return v.fail(msg.Event, err), false
		}
		v.trigger(ctx)
		return ack(AckEngagement, ev), false

	default:
		return errorReply(msg.Event, "unsupported event"), false
	}
}

func (v *Viewer) fail(event string, err error) WSMessage {
	v.logger.Warn("viewer frame failed", zap.Error(err),
		zap.String("event", event),
		zap.String("registration_id", v.registrationID.String()),
	)
	if apperr.IsUnavailable(err) {
		return errorReply(event, "temporarily unavailable")
	}
	return errorReply(event, err.Error())
}

func (v *Viewer) trigger(ctx context.Context) {
	if v.deps.Trigger != nil {
		v.deps.Trigger.Trigger(ctx, v.webinarID, v.registrationID)
	}
}

func ack(event string, payload any) WSMessage {
	data, _ := json.Marshal(payload)
	return WSMessage{Event: event, Data: data}
}

func errorReply(event, message string) WSMessage {
	return ack(AckError, errorAck{Event: event, Message: message})
}
