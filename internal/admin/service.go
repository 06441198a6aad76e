// Package admin serves the operator API over the event bus: dead letters,
// event history, queue stats and replay.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	httperr "github.com/xkorin-lab/xkorin/internal/core/errors"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
	"github.com/xkorin-lab/xkorin/internal/deadletter"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
	"github.com/xkorin-lab/xkorin/internal/eventstore"
)

const (
	ActionRetry   = "retry"
	ActionResolve = "resolve"
	ActionCleanup = "cleanup"
)

// DeadLetterQueue is the operator surface of the dead letter service.
type DeadLetterQueue interface {
	GetUnresolved(ctx context.Context, eventType v1.EventType, limit int) ([]deadletter.Entry, error)
	GetStats(ctx context.Context) (deadletter.Stats, error)
	RetryFailed(ctx context.Context) (deadletter.RetryResult, error)
	Resolve(ctx context.Context, eventID string) error
	Cleanup(ctx context.Context, olderThanDays int) (deadletter.CleanupResult, error)
}

type HistoryReader interface {
	History(ctx context.Context, q storage.EventQuery) ([]*v1.Event, error)
	Chain(ctx context.Context, correlationID string) ([]*v1.Event, error)
}

type QueueInspector interface {
	Stats() eventbus.QueueStats
}

type Replayer interface {
	Replay(ctx context.Context, start, end time.Time, types []v1.EventType) (int, error)
}

// Settings is the feature-flag snapshot reported by the stats route.
type Settings struct {
	EventSourcing      bool
	DeadLetterQueue    bool
	PublishingMode     string
	VerboseLogging     bool
	DLQMaxRetries      int
	DLQRetryInterval   time.Duration
	ProcessingInterval time.Duration
	EventStoreTTLDays  int
}

type Service struct {
	dlq      DeadLetterQueue
	history  HistoryReader
	queues   QueueInspector
	replayer Replayer
	settings Settings
	nowFn    func() time.Time
}

func NewService(dlq DeadLetterQueue, history HistoryReader, queues QueueInspector, replayer Replayer, settings Settings) *Service {
	if dlq == nil || history == nil || queues == nil || replayer == nil {
		panic("admin: service requires dead letters, history, queues and a replayer")
	}
	return &Service{
		dlq:      dlq,
		history:  history,
		queues:   queues,
		replayer: replayer,
		settings: settings,
		nowFn:    time.Now,
	}
}

// RegisterRoutes registers the admin routes. Callers mount r behind the
// Authenticator middleware.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/admin/events/dlq", s.HandleListDeadLetters)
	r.POST("/admin/events/dlq", s.HandleDeadLetterAction)
	r.GET("/admin/events/history", s.HandleHistory)
	r.GET("/admin/events/chain/:correlationId", s.HandleChain)
	r.GET("/admin/events/stats", s.HandleStats)
	r.POST("/admin/events/replay", s.HandleReplay)
}

// HandleListDeadLetters handles GET /admin/events/dlq?eventType=&limit=
func (s *Service) HandleListDeadLetters(c *gin.Context) {
	eventType, ok := bindEventType(c, c.Query("eventType"))
	if !ok {
		return
	}
	limit, ok := bindLimit(c, deadletter.DefaultListLimit, deadletter.MaxListLimit)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	stats, err := s.dlq.GetStats(ctx)
	if err != nil {
		internalError(c, "Failed to read dead letter stats", err)
		return
	}
	unresolved, err := s.dlq.GetUnresolved(ctx, eventType, limit)
	if err != nil {
		internalError(c, "Failed to list dead letters", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"stats":      stats,
		"unresolved": unresolved,
	})
}

type dlqActionRequest struct {
	Action        string `json:"action"`
	EventID       string `json:"eventId"`
	OlderThanDays *int   `json:"olderThanDays"`
}

// HandleDeadLetterAction handles POST /admin/events/dlq {action, eventId?, olderThanDays?}
func (s *Service) HandleDeadLetterAction(c *gin.Context) {
	var req dlqActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err.Error())
		return
	}

	ctx := c.Request.Context()
	var result interface{}

	switch req.Action {
	case ActionRetry:
		res, err := s.dlq.RetryFailed(ctx)
		if err != nil {
			internalError(c, "Failed to retry dead letters", err)
			return
		}
		result = res

	case ActionResolve:
		if req.EventID == "" {
			badRequest(c, "eventId is required for resolve", nil)
			return
		}
		if err := s.dlq.Resolve(ctx, req.EventID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, httperr.ErrorResponse{
					ErrorType: httperr.HttpNotFoundError,
					Message:   "Dead letter not found",
					Details:   req.EventID,
				})
				return
			}
			internalError(c, "Failed to resolve dead letter", err)
			return
		}
		result = gin.H{"resolved": true, "eventId": req.EventID}

	case ActionCleanup:
		days := deadletter.DefaultCleanupDays
		if req.OlderThanDays != nil {
			days = *req.OlderThanDays
		}
		res, err := s.dlq.Cleanup(ctx, days)
		if err != nil {
			if errors.Is(err, deadletter.ErrInvalidRetention) {
				badRequest(c, "olderThanDays must be at least 1", days)
				return
			}
			internalError(c, "Failed to clean up dead letters", err)
			return
		}
		result = res

	default:
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnknownActionError,
			Message:   "Unknown action",
			Details:   gin.H{"action": req.Action, "allowed": []string{ActionRetry, ActionResolve, ActionCleanup}},
		})
		return
	}

	slog.Info("[Admin] Dead letter action",
		"action", req.Action,
		"subject", c.GetString(subjectKey),
		"event_id", req.EventID,
	)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"action":  req.Action,
		"result":  result,
	})
}

// HandleHistory handles GET /admin/events/history?type=&userId=&correlationId=&startDate=&endDate=&limit=
func (s *Service) HandleHistory(c *gin.Context) {
	eventType, ok := bindEventType(c, c.Query("type"))
	if !ok {
		return
	}
	limit, ok := bindLimit(c, storage.DefaultHistoryLimit, eventstore.MaxHistoryLimit)
	if !ok {
		return
	}
	start, ok := bindTime(c, "startDate")
	if !ok {
		return
	}
	end, ok := bindTime(c, "endDate")
	if !ok {
		return
	}

	q := storage.EventQuery{
		Type:          eventType,
		UserID:        c.Query("userId"),
		CorrelationID: c.Query("correlationId"),
		StartDate:     start,
		EndDate:       end,
		Limit:         limit,
	}
	events, err := s.history.History(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, eventstore.ErrInvalidQuery) {
			badRequest(c, "Invalid history query", err.Error())
			return
		}
		internalError(c, "Failed to query event history", err)
		return
	}

	filters := gin.H{"limit": limit}
	for _, key := range []string{"type", "userId", "correlationId", "startDate", "endDate"} {
		if v := c.Query(key); v != "" {
			filters[key] = v
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(events),
		"filters": filters,
		"events":  events,
	})
}

// HandleChain handles GET /admin/events/chain/:correlationId
func (s *Service) HandleChain(c *gin.Context) {
	correlationID := c.Param("correlationId")
	events, err := s.history.Chain(c.Request.Context(), correlationID)
	if err != nil {
		if errors.Is(err, eventstore.ErrInvalidQuery) {
			badRequest(c, "Invalid chain query", err.Error())
			return
		}
		internalError(c, "Failed to query event chain", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"correlationId": correlationID,
		"count":         len(events),
		"events":        events,
	})
}

// HandleStats handles GET /admin/events/stats
func (s *Service) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"timestamp": s.nowFn().UTC(),
		"system": gin.H{
			"eventSourcing":   s.settings.EventSourcing,
			"deadLetterQueue": s.settings.DeadLetterQueue,
			"publishingMode":  s.settings.PublishingMode,
			"verboseLogging":  s.settings.VerboseLogging,
		},
		"queues": s.queues.Stats(),
		"config": gin.H{
			"dlqMaxRetries":      s.settings.DLQMaxRetries,
			"dlqRetryInterval":   s.settings.DLQRetryInterval.Milliseconds(),
			"processingInterval": s.settings.ProcessingInterval.Milliseconds(),
			"eventStoreTTL":      s.settings.EventStoreTTLDays,
		},
	})
}

type replayRequest struct {
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
	Types     []string  `json:"types"`
}

// HandleReplay handles POST /admin/events/replay {startDate, endDate, types?}
func (s *Service) HandleReplay(c *gin.Context) {
	var req replayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err.Error())
		return
	}
	if req.EndDate.Before(req.StartDate) {
		badRequest(c, "endDate is before startDate", nil)
		return
	}

	types := make([]v1.EventType, 0, len(req.Types))
	for _, raw := range req.Types {
		t := v1.EventType(raw)
		if !t.Valid() {
			badRequest(c, "Unknown event type", raw)
			return
		}
		types = append(types, t)
	}

	replayed, err := s.replayer.Replay(c.Request.Context(), req.StartDate, req.EndDate, types)
	if err != nil {
		internalError(c, "Replay failed", err)
		return
	}

	slog.Info("[Admin] Replay requested",
		"subject", c.GetString(subjectKey),
		"start", req.StartDate,
		"end", req.EndDate,
		"replayed", replayed,
	)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"replayed": replayed,
	})
}

func bindEventType(c *gin.Context, raw string) (v1.EventType, bool) {
	if raw == "" {
		return "", true
	}
	t := v1.EventType(raw)
	if !t.Valid() {
		badRequest(c, "Unknown event type", raw)
		return "", false
	}
	return t, true
}

func bindLimit(c *gin.Context, def, maxLimit int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		badRequest(c, "limit must be a positive integer", raw)
		return 0, false
	}
	return min(limit, maxLimit), true
}

func bindTime(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		badRequest(c, key+" must be an RFC 3339 timestamp", raw)
		return time.Time{}, false
	}
	return t, true
}

func badRequest(c *gin.Context, message string, details interface{}) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpInvalidRequestError,
		Message:   message,
		Details:   details,
	})
}

func internalError(c *gin.Context, message string, err error) {
	slog.Error("[Admin] "+message, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   message,
	})
}
