package handler

import (
	"encoding/json"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/iliyamo/cafe-pos/internal/notify"
	"github.com/iliyamo/cafe-pos/internal/service"
)

// LiveHandler upgrades authenticated clients to the live event feed.
type LiveHandler struct {
	hub *notify.Hub
	wf  *service.OrderWorkflow
	log *zap.Logger
}

func NewLiveHandler(hub *notify.Hub, wf *service.OrderWorkflow, log *zap.Logger) *LiveHandler {
	return &LiveHandler{hub: hub, wf: wf, log: log}
}

// Subscribe streams ?topics=order-updates,table-status-updates (both when
// omitted). The first frame is a pending-orders snapshot.
func (h *LiveHandler) Subscribe(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	topics, err := parseTopics(c.QueryParam("topics"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	// Subscribe before reading the snapshot so nothing committed in between
	// is missed.
	sub := h.hub.Subscribe(topics...)
	defer sub.Close()
	pending, err := h.wf.PendingOrders(c.Request().Context(), actor)
	if err != nil {
		return fail(c, h.log, err)
	}
	ev, err := notify.NewEvent(notify.TopicPendingOrders, actor, pending)
	if err != nil {
		return fail(c, h.log, err)
	}
	first, err := json.Marshal(ev)
	if err != nil {
		return fail(c, h.log, err)
	}

	h.log.Debug("live feed opened", zap.Uint64("actor_id", actor.UserID), zap.Int("subscribers", h.hub.Len()))
	// Serve runs inline; a failed handshake never reaches it.
	websocket.Handler(func(ws *websocket.Conn) {
		h.hub.Serve(ws, sub, first)
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}

type topicError string

func (e topicError) Error() string { return "unknown topic " + string(e) }

func parseTopics(raw string) ([]notify.Topic, error) {
	if strings.TrimSpace(raw) == "" {
		return []notify.Topic{notify.TopicOrders, notify.TopicTables}, nil
	}
	var out []notify.Topic
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		t, ok := notify.ParseTopic(s)
		if !ok {
			return nil, topicError(s)
		}
		out = append(out, t)
	}
	return out, nil
}
