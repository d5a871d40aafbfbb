package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"prova_backend/internal/model"
	"prova_backend/pkg/logger"
	"prova_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	proctorTTL     = 2 * time.Minute // proctor presence key expiry
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ClientRole string

const (
	RoleProctor ClientRole = "proctor"
	RoleStudent ClientRole = "student"
)

// WSMessage is the inbound client frame. Students only carry two narrow
// actions: a progress ping and a violation report.
type WSMessage struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

type MonitorClient struct {
	Hub           *MonitorHub
	Conn          *websocket.Conn
	Send          chan []byte
	Role          ClientRole
	ApplicationID uint
	SubmissionID  string
	StudentName   string
	Limiter       *rate.Limiter
}

func (c *MonitorClient) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err),
					zap.Uint("applicationId", c.ApplicationID))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			continue
		}

		monitoring.MonitorEventCounter.WithLabelValues(wsMsg.Type, "in").Inc()

		if c.Role == RoleStudent {
			c.Hub.handleStudentMessage(c, wsMsg)
		}
	}
}

// handleStudentMessage dispatches the two student write actions. Anything
// else inbound is dropped; proctor actions travel over REST so they commit
// before anything is broadcast.
func (h *MonitorHub) handleStudentMessage(c *MonitorClient, msg WSMessage) {
	switch msg.Type {
	case "PROGRESSO":
		progress, ok := msg.Data["progresso"].(float64)
		if !ok {
			return
		}
		sub, err := h.SubmissionSvc.Get(c.SubmissionID)
		if err != nil {
			return
		}
		h.SubmissionSvc.RecordProgress(sub, int(progress))

	case "INFRACAO":
		infractionType, ok := msg.Data["tipoInfracao"].(string)
		if !ok || infractionType == "" {
			return
		}
		if _, err := h.ViolationSvc.Record(c.SubmissionID, infractionType); err != nil {
			logger.Log.Error("Violation report failed", zap.Error(err),
				zap.String("submissionId", c.SubmissionID))
		}
	}
}

func (c *MonitorClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// room is one application's channel: one primary proctor, many students.
type room struct {
	proctor  *MonitorClient
	students map[string]*MonitorClient // keyed by submission id
}

// MonitorHub is the per-process end of the realtime synchronization
// channel. Fan-out goes through Redis pub/sub so every instance delivers to
// its local rooms; delivery is at-least-once with no ordering guarantee, so
// reconnecting clients resynchronize with a snapshot fetch instead of
// replay.
type MonitorHub struct {
	mu            sync.RWMutex
	rooms         map[uint]*room
	register      chan *MonitorClient
	unregister    chan *MonitorClient
	Redis         *redis.Client
	SubmissionSvc *SubmissionService
	ViolationSvc  *ViolationService
	ctx           context.Context
}

func NewMonitorHub(rdb *redis.Client, submissionSvc *SubmissionService, violationSvc *ViolationService) *MonitorHub {
	return &MonitorHub{
		rooms:         make(map[uint]*room),
		register:      make(chan *MonitorClient),
		unregister:    make(chan *MonitorClient),
		Redis:         rdb,
		SubmissionSvc: submissionSvc,
		ViolationSvc:  violationSvc,
		ctx:           context.Background(),
	}
}

func (h *MonitorHub) getOrCreateRoom(applicationID uint) *room {
	if r, ok := h.rooms[applicationID]; ok {
		return r
	}
	r := &room{students: make(map[string]*MonitorClient)}
	h.rooms[applicationID] = r
	return r
}

// pubSubEnvelope targets one application's room across instances.
type pubSubEnvelope struct {
	ApplicationID uint            `json:"applicationId"`
	Payload       json.RawMessage `json:"payload"`
}

func (h *MonitorHub) Run() {
	pubsub := h.Redis.Subscribe(h.ctx, "monitor_channel")
	go func() {
		ch := pubsub.Channel()
		for msg := range ch {
			var env pubSubEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.pushToLocalRoom(env.ApplicationID, env.Payload)
		}
	}()

	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer heartbeatTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.joinRoom(client)

			if client.Role == RoleProctor {
				h.Redis.Set(h.ctx, proctorKey(client.ApplicationID), "true", proctorTTL)
			}

		case client := <-h.unregister:
			if h.leaveRoom(client) {
				if client.Role == RoleProctor {
					h.Redis.Del(h.ctx, proctorKey(client.ApplicationID))
				} else {
					h.BroadcastToApplication(client.ApplicationID, Event{
						Type:          EventStudentLeft,
						AplicacaoID:   client.ApplicationID,
						SubmissaoID:   client.SubmissionID,
						EstudanteNome: client.StudentName,
					})
				}
			}

		case <-heartbeatTicker.C:
			h.refreshProctorPresence()
		}
	}
}

// joinRoom seats the client in its application's room. A reconnect with the
// same role and identity displaces the old connection: it is closed and
// counted out here, so its eventual unregister finds it already replaced and
// does nothing.
func (h *MonitorHub) joinRoom(client *MonitorClient) {
	h.mu.Lock()
	r := h.getOrCreateRoom(client.ApplicationID)
	var displaced *MonitorClient
	if client.Role == RoleProctor {
		displaced = r.proctor
		r.proctor = client
	} else {
		displaced = r.students[client.SubmissionID]
		r.students[client.SubmissionID] = client
	}
	h.mu.Unlock()

	if displaced != nil {
		close(displaced.Send)
		monitoring.MonitorClients.Dec()
	}
	monitoring.MonitorClients.Inc()
}

// leaveRoom removes the client if it is still the room's current connection
// for its seat. Returns false for a client that was already displaced by a
// reconnect, whose seat now belongs to someone else.
func (h *MonitorHub) leaveRoom(client *MonitorClient) bool {
	removed := false
	h.mu.Lock()
	if r, ok := h.rooms[client.ApplicationID]; ok {
		if client.Role == RoleProctor && r.proctor == client {
			r.proctor = nil
			removed = true
		} else if client.Role == RoleStudent {
			if current, ok := r.students[client.SubmissionID]; ok && current == client {
				delete(r.students, client.SubmissionID)
				removed = true
			}
		}
		if r.proctor == nil && len(r.students) == 0 {
			delete(h.rooms, client.ApplicationID)
		}
	}
	h.mu.Unlock()

	if removed {
		close(client.Send)
		monitoring.MonitorClients.Dec()
	}
	return removed
}

func proctorKey(applicationID uint) string {
	return fmt.Sprintf("app:proctor:%d", applicationID)
}

// refreshProctorPresence renews the presence keys of locally connected
// proctors.
func (h *MonitorHub) refreshProctorPresence() {
	pipe := h.Redis.Pipeline()
	count := 0
	h.mu.RLock()
	for appID, r := range h.rooms {
		if r.proctor != nil {
			pipe.Expire(h.ctx, proctorKey(appID), proctorTTL)
			count++
		}
	}
	h.mu.RUnlock()
	if count > 0 {
		pipe.Exec(h.ctx)
		logger.Log.Debug("Refreshed proctor presence", zap.Int("count", count))
	}
}

// BroadcastToApplication publishes a committed fact to every client of the
// application's channel, across all instances. Fire-and-forget; a slow
// client drops the frame and resynchronizes later.
func (h *MonitorHub) BroadcastToApplication(applicationID uint, event Event) {
	payload, _ := json.Marshal(event)
	envelope, _ := json.Marshal(pubSubEnvelope{
		ApplicationID: applicationID,
		Payload:       payload,
	})
	h.Redis.Publish(h.ctx, "monitor_channel", envelope)
	monitoring.MonitorEventCounter.WithLabelValues(event.Type, "out").Inc()
}

func (h *MonitorHub) pushToLocalRoom(applicationID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[applicationID]
	if !ok {
		return
	}
	if r.proctor != nil {
		select {
		case r.proctor.Send <- payload:
		default:
		}
	}
	for _, client := range r.students {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// IsProctorOnline checks the local room first, then Redis for other
// instances.
func (h *MonitorHub) IsProctorOnline(applicationID uint) bool {
	h.mu.RLock()
	r, ok := h.rooms[applicationID]
	online := ok && r.proctor != nil
	h.mu.RUnlock()
	if online {
		return true
	}

	val, err := h.Redis.Get(h.ctx, proctorKey(applicationID)).Result()
	return err == nil && val == "true"
}

// Stop closes every connection and clears presence state on shutdown.
func (h *MonitorHub) Stop() {
	logger.Log.Info("MonitorHub stopping: clearing presence and closing connections...")

	var proctorApps []uint
	closed := 0
	h.mu.Lock()
	for appID, r := range h.rooms {
		if r.proctor != nil {
			close(r.proctor.Send)
			proctorApps = append(proctorApps, appID)
			closed++
		}
		for _, client := range r.students {
			close(client.Send)
			closed++
		}
		delete(h.rooms, appID)
	}
	h.mu.Unlock()

	if len(proctorApps) > 0 {
		pipe := h.Redis.Pipeline()
		for _, appID := range proctorApps {
			pipe.Del(h.ctx, proctorKey(appID))
		}
		pipe.Exec(h.ctx)
	}

	monitoring.MonitorClients.Set(0)
	logger.Log.Info("MonitorHub stopped", zap.Int("closedConnections", closed))
}

// ServeMonitorWS upgrades a request into a channel client. Students present
// their resume hash; the submission identifies them in the room.
func ServeMonitorWS(hub *MonitorHub, w http.ResponseWriter, r *http.Request, role ClientRole, applicationID uint, sub *model.Submission) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err),
			zap.Uint("applicationId", applicationID))
		return
	}
	client := &MonitorClient{
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		Role:          role,
		ApplicationID: applicationID,
		Limiter:       rate.NewLimiter(rate.Limit(10), 20),
	}
	if sub != nil {
		client.SubmissionID = sub.ID
		client.StudentName = sub.StudentName
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
