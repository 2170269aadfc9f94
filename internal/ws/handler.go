package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"community_energy/internal/model"
	"community_energy/internal/simulator"
	"community_energy/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// openEnd stands in for a missing history:query end bound.
var openEnd = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

const historyTimeout = 5 * time.Second

// Handler manages WebSocket connections and routes messages to the engine.
type Handler struct {
	hub     *Hub
	engine  *simulator.Engine
	history store.Reader
}

// NewHandler routes commands to engine and answers history:query from
// history.
func NewHandler(hub *Hub, engine *simulator.Engine, history store.Reader) *Handler {
	return &Handler{hub: hub, engine: engine, history: history}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	// Initial community and scheduler state
	h.sendSnapshot(client)
	h.sendSimState(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		h.replyError(c, "", fmt.Errorf("invalid message: %w", err))
		return
	}

	switch env.Type {
	case TypeSimStart:
		h.engine.Start()

	case TypeSimPause:
		h.engine.Pause()

	case TypeSimStep:
		if h.engine.State().Running {
			h.replyError(c, env.Type, errors.New("simulation is running; pause before stepping"))
			return
		}
		h.engine.Step()

	case TypeSimSetInterval:
		var p SetIntervalPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.engine.SetInterval(time.Duration(p.IntervalMS) * time.Millisecond)

	case TypeHouseholdAdd:
		var p HouseholdAddPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.submit(c, env.Type, simulator.AddHousehold(model.Household{
			Name:            p.Name,
			SolarCapacity:   p.SolarCapacityKW,
			BatteryCapacity: p.BatteryCapacityKWh,
			BatterySOC:      p.BatterySOCKWh,
			BaseConsumption: p.BaseConsumptionKW,
			SellPriceMin:    p.SellPriceMin,
			BuyPriceMax:     p.BuyPriceMax,
		}))

	case TypeHouseholdPrices:
		var p HouseholdPricesPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.submit(c, env.Type, simulator.UpdatePrices(p.ID, p.SellPriceMin, p.BuyPriceMax))

	case TypeHouseholdRemove:
		var p HouseholdRemovePayload
		if !h.decode(c, env, &p) {
			return
		}
		h.submit(c, env.Type, simulator.RemoveHousehold(p.ID))

	case TypeHistoryQuery:
		var p HistoryQueryPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.queryHistory(c, p)

	default:
		log.Printf("Unknown message type: %s", env.Type)
		h.replyError(c, env.Type, fmt.Errorf("unknown message type %q", env.Type))
	}
}

func (h *Handler) decode(c *Client, env Envelope, v any) bool {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		log.Printf("Invalid %s payload: %v", env.Type, err)
		h.replyError(c, env.Type, fmt.Errorf("invalid payload: %w", err))
		return false
	}
	return true
}

// submit queues a mutation without blocking the read loop. On success every
// client gets the new community snapshot; on failure only the requester
// gets an error.
func (h *Handler) submit(c *Client, request string, m simulator.Mutation) {
	result := h.engine.Submit(request, m)
	go func() {
		if err := <-result; err != nil {
			h.replyError(c, request, err)
			return
		}
		h.broadcastSnapshot()
	}()
}

func (h *Handler) queryHistory(c *Client, p HistoryQueryPayload) {
	start, end := time.Time{}, openEnd
	var err error
	if p.Start != "" {
		if start, err = time.Parse(time.RFC3339, p.Start); err != nil {
			h.replyError(c, TypeHistoryQuery, &model.ValidationError{Field: "start", Reason: "must be RFC 3339"})
			return
		}
	}
	if p.End != "" {
		if end, err = time.Parse(time.RFC3339, p.End); err != nil {
			h.replyError(c, TypeHistoryQuery, &model.ValidationError{Field: "end", Reason: "must be RFC 3339"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	records, err := h.history.RecordsInRange(ctx, p.HouseholdID, start, end)
	if err != nil {
		log.Printf("History query failed: %v", err)
		h.replyError(c, TypeHistoryQuery, err)
		return
	}
	txs, err := h.history.TransactionsInRange(ctx, p.HouseholdID, start, end)
	if err != nil {
		log.Printf("History query failed: %v", err)
		h.replyError(c, TypeHistoryQuery, err)
		return
	}
	if records == nil {
		records = []model.EnergyRecord{}
	}
	msg, err := NewEnvelope(TypeHistoryResult, HistoryResultPayload{
		HouseholdID:  p.HouseholdID,
		Records:      records,
		Transactions: TransactionsFromModel(txs),
	})
	if err != nil {
		log.Printf("Error creating history:result message: %v", err)
		return
	}
	h.hub.Send(c, msg)
}

func (h *Handler) replyError(c *Client, request string, err error) {
	p := ErrorPayload{Request: request, Message: err.Error()}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		p.Field = ve.Field
	}
	msg, mErr := NewEnvelope(TypeError, p)
	if mErr != nil {
		log.Printf("Error creating error message: %v", mErr)
		return
	}
	h.hub.Send(c, msg)
}

func (h *Handler) snapshotMessage() ([]byte, error) {
	return NewEnvelope(TypeCommunitySnapshot, SnapshotFromCommunity(h.engine.Snapshot()))
}

func (h *Handler) broadcastSnapshot() {
	msg, err := h.snapshotMessage()
	if err != nil {
		log.Printf("Error creating community:snapshot message: %v", err)
		return
	}
	h.hub.Broadcast(msg)
}

func (h *Handler) sendSnapshot(c *Client) {
	msg, err := h.snapshotMessage()
	if err != nil {
		log.Printf("Error creating community:snapshot message: %v", err)
		return
	}
	h.hub.Send(c, msg)
}

func (h *Handler) sendSimState(c *Client) {
	msg, err := NewEnvelope(TypeSimState, SimStateFromEngine(h.engine.State()))
	if err != nil {
		return
	}
	h.hub.Send(c, msg)
}
