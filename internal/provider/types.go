package provider

import "encoding/json"

// Event is the provider's webhook/event envelope. Only the fields this system
// consumes are decoded; the verbatim payload is kept for the audit log.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Account string    `json:"account"`
	Created int64     `json:"created"`
	Data    EventData `json:"data"`

	raw json.RawMessage
}

type EventData struct {
	Object EventObject `json:"object"`
}

// EventObject is a typed view over the loosely structured object nested in the
// event. Optional fields are checked explicitly rather than defaulted.
type EventObject struct {
	ID                string            `json:"id"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// Raw returns the verbatim payload bytes the event was decoded from.
func (e *Event) Raw() json.RawMessage {
	return e.raw
}

// OrderID extracts the locally-known order identifier: the orderId metadata
// key when present, otherwise the client reference id. Empty when neither is
// set.
func (e *Event) OrderID() string {
	if e.Data.Object.Metadata != nil {
		if id, ok := e.Data.Object.Metadata["orderId"]; ok && id != "" {
			return id
		}
	}
	return e.Data.Object.ClientReferenceID
}

// RawStatus returns the status-like field of the nested object: checkout
// sessions carry payment_status, payment intents carry status.
func (o EventObject) RawStatus() string {
	if o.PaymentStatus != "" {
		return o.PaymentStatus
	}
	return o.Status
}

func decodeEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	ev.raw = append(json.RawMessage(nil), payload...)
	return &ev, nil
}
