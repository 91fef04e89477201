package store

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const changeSubject = "store.changed"

type changeEvent struct {
	Origin string `json:"origin"`
	Path   string `json:"path"`
}

// Relay broadcasts committed paths over NATS so every connected process
// re-delivers current truth to its own watchers. Delivery guarantees are the
// transport's own; a missed event is repaired by the next change or restart.
type Relay struct {
	conn *nats.Conn
	log  *logrus.Logger
}

func ConnectRelay(url string, log *logrus.Logger) (*Relay, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		log.WithError(err).Error("Failed to connect to NATS")
		return nil, err
	}
	log.Info("NATS connected successfully")
	return &Relay{conn: conn, log: log}, nil
}

func (r *Relay) publish(ev changeEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.conn.Publish(changeSubject, raw)
}

func (r *Relay) subscribe(handler func(changeEvent)) error {
	_, err := r.conn.Subscribe(changeSubject, func(msg *nats.Msg) {
		var ev changeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			r.log.WithError(err).Warn("Dropping malformed change event")
			return
		}
		handler(ev)
	})
	return err
}

func (r *Relay) Close() {
	r.conn.Drain()
}
