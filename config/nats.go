package config

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectNATS connects to the broker finished games are published on.
// An empty URL means no broker.
func ConnectNATS(cfg NATSConfig) (*nats.Conn, error) {
	if cfg.URL == "" {
		log.Println("NATS_URL not set, finished games will not be published")
		return nil, nil
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("arena-game-server"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[NATS] Disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("[NATS] Reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	log.Printf("Connected to NATS at %s", nc.ConnectedUrl())
	return nc, nil
}
