package config

import "time"

// EventsConfig wires the activity event pipeline: ledger, fraud and
// engagement components publish to RabbitMQ, and a consumer forwards each
// event to the Google Sheets webhook.
type EventsConfig struct {
	AMQPURL        string // empty delivers events in process without a broker
	Queue          string
	Buffer         int           // in-process buffer before events are dropped
	PublishTimeout time.Duration // bound on a single broker publish
	SheetURL       string        // Apps Script web app; empty disables forwarding
	SheetSecret    string
	SheetTimeout   time.Duration
}

func LoadEventsConfig() EventsConfig {
	return EventsConfig{
		AMQPURL:        envStr("RABBITMQ_URL", envStr("AMQP_URL", "")),
		Queue:          envStr("EVENTS_QUEUE", "portal.activity"),
		Buffer:         envInt("EVENTS_BUFFER", 256),
		PublishTimeout: envDur("EVENTS_PUBLISH_TIMEOUT", 3*time.Second),
		SheetURL:       envStr("SHEET_WEBHOOK_URL", ""),
		SheetSecret:    envStr("SHEET_SECRET", ""),
		SheetTimeout:   envDur("SHEET_TIMEOUT", 5*time.Second),
	}
}
