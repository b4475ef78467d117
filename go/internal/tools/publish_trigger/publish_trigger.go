package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mcdev12/courtline/go/internal/config"
	"github.com/mcdev12/courtline/go/internal/notifications/bus"
	"github.com/mcdev12/courtline/go/internal/notifications/events"
)

// Publishes one notification trigger, e.g. to replay an event by hand:
//
//	publish_trigger schedule_confirmed context.json
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: publish_trigger <event_type> <context.json>")
		os.Exit(2)
	}
	eventType := events.Type(os.Args[1])

	data, err := os.ReadFile(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read context: %v\n", err)
		os.Exit(1)
	}
	var c events.Context
	if err := json.Unmarshal(data, &c); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal context: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	nc, js, err := bus.Connect(ctx, cfg.NATS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	if err := bus.NewPublisher(js, cfg.NATS).Publish(ctx, eventType, c); err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
		os.Exit(1)
	}
}
