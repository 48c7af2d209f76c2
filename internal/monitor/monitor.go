package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"trading-core/internal/events"
)

// Monitor subscribes to the event bus's risk-alert topic until its context is
// cancelled and forwards every forced-flat alert to an AlertSink. It exists so a
// deployment observes drawdown breaches server-side (logged, paged,
// whatever the AlertSink does) independent of whether any WebSocket client
// is currently subscribed to topic=risk.
type Monitor struct {
	Bus  *events.Bus
	Sink AlertSink
}

// NewMonitor builds a Monitor watching bus for risk alerts and delivering
// them to sink.
func NewMonitor(bus *events.Bus, sink AlertSink) *Monitor {
	return &Monitor{Bus: bus, Sink: sink}
}

// Start subscribes and runs the forward loop in its own goroutine until ctx
// is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Sink == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}
	stream, unsub := m.Bus.Subscribe(events.EventRiskAlert, 50)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				if err := m.Sink.Send(formatAlert(msg)); err != nil {
					log.Printf("monitor: alert sink delivery failed: %v", err)
				}
			}
		}
	}()
}

func formatAlert(msg any) string {
	alert, ok := msg.(events.RiskAlert)
	if !ok {
		return fmt.Sprintf("[%s] unrecognized alert payload: %v", time.Now().Format(time.RFC3339), msg)
	}
	return fmt.Sprintf("[%s] bar ts=%d equity=%.2f: %s",
		time.Now().Format(time.RFC3339), alert.Timestamp, alert.Equity, alert.Reason)
}
