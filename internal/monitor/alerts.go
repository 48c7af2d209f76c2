package monitor

import "log"

// AlertSink is a pluggable destination for formatted risk alerts. LogSink is
// the only implementation this repo ships; a deployment that wants alerts
// paged out (Slack, email, PagerDuty) implements this against its own
// transport instead of touching Monitor.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts through the standard logger, prefixed so they're
// greppable apart from the rest of the server's log lines.
type LogSink struct{}

func (LogSink) Send(message string) error {
	log.Println("risk alert:", message)
	return nil
}
