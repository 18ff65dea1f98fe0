/*
Package notify
File: notify.go
Description:
    Fire-and-forget display hints emitted by the engine for every accepted or
    rejected action. Sinks must not block the caller for long and must never
    report failure back into the simulation.
*/

package notify

import (
	"time"

	"github.com/everforgeworks/ecosnap-engine/internal/logger"
)

type Type string

const (
	TypeError   Type = "error"
	TypeSuccess Type = "success"
	TypeInfo    Type = "info"
)

// Message is the payload shown to the player as a toast.
type Message struct {
	Type Type      `json:"type"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Sink receives messages.
type Sink interface {
	Notify(msg Message)
}

// Func adapts a plain function to Sink.
type Func func(msg Message)

func (f Func) Notify(msg Message) { f(msg) }

// Multi fans a message out to every non-nil sink in order.
type Multi []Sink

func (m Multi) Notify(msg Message) {
	for _, s := range m {
		if s != nil {
			s.Notify(msg)
		}
	}
}

// Discard drops everything.
var Discard Sink = Func(func(Message) {})

// Log writes each message to the structured logger.
type Log struct {
	Logger *logger.Logger
}

func (l Log) Notify(msg Message) {
	if l.Logger == nil {
		return
	}
	if msg.Type == TypeError {
		l.Logger.Warn("notification", "type", string(msg.Type), "text", msg.Text)
		return
	}
	l.Logger.Info("notification", "type", string(msg.Type), "text", msg.Text)
}

// Recorder keeps every message it sees. Handy in tests and for "last toast"
// queries.
type Recorder struct {
	Messages []Message
}

func (r *Recorder) Notify(msg Message) { r.Messages = append(r.Messages, msg) }

// Last returns the most recent message and whether there was one.
func (r *Recorder) Last() (Message, bool) {
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}
