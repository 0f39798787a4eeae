package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/orchestrator"
	"github.com/maastricht-university/datecoach-analytics/report"
)

// streamMsg is one feed event on the WebSocket; Type selects which fields apply.
type streamMsg struct {
	Type          string               `json:"type"` // facial | vocal | transcript | tick | end
	ParticipantID string               `json:"participantId,omitempty"`
	Emotions      emotion.Distribution `json:"emotions,omitempty"`
	Speaker       string               `json:"speaker,omitempty"`
	Text          string               `json:"text,omitempty"`
}

type streamAck struct {
	OK     bool                      `json:"ok"`
	Error  string                    `json:"error,omitempty"`
	Report *report.PerformanceReport `json:"report,omitempty"`
}

// streamHandler acknowledges every message in order. The connection closes after "end".
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.WithFields(logrus.Fields{"session_id": sess.ID(), "remote": r.RemoteAddr})
	log.Info("stream connected")

	for {
		var msg streamMsg
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("stream read failed")
			}
			return
		}

		ack := s.applyStream(sess, msg)
		if !ack.OK {
			log.WithField("type", msg.Type).Warn("stream event rejected: " + ack.Error)
		}
		if err := conn.WriteJSON(ack); err != nil {
			log.WithError(err).Warn("stream write failed")
			return
		}
		if msg.Type == "end" && ack.OK {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
			return
		}
	}
}

func (s *Server) applyStream(sess *orchestrator.Session, msg streamMsg) streamAck {
	var err error
	switch msg.Type {
	case "facial":
		err = sess.PushFacial(msg.ParticipantID, msg.Emotions)
	case "vocal":
		err = sess.PushVocal(msg.ParticipantID, msg.Emotions)
	case "transcript":
		err = sess.PushTranscript(msg.Speaker, msg.Text)
	case "tick":
		err = sess.Tick()
	case "end":
		rep, endErr := sess.End(s.registry.clock())
		if endErr != nil {
			return streamAck{Error: endErr.Error()}
		}
		return streamAck{OK: true, Report: &rep}
	default:
		err = fmt.Errorf("unknown event type %q", msg.Type)
	}
	if err != nil {
		return streamAck{Error: err.Error()}
	}
	return streamAck{OK: true}
}
