package notify

import "strconv"

// Message is the envelope pushed to WebSocket subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	MessageRoundStarted     = "round_started"
	MessageRoundEnded       = "round_ended"
	MessageRoundRestarted   = "round_restarted"
	MessageResultsPublished = "results_published"
	MessageAttemptSubmitted = "attempt_submitted"
	MessageDisqualified     = "participant_disqualified"
)

// Notifier fans a message out to everyone subscribed to topic.
type Notifier interface {
	Broadcast(topic string, msg Message)
}

func RoundTopic(roundID uint) string {
	return "round:" + strconv.FormatUint(uint64(roundID), 10)
}
