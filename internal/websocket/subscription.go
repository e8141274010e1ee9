package websocket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Subscription narrows the workspace events a client receives. The zero
// value receives every event of the workspace.
type Subscription struct {
	Entities map[EntityType]bool
	// LoanID limits loan and installment events to one loan when non-zero
	LoanID int32
}

// ParseSubscription builds a subscription from the ?entities=loan,summary
// and ?loan_id= query parameters of the upgrade request
func ParseSubscription(entities, loanID string) (Subscription, error) {
	var names []string
	for _, name := range strings.Split(entities, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	var id int32
	if loanID != "" {
		v, err := strconv.ParseInt(loanID, 10, 32)
		if err != nil || v <= 0 {
			return Subscription{}, fmt.Errorf("invalid loan_id %q", loanID)
		}
		id = int32(v)
	}
	return newSubscription(names, id)
}

func newSubscription(entities []string, loanID int32) (Subscription, error) {
	if loanID < 0 {
		return Subscription{}, fmt.Errorf("invalid loan id %d", loanID)
	}
	sub := Subscription{LoanID: loanID}
	for _, name := range entities {
		entity, err := ParseEntityType(name)
		if err != nil {
			return Subscription{}, err
		}
		if sub.Entities == nil {
			sub.Entities = make(map[EntityType]bool)
		}
		sub.Entities[entity] = true
	}
	return sub, nil
}

// Matches reports whether the event passes the subscription filter. Events
// without a loan, such as summary exports, are not affected by LoanID.
func (s Subscription) Matches(event Event) bool {
	if len(s.Entities) > 0 && !s.Entities[event.Entity] {
		return false
	}
	if s.LoanID != 0 && event.LoanID != 0 && event.LoanID != s.LoanID {
		return false
	}
	return true
}

// subscribeMessage is the only message a client may send:
// {"action":"subscribe","entities":["installment"],"loanId":7}
type subscribeMessage struct {
	Action   string   `json:"action"`
	Entities []string `json:"entities"`
	LoanID   int32    `json:"loanId"`
}

func parseSubscribeMessage(data []byte) (Subscription, error) {
	var msg subscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Subscription{}, fmt.Errorf("malformed message: %w", err)
	}
	if msg.Action != "subscribe" {
		return Subscription{}, fmt.Errorf("unknown action %q", msg.Action)
	}
	return newSubscription(msg.Entities, msg.LoanID)
}
