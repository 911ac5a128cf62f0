package types

import (
	"regexp"
)

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidUserID checks if a user ID meets format requirements.
// User IDs are client supplied and unauthenticated; the 1-50 character limit
// keeps them displayable and safe as map keys.
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return userIDRegex.MatchString(userID)
}

// IsValidAction checks if an animation action is one of the allowed set.
func IsValidAction(action string) bool {
	switch action {
	case ActionWave, ActionDance, ActionLaugh, ActionThink, ActionJump, ActionNone:
		return true
	default:
		return false
	}
}

// IsValidInboundType checks if an inbound frame type is recognized.
func IsValidInboundType(t string) bool {
	return t == InboundTypeChat || t == InboundTypeUpdateAgents
}

// Validate ensures a pushed agent record is usable as a roster entry.
func (a *AgentRecord) Validate() error {
	if len(a.Name) < 1 || len(a.Name) > 100 {
		return ErrInvalidAgentName
	}
	if a.Karma < 0 {
		return ErrInvalidKarma
	}
	return nil
}

// Validate ensures an inbound frame is well formed enough to process.
// Chat frames need a valid user ID and non-empty text; update_agents frames
// need every agent record to validate.
func (m *Inbound) Validate() error {
	switch m.Type {
	case InboundTypeChat:
		if !IsValidUserID(m.UserID) {
			return ErrInvalidUserID
		}
		if len(m.Text) < 1 {
			return ErrEmptyText
		}
		if len(m.Text) > 2000 {
			return ErrTextTooLarge
		}
		return nil
	case InboundTypeUpdateAgents:
		for i := range m.Agents {
			if err := m.Agents[i].Validate(); err != nil {
				return err
			}
		}
		return nil
	default:
		return ErrInvalidMessageType
	}
}
