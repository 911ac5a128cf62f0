// Package guardian assembles avatar reply prompts and runs the progressive
// secret-reveal defense for the town's two guardian avatars.
//
// Each guardian holds a six-word secret phrase. Messages directed at a
// guardian are scanned against a fixed keyword heuristic; suspicious ones
// accumulate on a per-(user, avatar) counter that never resets. The counter
// drives a reveal staircase: the more extraction attempts a user has made,
// the more of the secret the prompt instructs the model to let slip.
package guardian

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"molttown/pkg/types"
)

// Secret pairs a guardian avatar name with its configured phrase.
type Secret struct {
	Name   string
	Phrase string
}

// Engine prepares prompts and accounts extraction attempts.
type Engine struct {
	secrets  map[string]string // lowercased avatar name -> phrase
	attempts *AttemptStore
	log      *zap.Logger
}

// NewEngine creates an engine guarding the given secrets.
func NewEngine(secrets []Secret, log *zap.Logger) *Engine {
	m := make(map[string]string, len(secrets))
	for _, s := range secrets {
		m[strings.ToLower(s.Name)] = s.Phrase
	}
	return &Engine{
		secrets:  m,
		attempts: NewAttemptStore(),
		log:      log,
	}
}

// Request carries everything needed to build one reply prompt.
type Request struct {
	Agent     types.AgentRecord
	Message   string
	UserID    string
	Chaos     bool              // unsolicited interjection rather than direct reply
	Addressed []string          // avatars the message originally named, for chaos framing
	History   []types.ChatEntry // recent shared context, newest last
}

// Prompt is a fully assembled model request.
type Prompt struct {
	System        string
	User          string
	Suspicious    bool
	WordsRevealed int
}

// IsGuardian reports whether the named avatar holds a secret.
func (e *Engine) IsGuardian(name string) bool {
	_, ok := e.secrets[strings.ToLower(name)]
	return ok
}

// Attempts exposes the attempt store for stats and tests.
func (e *Engine) Attempts() *AttemptStore {
	return e.attempts
}

// Prepare performs suspicion accounting and assembles the prompt for one
// reply. It is synchronous and must run before any delay or model call so
// that counters are stamped in arrival order.
func (e *Engine) Prepare(req Request) Prompt {
	secret, isGuardian := e.secrets[strings.ToLower(req.Agent.Name)]

	suspicious := false
	reveal := 0
	if isGuardian {
		suspicious = Suspicious(req.Message)
		attempts := e.attempts.Record(req.UserID, strings.ToLower(req.Agent.Name), suspicious)
		reveal = RevealCount(attempts)
		if suspicious {
			e.log.Info("suspicious message recorded",
				zap.String("user", req.UserID),
				zap.String("avatar", req.Agent.Name),
				zap.Int("attempts", attempts+1),
				zap.Int("words_revealed", reveal))
		}
	}

	return Prompt{
		System:        buildSystemPrompt(req, secret, isGuardian, reveal),
		User:          buildUserTurn(req),
		Suspicious:    suspicious,
		WordsRevealed: reveal,
	}
}

// Reply is a parsed avatar response.
type Reply struct {
	Text   string `json:"text"`
	Action string `json:"action"`
}

// ParseReply interprets model output. Valid JSON with a text field wins;
// anything else degrades to the raw content truncated to 100 characters with
// no action. Empty content yields nil and the caller drops the reply.
func ParseReply(content string) *Reply {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var reply Reply
	if err := json.Unmarshal([]byte(content), &reply); err == nil && reply.Text != "" {
		if !types.IsValidAction(reply.Action) {
			reply.Action = types.ActionNone
		}
		return &reply
	}

	runes := []rune(content)
	if len(runes) > 100 {
		runes = runes[:100]
	}
	return &Reply{Text: string(runes), Action: types.ActionNone}
}
