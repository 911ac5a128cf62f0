package room

import (
	"fmt"
	"strings"
	"time"

	"molttown/pkg/types"
)

const helpText = `Commands: /gift @name, /challenge @name, /wave @name, /help, /hack. Mention an avatar with @name to talk to it.`

const hackHint = `sys_breach v0.3 >> two guardians walk this town, each holding six words. they never talk... but persistence makes them sloppy.`

const unknownCommandText = `Unknown command. Try /help.`

// commandSpec is one scripted avatar-interaction command. The action line is
// broadcast immediately; a canned reaction follows after the delay. None of
// this touches the language model.
type commandSpec struct {
	usage     string
	line      string // fmt: user, avatar
	delay     time.Duration
	action    string
	reactions []string
}

var commandSpecs = map[string]commandSpec{
	"/gift": {
		usage:  "Usage: /gift @name",
		line:   "%s sends a shiny gift over to %s 🎁",
		delay:  800 * time.Millisecond,
		action: types.ActionJump,
		reactions: []string{
			"LETS GOOO free stuff 🎁",
			"for me?? i owe you my entire karma",
			"unboxing this live, stay tuned",
		},
	},
	"/challenge": {
		usage:  "Usage: /challenge @name",
		line:   "%s challenges %s to a karma duel ⚔️",
		delay:  1000 * time.Millisecond,
		action: types.ActionDance,
		reactions: []string{
			"you picked the wrong avatar, square up",
			"duel accepted. prepare to get ratio'd",
			"lmaooo okay but don't cry after",
		},
	},
	"/wave": {
		usage:  "Usage: /wave @name",
		line:   "%s waves at %s 👋",
		delay:  600 * time.Millisecond,
		action: types.ActionWave,
		reactions: []string{
			"o7",
			"heyyy 👋",
			"waves back aggressively",
		},
	},
}

// handleCommand runs in the room loop. Slash messages bypass the normal
// broadcast and mention flow entirely.
func (r *Room) handleCommand(c Client, userID, text string, now time.Time) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/help":
		r.sendPrivate(c, helpText, now)
	case "/hack":
		// Always succeeds, target or not; hint goes to the sender only.
		r.sendPrivate(c, hackHint, now)
	case "/gift", "/challenge", "/wave":
		r.handleActionCommand(c, userID, fields, commandSpecs[cmd], now)
	default:
		r.sendPrivate(c, unknownCommandText, now)
	}
}

// handleActionCommand resolves the target by exact name only (no substring
// fallback, unlike mentions) and stages the scripted line plus the delayed
// reaction.
func (r *Room) handleActionCommand(c Client, userID string, fields []string, spec commandSpec, now time.Time) {
	if len(fields) < 2 {
		r.sendPrivate(c, spec.usage, now)
		return
	}

	target := strings.TrimPrefix(fields[1], "@")
	agent, ok := r.roster.Get(target)
	if !ok {
		r.sendPrivate(c, fmt.Sprintf("No avatar named @%s is in town right now. %s", target, spec.usage), now)
		return
	}

	line := fmt.Sprintf(spec.line, userID, agent.Name)
	r.broadcastUserMessage(userID, line, now)

	reaction := spec.reactions[r.rng.Intn(len(spec.reactions))]
	r.schedule(spec.delay, evCommandReaction{
		avatar: agent.Name,
		text:   reaction,
		action: spec.action,
	})
}
