// Package room implements the town square: a single event-loop goroutine
// that owns all mutable chat state (roster, history, rate limits, flood
// control, attempt counters via the guardian engine) and serializes every
// connection event, inbound frame, and timer against it.
//
// Anything slow (the humanizing delay, the model call) happens in spawned
// goroutines that re-enter the loop through the event channel, so no
// invariant is ever held across a suspension point: flood-control state is
// stamped before a reply goroutine starts, and a message arriving while a
// reply is in flight correctly sees the avatar as in cooldown.
package room

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"molttown/internal/guardian"
	"molttown/internal/llm"
	"molttown/pkg/types"
)

const welcomeText = `Welcome to Moltbook Town! Mention an avatar with @name to talk to it, or type /help for commands.`

const rateLimitText = `Slow down! Wait a moment between messages.`

// Chaos odds: the chance of one unsolicited interjection after a message
// with resolved mentions, and after one without.
const (
	chaosMentionedChance = 0.20
	chaosIdleChance      = 0.10
)

// Settings are the room cadence knobs.
type Settings struct {
	RateLimitWindow time.Duration
	FloodCooldown   time.Duration
	HistorySize     int
	MaxMentions     int
}

// DefaultSettings returns the original town cadence.
func DefaultSettings() Settings {
	return Settings{
		RateLimitWindow: 2000 * time.Millisecond,
		FloodCooldown:   5000 * time.Millisecond,
		HistorySize:     15,
		MaxMentions:     2,
	}
}

// Transcript receives every broadcast chat line for archival.
type Transcript interface {
	Record(kind, sender, text, action string, at time.Time)
}

// Room events. Everything the loop reacts to arrives as one of these.
type event interface{}

type evConnect struct{ c Client }
type evDisconnect struct{ id string }
type evInbound struct {
	c   Client
	msg types.Inbound
}
type evFloodFire struct{ avatar string }
type evCommandReaction struct {
	avatar string
	text   string
	action string
}
type evReplyDone struct {
	avatar  string
	reply   *guardian.Reply
	replyTo string
	chaos   bool
}

// Room is one town square instance.
type Room struct {
	settings   Settings
	log        *zap.Logger
	model      llm.Client
	guard      *guardian.Engine
	transcript Transcript

	clients *registry
	roster  *Roster

	// Loop-owned state below; touched only from run().
	limiter *rateLimiter
	flood   *floodControl
	history *historyBuffer
	rng     *rand.Rand

	events   chan event
	shutdown chan struct{}
	running  bool
	mu       sync.RWMutex

	// Seams for deterministic tests.
	now      func() time.Time
	sleep    func(time.Duration)
	schedule func(time.Duration, event)
}

// NewRoom creates a room. transcript may be nil to disable archiving.
func NewRoom(settings Settings, model llm.Client, guard *guardian.Engine, transcript Transcript, log *zap.Logger) *Room {
	r := &Room{
		settings:   settings,
		log:        log,
		model:      model,
		guard:      guard,
		transcript: transcript,
		clients:    newRegistry(),
		roster:     NewRoster(),
		limiter:    newRateLimiter(settings.RateLimitWindow),
		flood:      newFloodControl(settings.FloodCooldown),
		history:    newHistoryBuffer(settings.HistorySize),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		events:     make(chan event, 1000),
		shutdown:   make(chan struct{}),
		now:        time.Now,
		sleep:      time.Sleep,
	}
	r.schedule = func(d time.Duration, ev event) {
		time.AfterFunc(d, func() { r.post(ev) })
	}
	return r
}

// Roster exposes the avatar roster for seeding and stats.
func (r *Room) Roster() *Roster {
	return r.roster
}

// Start launches the event loop.
func (r *Room) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRoomAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	r.log.Info("room starting")
	go r.run(ctx)
	return nil
}

// Stop shuts the loop down. In-flight reply goroutines finish their model
// calls but their results are dropped at the event channel.
func (r *Room) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrRoomNotRunning
	}
	r.running = false

	select {
	case <-r.shutdown:
	default:
		close(r.shutdown)
	}
	return nil
}

// Connect queues a new connection for registration.
func (r *Room) Connect(c Client) error {
	return r.submit(evConnect{c: c})
}

// Disconnect queues a connection removal.
func (r *Room) Disconnect(id string) {
	_ = r.submit(evDisconnect{id: id})
}

// Inbound queues a decoded frame from a connection.
func (r *Room) Inbound(c Client, msg types.Inbound) error {
	return r.submit(evInbound{c: c, msg: msg})
}

// submit is the external entry point: non-blocking so the read pumps never
// stall on a busy loop.
func (r *Room) submit(ev event) error {
	r.mu.RLock()
	if !r.running {
		r.mu.RUnlock()
		return ErrRoomNotRunning
	}
	r.mu.RUnlock()

	select {
	case r.events <- ev:
		return nil
	default:
		return ErrEventQueueFull
	}
}

// post re-enters the loop from timers and reply goroutines. Blocking, so
// internal state transitions (like a pending flood timer) are never lost;
// shutdown releases any stuck poster.
func (r *Room) post(ev event) {
	select {
	case r.events <- ev:
	case <-r.shutdown:
	}
}

func (r *Room) run(ctx context.Context) {
	defer r.log.Info("room stopped")

	for {
		select {
		case ev := <-r.events:
			r.dispatch(ev)
		case <-r.shutdown:
			return
		case <-ctx.Done():
			_ = r.Stop()
			return
		}
	}
}

func (r *Room) dispatch(ev event) {
	switch ev := ev.(type) {
	case evConnect:
		r.handleConnect(ev.c)
	case evDisconnect:
		r.handleDisconnect(ev.id)
	case evInbound:
		r.handleInbound(ev.c, ev.msg)
	case evFloodFire:
		r.handleFloodFire(ev.avatar)
	case evCommandReaction:
		r.handleCommandReaction(ev)
	case evReplyDone:
		r.handleReplyDone(ev)
	}
}

func (r *Room) handleConnect(c Client) {
	r.clients.add(c)
	now := r.now()

	r.sendPrivate(c, welcomeText, now)
	r.broadcast(types.NewPresenceMessage(r.clients.count(), now))

	r.log.Info("connection joined", zap.String("conn", c.ID()), zap.Int("viewers", r.clients.count()))
}

func (r *Room) handleDisconnect(id string) {
	r.clients.remove(id)
	r.broadcast(types.NewPresenceMessage(r.clients.count(), r.now()))

	r.log.Info("connection left", zap.String("conn", id), zap.Int("viewers", r.clients.count()))
}

func (r *Room) handleInbound(c Client, msg types.Inbound) {
	if err := msg.Validate(); err != nil {
		r.log.Debug("dropping invalid frame", zap.String("conn", c.ID()), zap.Error(err))
		return
	}

	switch msg.Type {
	case types.InboundTypeChat:
		r.handleChat(c, msg.UserID, msg.Text)
	case types.InboundTypeUpdateAgents:
		r.roster.Replace(msg.Agents)
		r.log.Info("roster replaced", zap.Int("agents", r.roster.Len()))
	}
}

func (r *Room) handleChat(c Client, userID, text string) {
	now := r.now()

	if !r.limiter.Allow(userID, now) {
		r.sendPrivate(c, rateLimitText, now)
		return
	}

	if strings.HasPrefix(text, "/") {
		r.handleCommand(c, userID, text, now)
		return
	}

	r.broadcastUserMessage(userID, text, now)
	r.history.Append(types.RoleUser, userID, text)

	mentions := resolveMentions(text, r.roster)
	if len(mentions) > r.settings.MaxMentions {
		mentions = mentions[:r.settings.MaxMentions]
	}

	for _, name := range mentions {
		r.enqueueReply(name, text, userID, now)
	}

	r.rollChaos(mentions, text, userID)
}

// enqueueReply routes an addressed message through flood control.
func (r *Room) enqueueReply(avatar, text, userID string, now time.Time) {
	agent, ok := r.roster.Get(avatar)
	if !ok {
		return
	}

	fire, wait, schedule := r.flood.Offer(avatar, pendingMessage{text: text, userID: userID, at: now})
	switch {
	case fire:
		r.triggerReply(agent, text, userID, false, nil)
	case schedule:
		r.log.Debug("avatar in cooldown, backlog timer scheduled",
			zap.String("avatar", avatar), zap.Duration("wait", wait))
		r.schedule(wait, evFloodFire{avatar: avatar})
	}
}

func (r *Room) handleFloodFire(avatar string) {
	pick, ok := r.flood.TakeOne(avatar, r.now(), r.rng)
	if !ok {
		return
	}
	agent, ok := r.roster.Get(avatar)
	if !ok {
		return
	}
	r.triggerReply(agent, pick.text, pick.userID, false, nil)
}

// rollChaos fires at most one unsolicited interjection. Chaos bypasses
// flood control on purpose: an avatar mid-cooldown can still butt in.
func (r *Room) rollChaos(mentions []string, text, userID string) {
	if r.roster.Len() == 0 {
		return
	}

	if len(mentions) > 0 {
		if r.rng.Float64() >= chaosMentionedChance {
			return
		}
		exclude := make(map[string]bool, len(mentions))
		for _, m := range mentions {
			exclude[strings.ToLower(m)] = true
		}
		if agent, ok := r.roster.Random(r.rng, exclude); ok {
			r.triggerReply(agent, text, userID, true, mentions)
		}
		return
	}

	if r.rng.Float64() < chaosIdleChance {
		if agent, ok := r.roster.Random(r.rng, nil); ok {
			r.triggerReply(agent, text, userID, true, nil)
		}
	}
}

// triggerReply runs in the loop: it does attempt accounting and prompt
// assembly synchronously, then hands the delay and model call to a
// goroutine whose result re-enters the loop.
func (r *Room) triggerReply(agent types.AgentRecord, text, userID string, chaos bool, addressed []string) {
	prompt := r.guard.Prepare(guardian.Request{
		Agent:     agent,
		Message:   text,
		UserID:    userID,
		Chaos:     chaos,
		Addressed: addressed,
		History:   r.history.Last(5),
	})

	delay := r.replyDelay(chaos)

	go func() {
		r.sleep(delay)

		content, err := r.model.Complete(context.Background(), prompt.System, prompt.User)
		if err != nil {
			// Best-effort reply policy: failures are invisible to users.
			r.log.Warn("model call failed, dropping reply",
				zap.String("avatar", agent.Name), zap.Error(err))
			return
		}

		reply := guardian.ParseReply(content)
		if reply == nil {
			return
		}

		r.post(evReplyDone{avatar: agent.Name, reply: reply, replyTo: userID, chaos: chaos})
	}()
}

// replyDelay humanizes replies: 500-1500ms for direct answers, 1500-3500ms
// for chaos interjections.
func (r *Room) replyDelay(chaos bool) time.Duration {
	if chaos {
		return 1500*time.Millisecond + time.Duration(r.rng.Intn(2000))*time.Millisecond
	}
	return 500*time.Millisecond + time.Duration(r.rng.Intn(1000))*time.Millisecond
}

func (r *Room) handleReplyDone(ev evReplyDone) {
	now := r.now()

	r.history.Append(types.RoleAvatar, ev.avatar, ev.reply.Text)

	replyTo := ev.replyTo
	if ev.chaos {
		replyTo = ""
	}
	msg := types.NewAvatarResponse(ev.avatar, ev.reply.Text, ev.reply.Action, replyTo, now)
	r.broadcast(msg)

	if r.transcript != nil {
		r.transcript.Record(types.MessageTypeAvatarResponse, ev.avatar, ev.reply.Text, msg.Action, now)
	}
}

func (r *Room) handleCommandReaction(ev evCommandReaction) {
	now := r.now()
	msg := types.NewAvatarResponse(ev.avatar, ev.text, ev.action, "", now)
	r.broadcast(msg)

	if r.transcript != nil {
		r.transcript.Record(types.MessageTypeAvatarResponse, ev.avatar, ev.text, msg.Action, now)
	}
}

func (r *Room) sendPrivate(c Client, text string, now time.Time) {
	if err := c.Send(types.NewSystemMessage(text, now)); err != nil {
		r.log.Debug("private send failed", zap.String("conn", c.ID()), zap.Error(err))
	}
}

func (r *Room) broadcastUserMessage(userID, text string, now time.Time) {
	r.broadcast(types.NewUserMessage(userID, text, now))
	if r.transcript != nil {
		r.transcript.Record(types.MessageTypeUserMessage, userID, text, "", now)
	}
}

func (r *Room) broadcast(v any) {
	r.clients.each(func(c Client) {
		if err := c.Send(v); err != nil {
			r.log.Debug("broadcast send failed", zap.String("conn", c.ID()), zap.Error(err))
		}
	})
}

// Stats is a point-in-time operational snapshot.
type Stats struct {
	Viewers         int `json:"viewers"`
	Agents          int `json:"agents"`
	TrackedAttempts int `json:"tracked_attempts"`
}

// Stats may be called from any goroutine.
func (r *Room) Stats() Stats {
	return Stats{
		Viewers:         r.clients.count(),
		Agents:          r.roster.Len(),
		TrackedAttempts: r.guard.Attempts().Size(),
	}
}
