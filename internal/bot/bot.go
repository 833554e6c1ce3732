// ABOUTME: Matrix frontend for setlist-bot
// ABOUTME: Handles client connection, sync loop and invocation dispatch

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/format"
	"maunium.net/go/mautrix/id"

	"github.com/2389/setlist-bot/internal/auth"
	"github.com/2389/setlist-bot/internal/config"
	"github.com/2389/setlist-bot/internal/dedupe"
	"github.com/2389/setlist-bot/internal/offload"
	"github.com/2389/setlist-bot/internal/store"
)

// trackerSize bounds the invocation dedupe cache.
const trackerSize = 4096

// Bot connects a Matrix account to the song catalog.
type Bot struct {
	config  *config.Config
	matrix  *mautrix.Client
	catalog store.Catalog
	pool    *offload.Pool
	guard   *auth.Guard
	tracker *dedupe.Tracker
	logger  *slog.Logger

	commands map[string]*command

	// Cached direct rooms for caller-only replies, keyed by user id
	dmMu    sync.Mutex
	dmRooms map[id.UserID]id.RoomID

	// ctx is the parent context for invocation goroutines; invWG tracks
	// them so shutdown drains invocations before the pool closes
	ctx    context.Context
	cancel context.CancelFunc
	invWG  sync.WaitGroup
}

// New creates a bot wired to the given catalog.
func New(cfg *config.Config, catalog store.Catalog, logger *slog.Logger) (*Bot, error) {
	client, err := mautrix.NewClient(cfg.Matrix.Homeserver, id.UserID(cfg.Matrix.UserID), cfg.Matrix.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	b := &Bot{
		config:  cfg,
		matrix:  client,
		catalog: catalog,
		pool:    offload.NewPool(cfg.Bot.Workers),
		guard:   auth.NewGuard(cfg.Bot.ModeratorRole),
		tracker: dedupe.NewTracker(cfg.Bot.EditWindow, trackerSize),
		logger:  logger,
		dmRooms: make(map[id.UserID]id.RoomID),
	}
	b.commands = commandTable(b)

	return b, nil
}

// Run starts the sync loop and blocks until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("starting setlist bot",
		"homeserver", b.config.Matrix.Homeserver,
		"user_id", b.config.Matrix.UserID,
		"prefix", b.config.Bot.CommandPrefix,
	)

	// Deferred shutdown runs last-in first-out: stop dispatching new
	// invocations, drain the in-flight ones, then close the pool they
	// submit to.
	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.tracker.Close()
	defer b.pool.Close()
	defer b.invWG.Wait()
	defer b.cancel()

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	b.logger.Info("connecting to matrix homeserver")

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(b.ctx)
	}()

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down bot")
		b.cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMessageEvent filters incoming Matrix messages down to command
// invocations and dispatches each on its own goroutine so a slow
// handler never blocks the sync loop.
func (b *Bot) handleMessageEvent(ctx context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(b.config.Matrix.UserID) {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}
	if content.MsgType != event.MsgText {
		return
	}

	if !b.isRoomAllowed(evt.RoomID.String()) {
		b.logger.Debug("ignoring message from non-allowed room", "room", evt.RoomID.String())
		return
	}

	// Edits re-run the command against the original event's identity
	body := content.Body
	sourceEvent := evt.ID
	if rel := content.RelatesTo; rel != nil && rel.Type == event.RelReplace && content.NewContent != nil {
		body = content.NewContent.Body
		sourceEvent = rel.EventID
	}

	if !strings.HasPrefix(body, b.config.Bot.CommandPrefix) {
		return
	}
	body = strings.TrimSpace(strings.TrimPrefix(body, b.config.Bot.CommandPrefix))
	if body == "" {
		return
	}

	// Drop sync redeliveries; identical edits only run once
	if b.tracker.CheckAndMark(dedupe.Key(sourceEvent.String(), body)) {
		b.logger.Debug("dropping already-handled invocation", "event", sourceEvent.String())
		return
	}

	select {
	case <-b.ctx.Done():
		return
	default:
	}
	b.invWG.Add(1)
	go func() {
		defer b.invWG.Done()
		b.handleInvocation(b.ctx, evt.RoomID, evt.Sender, body)
	}()
}

// handleInvocation resolves the caller's identity and dispatches the
// parsed command.
func (b *Bot) handleInvocation(ctx context.Context, roomID id.RoomID, sender id.UserID, body string) {
	inv := &invocation{
		id:       uuid.NewString(),
		identity: b.resolveIdentity(ctx, roomID, sender),
		reply: &roomReplier{
			bot:    b,
			roomID: roomID,
			sender: sender,
		},
	}

	name, args := parseCommand(body)
	inv.args = args

	logger := b.logger.With("invocation", inv.id, "command", name, "sender", sender.String())

	if _, ok := b.commands[name]; !ok {
		logger.Debug("unknown command")
		return
	}

	logger.Info("executing command")

	if err := b.execute(ctx, name, inv); err != nil {
		logger.Error("command failed", "error", err)
		if err := inv.reply.Reply(ctx, "Something went wrong, please try again."); err != nil {
			logger.Error("failed to send failure reply", "error", err)
		}
		return
	}

	logger.Info("executed command")
}

// resolveIdentity derives the caller's role set from the room's power
// levels. A caller at or above the configured level holds the moderator
// role. If the room state cannot be read the identity is unresolved and
// the gate fails closed.
func (b *Bot) resolveIdentity(ctx context.Context, roomID id.RoomID, sender id.UserID) auth.Identity {
	var levels event.PowerLevelsEventContent
	err := b.matrix.StateEvent(ctx, roomID, event.StatePowerLevels, "", &levels)
	if err != nil {
		b.logger.Warn("failed to resolve room power levels",
			"room", roomID.String(),
			"sender", sender.String(),
			"error", err,
		)
		return auth.Unresolved(sender.String())
	}

	var roles []string
	if levels.GetUserLevel(sender) >= b.config.Bot.ModeratorPowerLevel {
		roles = append(roles, b.config.Bot.ModeratorRole)
	}
	return auth.Resolved(sender.String(), roles)
}

// isRoomAllowed checks if the room is in the allowed list.
func (b *Bot) isRoomAllowed(roomID string) bool {
	if len(b.config.Bot.AllowedRooms) == 0 {
		return true // Allow all if no filter
	}

	for _, allowed := range b.config.Bot.AllowedRooms {
		if allowed == roomID {
			return true
		}
	}
	return false
}

// sendMarkdown renders markdown and sends it to the room.
func (b *Bot) sendMarkdown(ctx context.Context, roomID id.RoomID, markdown string) error {
	content := format.RenderMarkdown(markdown, true, false)
	if _, err := b.matrix.SendMessageEvent(ctx, roomID, event.EventMessage, &content); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// sendPrivate delivers text to a direct room with the user, creating
// and caching the room on first use. This is the caller-only reply
// channel used for gate denials.
func (b *Bot) sendPrivate(ctx context.Context, user id.UserID, text string) error {
	roomID, err := b.directRoom(ctx, user)
	if err != nil {
		return err
	}
	if _, err := b.matrix.SendText(ctx, roomID, text); err != nil {
		return fmt.Errorf("sending private message: %w", err)
	}
	return nil
}

// directRoom returns the cached direct room for the user, creating one
// if none exists yet.
func (b *Bot) directRoom(ctx context.Context, user id.UserID) (id.RoomID, error) {
	b.dmMu.Lock()
	defer b.dmMu.Unlock()

	if roomID, ok := b.dmRooms[user]; ok {
		return roomID, nil
	}

	resp, err := b.matrix.CreateRoom(ctx, &mautrix.ReqCreateRoom{
		Invite:   []id.UserID{user},
		IsDirect: true,
		Preset:   "trusted_private_chat",
	})
	if err != nil {
		return "", fmt.Errorf("creating direct room: %w", err)
	}

	b.dmRooms[user] = resp.RoomID
	return resp.RoomID, nil
}

// roomReplier delivers replies for a single invocation.
type roomReplier struct {
	bot    *Bot
	roomID id.RoomID
	sender id.UserID
}

func (r *roomReplier) Reply(ctx context.Context, markdown string) error {
	return r.bot.sendMarkdown(ctx, r.roomID, markdown)
}

func (r *roomReplier) ReplyPrivate(ctx context.Context, text string) error {
	return r.bot.sendPrivate(ctx, r.sender, text)
}
