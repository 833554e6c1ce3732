// ABOUTME: Command table and handlers for setlist-bot
// ABOUTME: Thin translation from parsed invocations to catalog operations

package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/2389/setlist-bot/internal/auth"
	"github.com/2389/setlist-bot/internal/offload"
	"github.com/2389/setlist-bot/internal/store"
)

// replier delivers replies for one invocation. Reply is visible to the
// room; ReplyPrivate only to the invoking caller.
type replier interface {
	Reply(ctx context.Context, markdown string) error
	ReplyPrivate(ctx context.Context, text string) error
}

// invocation carries one parsed command through its handler.
type invocation struct {
	id       string
	args     []string
	identity auth.Identity
	reply    replier
}

// command describes one entry in the command table.
type command struct {
	usage     string
	summary   string
	moderator bool
	run       func(ctx context.Context, inv *invocation) error
}

// commandTable builds the bot's command set. Moderator-gated commands
// are album create/delete/list and song delete; song creation, listing,
// sampling and album search stay open.
func commandTable(b *Bot) map[string]*command {
	return map[string]*command{
		"ping": {
			usage:   "ping",
			summary: "Pings the bot",
			run:     b.cmdPing,
		},
		"help": {
			usage:   "help [command]",
			summary: "Displays help about a command",
			run:     b.cmdHelp,
		},
		"new": {
			usage:   "new <title> | <album>",
			summary: "Adds a new song to the list",
			run:     b.cmdNew,
		},
		"list": {
			usage:   "list [album]",
			summary: "Lists songs, optionally from a single album",
			run:     b.cmdList,
		},
		"random": {
			usage:   "random [album] [amount]",
			summary: "Gets one or more random songs",
			run:     b.cmdRandom,
		},
		"delete": {
			usage:     "delete <song id>",
			summary:   "Deletes a song from the list by its ID",
			moderator: true,
			run:       b.cmdDelete,
		},
		"album create": {
			usage:     "album create <name>",
			summary:   "Creates an album",
			moderator: true,
			run:       b.cmdAlbumCreate,
		},
		"album delete": {
			usage:     "album delete <name>",
			summary:   "Deletes an album",
			moderator: true,
			run:       b.cmdAlbumDelete,
		},
		"album list": {
			usage:     "album list",
			summary:   "Lists all albums",
			moderator: true,
			run:       b.cmdAlbumList,
		},
		"album search": {
			usage:   "album search [prefix]",
			summary: "Finds albums whose name starts with a prefix",
			run:     b.cmdAlbumSearch,
		},
	}
}

// parseCommand splits a prefix-stripped message body into a command
// name and its arguments. "album" subcommands fold into the name.
func parseCommand(body string) (string, []string) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", nil
	}

	name := strings.ToLower(fields[0])
	args := fields[1:]

	if name == "album" && len(args) > 0 {
		name = "album " + strings.ToLower(args[0])
		args = args[1:]
	}

	return name, args
}

// execute runs a named command, applying the moderation gate for
// protected commands before the handler sees the invocation. Unknown
// names and denials are not errors.
func (b *Bot) execute(ctx context.Context, name string, inv *invocation) error {
	cmd, ok := b.commands[name]
	if !ok {
		return nil
	}

	if cmd.moderator && !b.guard.Check(ctx, inv.identity, inv.reply) {
		return nil
	}

	return cmd.run(ctx, inv)
}

// runOp executes a catalog operation on the worker pool. The operation
// is shielded from caller cancellation: once dispatched it runs to
// completion, and a departed caller's result is discarded.
func runOp[T any](ctx context.Context, b *Bot, fn func(ctx context.Context) (T, error)) (T, error) {
	opCtx := context.WithoutCancel(ctx)
	return offload.Run(ctx, b.pool, func() (T, error) {
		return fn(opCtx)
	})
}

func (b *Bot) cmdPing(ctx context.Context, inv *invocation) error {
	return inv.reply.Reply(ctx, "Ping!")
}

func (b *Bot) cmdHelp(ctx context.Context, inv *invocation) error {
	prefix := b.config.Bot.CommandPrefix

	if len(inv.args) > 0 {
		name, _ := parseCommand(strings.Join(inv.args, " "))
		cmd, ok := b.commands[name]
		if !ok {
			return inv.reply.Reply(ctx, fmt.Sprintf("No such command: `%s`", name))
		}
		return inv.reply.Reply(ctx, fmt.Sprintf("`%s%s`: %s", prefix, cmd.usage, cmd.summary))
	}

	names := make([]string, 0, len(b.commands))
	for name := range b.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("**Commands**\n")
	for _, name := range names {
		cmd := b.commands[name]
		fmt.Fprintf(&sb, "- `%s%s`: %s", prefix, cmd.usage, cmd.summary)
		if cmd.moderator {
			sb.WriteString(" (moderators only)")
		}
		sb.WriteString("\n")
	}
	return inv.reply.Reply(ctx, sb.String())
}

func (b *Bot) cmdNew(ctx context.Context, inv *invocation) error {
	title, album, ok := splitSongArgs(strings.Join(inv.args, " "))
	if !ok {
		return b.replyUsage(ctx, inv, "new")
	}

	id, err := runOp(ctx, b, func(ctx context.Context) (int64, error) {
		return b.catalog.CreateSong(ctx, title, album)
	})
	if errors.Is(err, store.ErrDuplicateSong) {
		return inv.reply.Reply(ctx,
			fmt.Sprintf("The song '%s' already exists in the album '%s'.", title, album))
	}
	if err != nil {
		return err
	}

	return inv.reply.Reply(ctx,
		fmt.Sprintf("Inserted song: '%s' with ID: %d in album '%s'.", title, id, album))
}

func (b *Bot) cmdList(ctx context.Context, inv *invocation) error {
	album := strings.Join(inv.args, " ")

	songs, err := runOp(ctx, b, func(ctx context.Context) ([]store.Song, error) {
		return b.catalog.ListSongs(ctx, album)
	})
	if err != nil {
		return err
	}

	if len(songs) == 0 {
		return inv.reply.Reply(ctx, "No songs found.")
	}

	var sb strings.Builder
	for _, song := range songs {
		fmt.Fprintf(&sb, "%d - %s (%s)\n", song.ID, song.Title, song.Album)
	}
	return inv.reply.Reply(ctx, sb.String())
}

func (b *Bot) cmdRandom(ctx context.Context, inv *invocation) error {
	album, amount := parseRandomArgs(inv.args)

	songs, err := runOp(ctx, b, func(ctx context.Context) ([]store.Song, error) {
		return b.catalog.SampleSongs(ctx, album, amount)
	})
	if err != nil {
		return err
	}

	if len(songs) == 0 {
		return inv.reply.Reply(ctx, "Couldn't retrieve any songs. No songs found in database.")
	}

	var sb strings.Builder
	sb.WriteString("**Random Result(s)**\n")
	for i, song := range songs {
		fmt.Fprintf(&sb, "%d. %s - %s [ID: %d]\n", i+1, song.Title, song.Album, song.ID)
	}
	return inv.reply.Reply(ctx, sb.String())
}

func (b *Bot) cmdDelete(ctx context.Context, inv *invocation) error {
	if len(inv.args) != 1 {
		return b.replyUsage(ctx, inv, "delete")
	}
	songID, err := strconv.ParseInt(inv.args[0], 10, 64)
	if err != nil {
		return b.replyUsage(ctx, inv, "delete")
	}

	removed, err := runOp(ctx, b, func(ctx context.Context) (bool, error) {
		return b.catalog.DeleteSong(ctx, songID)
	})
	if err != nil {
		return err
	}

	if !removed {
		return inv.reply.Reply(ctx, fmt.Sprintf("No song found with ID: %d", songID))
	}
	return inv.reply.Reply(ctx, fmt.Sprintf("Song with ID: %d has been successfully deleted.", songID))
}

func (b *Bot) cmdAlbumCreate(ctx context.Context, inv *invocation) error {
	name := strings.Join(inv.args, " ")
	if name == "" {
		return b.replyUsage(ctx, inv, "album create")
	}

	_, err := runOp(ctx, b, func(ctx context.Context) (int64, error) {
		return b.catalog.CreateAlbum(ctx, name)
	})
	if err != nil {
		return err
	}

	return inv.reply.Reply(ctx, fmt.Sprintf("Album '%s' has been created successfully.", name))
}

func (b *Bot) cmdAlbumDelete(ctx context.Context, inv *invocation) error {
	name := strings.Join(inv.args, " ")
	if name == "" {
		return b.replyUsage(ctx, inv, "album delete")
	}

	removed, err := runOp(ctx, b, func(ctx context.Context) (bool, error) {
		return b.catalog.DeleteAlbum(ctx, name)
	})
	if err != nil {
		return err
	}

	if !removed {
		return inv.reply.Reply(ctx, "Album not found.")
	}
	return inv.reply.Reply(ctx, fmt.Sprintf("Album '%s' has been deleted successfully.", name))
}

func (b *Bot) cmdAlbumList(ctx context.Context, inv *invocation) error {
	albums, err := runOp(ctx, b, func(ctx context.Context) ([]store.Album, error) {
		return b.catalog.ListAlbums(ctx)
	})
	if err != nil {
		return err
	}

	if len(albums) == 0 {
		return inv.reply.Reply(ctx, "No albums were found in the database.")
	}

	var sb strings.Builder
	sb.WriteString("**Albums**\n")
	for _, album := range albums {
		fmt.Fprintf(&sb, "- `%s`\n", album.Name)
	}
	return inv.reply.Reply(ctx, sb.String())
}

func (b *Bot) cmdAlbumSearch(ctx context.Context, inv *invocation) error {
	prefix := strings.Join(inv.args, " ")

	names, err := runOp(ctx, b, func(ctx context.Context) ([]string, error) {
		return b.catalog.SearchAlbumNames(ctx, prefix)
	})
	if err != nil {
		return err
	}

	if len(names) == 0 {
		return inv.reply.Reply(ctx, "No matching albums found.")
	}

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "- `%s`\n", name)
	}
	return inv.reply.Reply(ctx, sb.String())
}

// replyUsage sends the usage line for a command.
func (b *Bot) replyUsage(ctx context.Context, inv *invocation, name string) error {
	return inv.reply.Reply(ctx,
		fmt.Sprintf("Usage: `%s%s`", b.config.Bot.CommandPrefix, b.commands[name].usage))
}

// splitSongArgs splits "title | album" into its parts. Both sides must
// be non-empty.
func splitSongArgs(s string) (title, album string, ok bool) {
	left, right, found := strings.Cut(s, "|")
	if !found {
		return "", "", false
	}
	title = strings.TrimSpace(left)
	album = strings.TrimSpace(right)
	return title, album, title != "" && album != ""
}

// parseRandomArgs interprets "[album] [amount]": a trailing integer is
// the amount, anything before it the album name. Amount defaults to 1;
// the store clamps it further.
func parseRandomArgs(args []string) (album string, amount int) {
	amount = 1
	if len(args) == 0 {
		return "", amount
	}

	if n, err := strconv.Atoi(args[len(args)-1]); err == nil {
		amount = n
		args = args[:len(args)-1]
	}
	return strings.Join(args, " "), amount
}
