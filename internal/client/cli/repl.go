package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	ShowProfile(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error

	ListTables(ctx context.Context) error
	CreateTable(ctx context.Context, args []string) error
	Share(ctx context.Context, args []string) error
	Unshare(ctx context.Context, args []string) error
	Archive(ctx context.Context, args []string) error
	Unarchive(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Leave(ctx context.Context, args []string) error
	Remind(ctx context.Context, args []string) error
	ListReminders(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	Nudge(ctx context.Context, args []string) error
	Watch(ctx context.Context, args []string) error
	Unwatch(ctx context.Context, args []string) error

	ListCards(ctx context.Context, args []string) error
	AddCard(ctx context.Context, args []string) error
	Discuss(ctx context.Context, args []string) error
	ListComments(ctx context.Context, args []string) error
	AddComment(ctx context.Context, args []string) error

	ListReflections(ctx context.Context) error
	Reflect(ctx context.Context, args []string) error
	EditReflection(ctx context.Context, args []string) error
	DeleteReflection(ctx context.Context, args []string) error
	ShareReflection(ctx context.Context, args []string) error
	Seed(ctx context.Context, args []string) error
}

const (
	guestHelp = "Available commands: register, login, exit"
	userHelp  = `Available commands:
  tables | create | share <t> [email] | unshare <t> | archive <t> | unarchive <t> | delete <t> | leave <t>
  remind <t> <duration|RFC3339|clear> | reminders | open <t|link> | nudge <t> [message] | watch <t> | unwatch <t>
  cards <t> | card <t> | discuss <n> | comments <n> | comment <n> [text]
  reflections | reflect | edit-reflection <r> | delete-reflection <r> | share-reflection <r> <t> | seed <r>
  profile [edit] | search <query> | logout | exit`
)

// runREPL starts a read–eval–print loop for the Tables CLI.
//
// It reads a line from in, parses the first token as the command and passes
// the rest as arguments. The loop exits on EOF, when ctx is done, or when the
// user types "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("tables %s > ", statusFn()))
		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !a.isLoggedIn() {
			switch cmd {
			case "help":
				printlnFn(guestHelp)
			case "register":
				_ = a.Register(ctx, args)
			case "login":
				_ = a.Login(ctx, args)
			case "exit", "quit":
				printlnFn("Bye!")
				return
			default:
				printlnFn("Please log in first. " + guestHelp)
			}
			continue
		}

		switch cmd {
		case "help":
			printlnFn(userHelp)

		case "logout":
			_ = a.Logout(ctx)
		case "profile":
			_ = a.ShowProfile(ctx, args)
		case "search":
			_ = a.Search(ctx, args)

		case "t", "tables":
			_ = a.ListTables(ctx)
		case "create":
			_ = a.CreateTable(ctx, args)
		case "share":
			_ = a.Share(ctx, args)
		case "unshare":
			_ = a.Unshare(ctx, args)
		case "archive":
			_ = a.Archive(ctx, args)
		case "unarchive":
			_ = a.Unarchive(ctx, args)
		case "delete":
			_ = a.Delete(ctx, args)
		case "leave":
			_ = a.Leave(ctx, args)
		case "remind":
			_ = a.Remind(ctx, args)
		case "reminders":
			_ = a.ListReminders(ctx)
		case "open":
			_ = a.Open(ctx, args)
		case "nudge":
			_ = a.Nudge(ctx, args)
		case "watch":
			_ = a.Watch(ctx, args)
		case "unwatch":
			_ = a.Unwatch(ctx, args)

		case "cards":
			_ = a.ListCards(ctx, args)
		case "card":
			_ = a.AddCard(ctx, args)
		case "discuss":
			_ = a.Discuss(ctx, args)
		case "comments":
			_ = a.ListComments(ctx, args)
		case "comment":
			_ = a.AddComment(ctx, args)

		case "r", "reflections":
			_ = a.ListReflections(ctx)
		case "reflect":
			_ = a.Reflect(ctx, args)
		case "edit-reflection":
			_ = a.EditReflection(ctx, args)
		case "delete-reflection":
			_ = a.DeleteReflection(ctx, args)
		case "share-reflection":
			_ = a.ShareReflection(ctx, args)
		case "seed":
			_ = a.Seed(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
