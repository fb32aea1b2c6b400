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

// execIface defines the command surface the REPL dispatches to. The real
// App satisfies it; tests provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Use(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Say(ctx context.Context, args []string) error
	AddCompanion(ctx context.Context) error
	Delete(ctx context.Context, args []string) error
	Anchor(ctx context.Context, args []string) error
	Resolve(ctx context.Context) error
	Moments(ctx context.Context) error
	Post(ctx context.Context, args []string) error
	Comment(ctx context.Context, args []string) error
	Like(ctx context.Context, args []string) error
	Album(ctx context.Context) error
	AddPhoto(ctx context.Context, args []string) error
	DeletePhoto(ctx context.Context, args []string) error
	Avatar(ctx context.Context, args []string) error
	Profile(ctx context.Context, args []string) error
	Proactive(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
}

const helpText = `Available commands:
  (l)ist                     companions
  use <id>                   pick the companion to talk to
  show [id]                  companion details
  say <text>                 send a message
  add                        create a companion
  delete <id>                delete a companion for good
  anchor <message id>        toggle a core memory
  resolve                    end the current conflict
  moments                    the moments feed
  post <text>                post a moment
  comment <moment id> <text> comment on a moment
  like <moment id>           like or unlike a moment
  album                      the current companion's album
  photo <url> [description]  add a photo to the album
  rmphoto <photo id>         remove a photo
  avatar <url>               change the companion's avatar
  profile [name]             show or rename your profile
  proactive <trigger> <sec>  let the companion write first (morning|night|no_reply)
  sync                       push pending changes now
  exit | quit                leave the program`

// runREPL reads commands from reader until EOF or "exit"/"quit" and
// dispatches them to a. Handler errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, prompt bool) {
	for {
		if prompt {
			printlnFn(fmt.Sprintf("soullink %s> ", statusFn()))
		}
		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				printlnFn("Error:", err)
			}
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "use":
			cmdErr = a.Use(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "say":
			cmdErr = a.Say(ctx, args)
		case "add":
			cmdErr = a.AddCompanion(ctx)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "anchor":
			cmdErr = a.Anchor(ctx, args)
		case "resolve":
			cmdErr = a.Resolve(ctx)
		case "moments":
			cmdErr = a.Moments(ctx)
		case "post":
			cmdErr = a.Post(ctx, args)
		case "comment":
			cmdErr = a.Comment(ctx, args)
		case "like":
			cmdErr = a.Like(ctx, args)
		case "album":
			cmdErr = a.Album(ctx)
		case "photo":
			cmdErr = a.AddPhoto(ctx, args)
		case "rmphoto":
			cmdErr = a.DeletePhoto(ctx, args)
		case "avatar":
			cmdErr = a.Avatar(ctx, args)
		case "profile":
			cmdErr = a.Profile(ctx, args)
		case "proactive":
			cmdErr = a.Proactive(ctx, args)
		case "sync":
			cmdErr = a.Sync(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
