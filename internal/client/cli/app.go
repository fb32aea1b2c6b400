package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/soullink/internal/client/client"
	"github.com/dmitrijs2005/soullink/internal/client/config"
	"github.com/dmitrijs2005/soullink/internal/client/identity"
	"github.com/dmitrijs2005/soullink/internal/client/localstore"
	"github.com/dmitrijs2005/soullink/internal/client/replies"
	"github.com/dmitrijs2005/soullink/internal/client/repositories/kv"
	"github.com/dmitrijs2005/soullink/internal/client/services"
	"github.com/dmitrijs2005/soullink/internal/filex"
	"github.com/dmitrijs2005/soullink/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	remote client.RemoteStore
	store  *services.Store
	reader *bufio.Reader
	out    io.Writer

	mu      sync.Mutex
	mode    Mode
	current string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, "text", c.LogLevel)

	if _, err := filex.EnsureParentDir(c.DataFile); err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.DataFile)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	repo := kv.NewSQLiteRepository(db, c.QuotaBytes)

	userID, err := identity.Ensure(ctx, repo, c.UserID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	local := localstore.NewAdapter(repo, localstore.Options{
		KeepMessages:   c.KeepMessages,
		MediaThreshold: c.MediaThreshold,
	}, logger)

	var remote client.RemoteStore
	mode := ModeDisabled
	if !c.Offline {
		grpcRemote, err := client.NewGRPCRemoteStore(c.ServerEndpointAddr, c.RetryInterval, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		remote = grpcRemote
		mode = ModeOffline
	}

	var generator replies.Generator = replies.NewMockGenerator()
	if c.OpenAIAPIKey != "" {
		generator = replies.NewOpenAIGenerator(c.OpenAI(), logger)
	}

	store := services.NewStore(local, remote, generator, services.Options{
		UserID:   userID,
		Debounce: c.Debounce,
	}, logger)
	if err := store.Start(ctx); err != nil {
		if remote != nil {
			_ = remote.Close()
		}
		_ = db.Close()
		return nil, err
	}

	logger.Info(ctx, "client started", "user_id", userID, "mode", string(mode))

	a := newApp(store, bufio.NewReader(os.Stdin), os.Stdout)
	a.config = c
	a.logger = logger
	a.db = db
	a.remote = remote
	a.mode = mode
	return a, nil
}

// newApp builds an App around a started store.
func newApp(store *services.Store, reader *bufio.Reader, out io.Writer) *App {
	a := &App{
		logger: logging.Nop{},
		store:  store,
		reader: reader,
		out:    out,
		mode:   ModeDisabled,
	}
	if cs := store.GetCompanions(); len(cs) > 0 {
		a.current = cs[0].ID
	}
	return a
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		a.logger.Info(context.Background(), "connection mode changed", "mode", string(mode))
	}
}

func (a *App) getMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) getStatus() string {
	s := string(a.getMode())
	if c, err := a.currentCompanion(); err == nil {
		s = c.DisplayName() + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

// Run starts the REPL and blocks until the user exits, then flushes the
// pending remote save and releases everything.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if p, ok := a.remote.(pinger); ok {
		go a.StartOnlineStatusWatcher(ctx, p, a.config.RetryInterval)
	}

	printlnFn("Welcome to SoulLink (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, interactive())
}

func (a *App) Close(ctx context.Context) {
	a.store.Flush()
	a.store.Dispose()
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.logger.Warn(ctx, "close remote", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn(ctx, "close database", "error", err)
		}
	}
}

// StartOnlineStatusWatcher probes the server every interval and flips the
// mode shown in the prompt.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, p pinger, interval time.Duration) {
	if interval <= 0 {
		interval = client.DefaultRetryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := p.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
