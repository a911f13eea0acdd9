// Package app wires configuration, logging, the tie point session and its
// undo/redo history to the terminal and script front ends.
package app

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dshills/tiewarp/internal/config"
	"github.com/dshills/tiewarp/internal/config/notify"
	"github.com/dshills/tiewarp/internal/config/watcher"
	"github.com/dshills/tiewarp/internal/history"
	"github.com/dshills/tiewarp/internal/input/keymap"
	"github.com/dshills/tiewarp/internal/script"
	"github.com/dshills/tiewarp/internal/tiepoint"
	"github.com/dshills/tiewarp/internal/ui"
)

// Application owns every long-lived component for one alignment session.
type Application struct {
	mu sync.Mutex

	opts Options

	config    *config.Config
	logger    *Logger
	logCloser io.Closer
	watcher   *watcher.Watcher
	notifier  *notify.Notifier
	keysDirty atomic.Bool
	logDirty  atomic.Bool

	history *history.Manager
	session *tiepoint.Session
	keys    *keymap.Keymap

	term *ui.Terminal
	view *ui.UI

	running atomic.Bool
	closed  bool
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to a TOML or YAML configuration file.
	ConfigPath string

	// ScriptPath runs a Lua script instead of the terminal UI.
	ScriptPath string

	// Debug forces debug logging.
	Debug bool

	// LogLevel overrides the configured log level when set.
	LogLevel string

	// ScriptOutput receives script print output. Defaults to os.Stdout.
	ScriptOutput io.Writer

	// LogOutput overrides the configured log destination.
	LogOutput io.Writer

	// WatchConfig reloads the configuration file when it changes.
	WatchConfig bool
}

// New loads configuration and builds the session. On error, anything
// already opened is closed again.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts, logger: NullLogger}
	if err := app.bootstrap(); err != nil {
		_ = app.Shutdown()
		return nil, err
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.config = cfg

	app.initLogger()

	if err := app.initSession(); err != nil {
		return err
	}

	km, err := buildKeymap(cfg)
	if err != nil {
		return &InitError{Component: "keymap", Err: err}
	}
	app.keys = km

	app.initNotifier()

	if app.opts.WatchConfig && app.opts.ConfigPath != "" {
		w, err := watcher.New(app.opts.ConfigPath)
		if err != nil {
			return &InitError{Component: "config watcher", Err: err}
		}
		w.OnChange(func(ev watcher.Event) {
			if ev.Op == watcher.OpRemove {
				app.logger.Warn("config file removed: %s", ev.Path)
				return
			}
			if err := app.Reload(); err != nil {
				app.logger.Warn("%v", err)
			}
		})
		app.watcher = w
	}

	app.logger.Debug("bootstrap complete: config=%q overlay=%q", cfg.Path, cfg.Overlay.Name)
	return nil
}

func (app *Application) initLogger() {
	out, closer := OpenLogOutput(app.config.Logging)
	if app.opts.LogOutput != nil {
		out, closer = app.opts.LogOutput, nopCloser{}
	}
	app.logCloser = closer
	app.logger = NewLogger(LoggerConfig{
		Level:  app.logLevel(app.config),
		Output: out,
		Prefix: "tiewarp",
	})
	app.applyLogLevel(app.config)
}

// applyLogLevel sets the logger level from cfg and the flags. The level
// "off" disables logging entirely.
func (app *Application) applyLogLevel(cfg *config.Config) {
	off := !app.opts.Debug && (app.opts.LogLevel == config.LevelOff ||
		app.opts.LogLevel == "" && cfg.Logging.Level == config.LevelOff)
	if off {
		app.logger.Disable()
		return
	}
	app.logger.Enable()
	app.logger.SetLevel(app.logLevel(cfg))
}

// reopenLogOutput points the logger at the file configured in cfg and
// closes the previous one. An explicit Options.LogOutput is never replaced.
func (app *Application) reopenLogOutput(cfg *config.Config) {
	if app.opts.LogOutput != nil {
		return
	}
	out, closer := OpenLogOutput(cfg.Logging)
	app.logger.SetOutput(out)

	app.mu.Lock()
	old := app.logCloser
	app.logCloser = closer
	app.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			app.logger.Warn("closing previous log output: %v", err)
		}
	}
}

// logLevel resolves the level: -debug, then -log-level, then config.
func (app *Application) logLevel(cfg *config.Config) LogLevel {
	switch {
	case app.opts.Debug:
		return LogLevelDebug
	case app.opts.LogLevel != "":
		return ParseLogLevel(app.opts.LogLevel)
	default:
		return ParseLogLevel(cfg.Logging.Level)
	}
}

func (app *Application) initSession() error {
	cfg := app.config

	histOpts := []history.Option{history.WithLogger(app.logger.WithComponent("history"))}
	if cfg.History.StrictHooks {
		histOpts = append(histOpts, history.WithStrictHooks())
	}
	app.history = history.New(histOpts...)

	app.session = tiepoint.NewSession(tiepoint.Overlay{
		Name:        cfg.Overlay.Name,
		ImageWidth:  cfg.Overlay.ImageWidth,
		ImageHeight: cfg.Overlay.ImageHeight,
	}, app.history)
	app.history.Configure(app.session.Capture, app.session.Restore)

	// The untouched overlay is the floor that undo returns to.
	if err := app.session.Checkpoint(); err != nil {
		return &InitError{Component: "history", Err: err}
	}
	return nil
}

// initNotifier subscribes the components that follow configuration
// reloads: the logger level and output, and the UI keymap.
func (app *Application) initNotifier() {
	app.notifier = notify.New()

	app.notifier.Subscribe(func(c notify.Change) {
		if c.Type != notify.ChangeReload {
			app.logger.Debug("config %s %s: %v -> %v", c.Type, c.Path, c.OldValue, c.NewValue)
		}
	})
	app.notifier.SubscribePath("logging.level", func(c notify.Change) {
		if c.Type == notify.ChangeSet {
			app.applyLogLevel(app.Config())
		}
	})
	app.notifier.SubscribePath("logging", func(c notify.Change) {
		switch {
		case c.Type != notify.ChangeReload:
			if c.Path != "logging.level" {
				app.logDirty.Store(true)
			}
		case app.logDirty.Swap(false):
			app.reopenLogOutput(app.Config())
		}
	})
	app.notifier.SubscribePath("keymap", func(c notify.Change) {
		if c.Type != notify.ChangeReload {
			app.keysDirty.Store(true)
			return
		}
		if !app.keysDirty.Swap(false) {
			return
		}
		app.mu.Lock()
		km, view := app.keys, app.view
		app.mu.Unlock()
		if view != nil {
			view.Do(func() { view.SetKeymap(km) })
		}
	})
}

func buildKeymap(cfg *config.Config) (*keymap.Keymap, error) {
	km := keymap.Default()
	if err := km.Override(cfg.Keymap); err != nil {
		return nil, err
	}
	return km, nil
}

// Reload re-reads the configuration file and applies the log level and
// keymap. Overlay and history settings only take effect at startup. A bad
// file leaves the running configuration in place.
func (app *Application) Reload() error {
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		return NewOperationError("reload config", app.opts.ConfigPath, err)
	}
	km, err := buildKeymap(cfg)
	if err != nil {
		return NewOperationError("reload config", app.opts.ConfigPath, err)
	}

	app.mu.Lock()
	old := app.config
	app.config = cfg
	app.keys = km
	app.mu.Unlock()

	changes := config.Diff(old, cfg)
	app.notifier.Publish(cfg.Path, changes)
	app.logger.Info("configuration reloaded from %s: %d changes", cfg.Path, len(changes))
	return nil
}

// SetTerminal sets the terminal the UI draws on. Must be called before Run.
func (app *Application) SetTerminal(t *ui.Terminal) error {
	if app.running.Load() {
		return ErrAlreadyRunning
	}
	app.mu.Lock()
	defer app.mu.Unlock()
	app.term = t
	return nil
}

// Run shows the terminal UI until the user quits or ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	app.mu.Lock()
	term, keys := app.term, app.keys
	app.mu.Unlock()
	if term == nil {
		return ErrNoTerminal
	}

	if err := term.Init(); err != nil {
		return &InitError{Component: "terminal", Err: err}
	}
	defer term.Shutdown()

	view := ui.New(term, app.session, app.history,
		ui.WithKeymap(keys),
		ui.WithLogger(app.logger.WithComponent("ui")),
	)
	app.mu.Lock()
	app.view = view
	app.mu.Unlock()
	defer func() {
		app.mu.Lock()
		app.view = nil
		app.mu.Unlock()
	}()

	app.logger.Info("session started: %s", app.session.Overlay().Name)
	err := view.Run(ctx)
	app.logger.Info("session ended: %d tie points, undo depth %d", app.session.Len(), app.history.UndoCount())
	return err
}

// RunScript runs Options.ScriptPath against the session headlessly.
func (app *Application) RunScript(ctx context.Context) error {
	if app.opts.ScriptPath == "" {
		return ErrNoScript
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	out := app.opts.ScriptOutput
	if out == nil {
		out = os.Stdout
	}
	runner := script.New(app.session, app.history, script.WithOutput(out))
	defer runner.Close()

	app.logger.Debug("running script %s", app.opts.ScriptPath)
	if err := runner.RunFile(ctx, app.opts.ScriptPath); err != nil {
		return NewOperationError("run script", app.opts.ScriptPath, err)
	}
	app.logger.Info("script finished: %d tie points, undo depth %d, redo depth %d",
		app.session.Len(), app.history.UndoCount(), app.history.RedoCount())
	return nil
}

// Shutdown stops the config watcher and closes the log file. It is safe to
// call more than once.
func (app *Application) Shutdown() error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return nil
	}
	app.closed = true
	w, closer := app.watcher, app.logCloser
	app.mu.Unlock()

	var errs ErrorList
	if w != nil {
		for _, err := range w.Errors() {
			app.logger.Warn("config watcher: %v", err)
		}
		errs.Add(w.Close())
	}
	if closer != nil {
		errs.Add(closer.Close())
	}
	return errs.AsError()
}

// Config returns a copy of the active configuration.
func (app *Application) Config() *config.Config {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.config.Clone()
}

// Keymap returns the active keymap.
func (app *Application) Keymap() *keymap.Keymap {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.keys
}

// Logger returns the application logger.
func (app *Application) Logger() *Logger {
	return app.logger
}

// History returns the undo/redo manager.
func (app *Application) History() *history.Manager {
	return app.history
}

// Session returns the tie point session.
func (app *Application) Session() *tiepoint.Session {
	return app.session
}
