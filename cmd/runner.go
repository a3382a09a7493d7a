package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/importer"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/storage"
	"github.com/desertthunder/studyflow/internal/store"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The store is opened on first use so commands such as setup and serve never touch the local cache.
type Runner struct {
	config       *shared.Config
	configPath   string
	configLoaded bool
	store        *store.Store
	local        storage.Storage
	lookup       services.VideoLookup
	playlist     services.PlaylistSource
	httpClient   *http.Client
	logger       *log.Logger
	output       io.Writer
	now          func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      *store.Store
	Lookup     services.VideoLookup
	Playlist   services.PlaylistSource
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loaded := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		configLoaded: loaded,
		store:        opts.Store,
		lookup:       opts.Lookup,
		playlist:     opts.Playlist,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		output:       opts.Output,
		now:          opts.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, roadmapCommand, videoCommand, taskCommand,
		habitCommand, queueCommand, libraryCommand, authCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Load reads the config file named by --config and applies the log level. It runs before every command.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if !r.configLoaded {
		config, err := shared.LoadConfigOrDefault(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configLoaded = true
	}

	level, err := shared.ParseLogLevel(r.config.Log.Level)
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// openStore returns the local-first store, building it from config on first use.
//
// The remote is attached only when [remote] is enabled and a non-expired session is saved locally.
func (r *Runner) openStore() (*store.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	local, err := storage.Open(r.config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	session := store.LoadSession(local, r.now())
	opts := store.Options{
		Local:         local,
		Session:       session,
		Logger:        shared.WithLogger(r.logger, "component", "store"),
		Now:           r.now,
		RemoteTimeout: r.config.Remote.Timeout(),
	}
	if a, ok := models.ActiveSession(session, r.now()); ok && r.config.Remote.Enabled {
		opts.Remote = services.NewBackendService(r.config.Remote.URL, a.Token, r.config.Remote.Timeout())
	}

	s, err := store.New(opts)
	if err != nil {
		local.Close()
		return nil, err
	}

	r.logger.Debug("opened store", "driver", r.config.Storage.Driver, "remote", s.RemoteEnabled())
	r.store, r.local = s, local
	return s, nil
}

// backend returns an API client for the configured remote, signed with the saved session if any.
func (r *Runner) backend() (*services.BackendService, error) {
	if r.config.Remote.URL == "" {
		return nil, fmt.Errorf("%w: remote.url is not set", shared.ErrRemoteDisabled)
	}

	token := ""
	if r.store != nil {
		if a, ok := models.ActiveSession(r.store.Session(), r.now()); ok {
			token = a.Token
		}
	}
	return services.NewBackendService(r.config.Remote.URL, token, r.config.Remote.Timeout()), nil
}

// videoLookup returns the oEmbed client unless a test double was injected.
func (r *Runner) videoLookup() services.VideoLookup {
	if r.lookup == nil {
		r.lookup = services.NewOEmbedService(r.config.YouTube, r.httpClient, shared.WithLogger(r.logger, "component", "oembed"))
	}
	return r.lookup
}

// engine returns the import pipeline over oEmbed and ytdlp.
func (r *Runner) engine() *importer.Engine {
	if r.playlist == nil {
		r.playlist = services.NewPlaylistService(0)
	}
	return importer.NewEngine(r.videoLookup(), r.playlist, shared.WithLogger(r.logger, "component", "importer"))
}

// Close waits for background pushes and releases the local cache.
func (r *Runner) Close() error {
	if r.store != nil {
		r.store.Wait()
	}
	if r.local != nil {
		return r.local.Close()
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// writeTable renders rows as a rounded table on a terminal and as CSV otherwise, so output pipes cleanly.
func (r *Runner) writeTable(headers []string, rows [][]string, aligns []columnAlignment) error {
	columns := len(headers)
	if columns == 0 {
		return nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		tr := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				tr[i] = row[i]
			} else {
				tr[i] = ""
			}
		}
		tw.AppendRow(tr)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	var out string
	if isTerminal(r.output) {
		out = tw.Render()
	} else {
		out = tw.RenderCSV()
	}
	return r.writePlain("%s\n", out)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
