package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/bidwright/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/bidwright/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/bidwright/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/bidwright/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// SaveFunc persists one exported artifact and returns where it was written.
type SaveFunc func(artifact *domain.Artifact) (string, error)

// Config controls a single TUI session.
type Config struct {
	// SessionID owns the run. The document must already be uploaded.
	SessionID string

	// Step pauses between agents until the step key is pressed.
	Step bool

	// Formats are exported once the run is done.
	Formats []domain.ExportFormat

	// Save writes each exported artifact. Nothing is written when nil.
	Save SaveFunc
}

// App is the root Bubbletea model. It drives one run through its agents.
type App struct {
	ports     *Ports
	cfg       Config
	ctx       context.Context
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	spinner   spinner.Model
	statusBar *status.Bar

	run      domain.Run
	elapsed  map[domain.Stage]time.Duration
	running  bool
	paused   bool
	finished bool
	showHelp bool
	files    []string
	err      error

	width int
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a TUI for the given session.
func NewApp(ports *Ports, cfg Config) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("creating app: %w", ErrMissingSession)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(s.Active),
	)

	return &App{
		ports:     ports,
		cfg:       cfg,
		ctx:       context.Background(),
		styles:    s,
		keymap:    km,
		spinner:   sp,
		statusBar: status.NewBar(s, km),
		run:       domain.NewRun(cfg.SessionID),
		elapsed:   make(map[domain.Stage]time.Duration),
	}, nil
}

// WithContext sets the context used for pipeline calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("bidwright"),
		a.spinner.Tick,
		a.load(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.ready = true
		a.statusBar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.RunLoaded:
		if msg.Err != nil {
			return a.fail(msg.Err)
		}
		a.run = msg.Run
		return a, a.next()

	case messages.StageCompleted:
		a.running = false
		if msg.Run.ID != "" {
			a.run = msg.Run
		}
		a.elapsed[msg.Stage] = msg.Elapsed
		if msg.Err != nil {
			return a.fail(msg.Err)
		}
		return a, a.next()

	case messages.OutputsWritten:
		a.running = false
		a.files = msg.Files
		if msg.Err != nil {
			return a.fail(msg.Err)
		}
		a.finished = true
		a.statusBar.SetState(status.StateDone)
		a.statusBar.SetMessage(fmt.Sprintf("Done: %d file(s) written", len(a.files)))
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit
	case keymap.Matches(k, a.keymap.Help):
		a.showHelp = !a.showHelp
	case keymap.Matches(k, a.keymap.Step):
		if a.paused {
			return a, a.advance()
		}
	case keymap.Matches(k, a.keymap.Continue):
		a.cfg.Step = false
		if a.paused {
			return a, a.advance()
		}
	}
	return a, nil
}

// next decides what follows the current run state.
func (a *App) next() tea.Cmd {
	a.updateProgress()
	switch {
	case a.run.Halted():
		return a.failCmd(fmt.Errorf("%s failed: %s", a.run.FailedStage.Label(), a.run.Failure))
	case a.run.Done():
		return a.writeOutputs()
	case a.run.Stage == domain.StageIdle && !a.run.HasDocument():
		return a.failCmd(domain.ErrNoDocument)
	case a.cfg.Step:
		a.paused = true
		a.statusBar.SetState(status.StatePaused)
		return nil
	default:
		return a.advance()
	}
}

func (a *App) failCmd(err error) tea.Cmd {
	_, cmd := a.fail(err)
	return cmd
}

func (a *App) fail(err error) (tea.Model, tea.Cmd) {
	a.running = false
	a.paused = false
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
	return a, tea.Quit
}

func (a *App) load() tea.Cmd {
	ctx, pipeline, id := a.ctx, a.ports.Pipeline, a.cfg.SessionID
	return func() tea.Msg {
		run, err := pipeline.Load(ctx, id)
		return messages.RunLoaded{Run: run, Err: err}
	}
}

// advance runs the next agent, starting the run first when it is idle.
func (a *App) advance() tea.Cmd {
	stage := a.run.Stage
	if stage == domain.StageIdle {
		stage = domain.StageParsing
	}
	a.running = true
	a.paused = false
	a.statusBar.SetState(status.StateRunning)
	a.statusBar.SetMessage(stage.Activity())

	ctx, pipeline, id := a.ctx, a.ports.Pipeline, a.cfg.SessionID
	return func() tea.Msg {
		started := time.Now()
		run, err := pipeline.Load(ctx, id)
		if err == nil && run.Stage == domain.StageIdle {
			run, err = pipeline.Start(ctx, id)
		}
		if err == nil {
			run, err = pipeline.Advance(ctx, id)
		}
		return messages.StageCompleted{Stage: stage, Run: run, Elapsed: time.Since(started), Err: err}
	}
}

func (a *App) writeOutputs() tea.Cmd {
	a.running = true
	a.statusBar.SetState(status.StateRunning)
	a.statusBar.SetMessage("Writing outputs...")

	ctx, export, run := a.ctx, a.ports.Export, a.run
	formats, save := a.cfg.Formats, a.cfg.Save
	return func() tea.Msg {
		if save == nil {
			return messages.OutputsWritten{}
		}
		files := make([]string, 0, len(formats))
		for _, format := range formats {
			artifact, err := export.Export(ctx, run, format)
			if err != nil {
				return messages.OutputsWritten{Files: files, Err: err}
			}
			path, err := save(artifact)
			if err != nil {
				return messages.OutputsWritten{Files: files, Err: err}
			}
			files = append(files, path)
		}
		return messages.OutputsWritten{Files: files}
	}
}

func (a *App) updateProgress() {
	completed := 0
	for _, stage := range domain.AgentStages {
		if a.run.StatusOf(stage) == domain.StatusComplete {
			completed++
		}
	}
	a.statusBar.SetProgress(completed, len(domain.AgentStages))
}

// statusOf reports the agent state, treating an idle run that is being
// started as parsing.
func (a *App) statusOf(stage domain.Stage) domain.StageStatus {
	if a.running && a.run.Stage == domain.StageIdle && stage == domain.StageParsing {
		return domain.StatusWorking
	}
	return a.run.StatusOf(stage)
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("bidwright"))
	b.WriteString(a.styles.Muted.Render("  RFP response assistant"))
	b.WriteString("\n")
	if a.run.HasDocument() {
		b.WriteString(a.styles.Normal.Render(fmt.Sprintf("%s (%d characters)", a.run.DocumentName, len([]rune(a.run.RawText)))))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(a.styles.Panel.Render(a.viewAgents()))
	b.WriteString("\n")

	if a.run.Requirements != nil && a.run.Requirements.IsFallback() {
		b.WriteString(a.styles.Warning.Render("Requirements could not be parsed as JSON; raw reply kept."))
		b.WriteString("\n")
	}
	if a.err != nil {
		b.WriteString(a.styles.Error.Render(a.err.Error()))
		b.WriteString("\n")
	}
	if a.finished {
		b.WriteString(a.viewSummary())
	}
	if a.showHelp {
		b.WriteString(a.viewHelp())
	}

	b.WriteString(a.statusBar.View())
	b.WriteString("\n")
	return b.String()
}

func (a *App) viewAgents() string {
	lines := make([]string, 0, len(domain.AgentStages)*2)
	for _, stage := range domain.AgentStages {
		st := a.statusOf(stage)
		line := a.marker(st) + " " + a.styles.ForStatus(st).Render(stage.Label())
		if d, ok := a.elapsed[stage]; ok && st == domain.StatusComplete {
			line += a.styles.Muted.Render(" " + d.Round(time.Millisecond).String())
		}
		lines = append(lines, line)
		if st == domain.StatusWorking && a.running {
			lines = append(lines, "   "+a.styles.Muted.Render(stage.Activity()))
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) marker(st domain.StageStatus) string {
	switch st {
	case domain.StatusComplete:
		return a.styles.Success.Render("✓")
	case domain.StatusFailed:
		return a.styles.Error.Render("✗")
	case domain.StatusWorking:
		if a.running {
			return a.spinner.View()
		}
		return a.styles.Active.Render("▸")
	default:
		return a.styles.Muted.Render("○")
	}
}

func (a *App) viewSummary() string {
	var b strings.Builder
	b.WriteString(a.styles.Subtitle.Render("Response ready"))
	b.WriteString("\n")
	for _, f := range a.files {
		b.WriteString("  " + f + "\n")
	}
	return b.String()
}

func (a *App) viewHelp() string {
	var b strings.Builder
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(a.styles.Help.Render(fmt.Sprintf("  %-8s %s", h.Key, h.Desc)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Run starts the TUI and blocks until the run finishes or the user quits.
func (a *App) Run(opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(a.ctx)}, opts...)
	p := tea.NewProgram(a, opts...)
	_, err := p.Run()
	return err
}

// CurrentRun returns the last run state the TUI saw.
func (a *App) CurrentRun() domain.Run {
	return a.run
}

// Files returns the paths written once the run finished.
func (a *App) Files() []string {
	return a.files
}

// Finished reports whether every agent ran and outputs were written.
func (a *App) Finished() bool {
	return a.finished
}

// Paused reports whether the TUI is waiting for the step key.
func (a *App) Paused() bool {
	return a.paused
}

// Err returns the error that stopped the run, if any.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}
