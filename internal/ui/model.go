package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/dpshade/prompt-mover/internal/clipboard"
	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/notify"
	"github.com/dpshade/prompt-mover/internal/relocate"
	"github.com/dpshade/prompt-mover/internal/renderer"
	"github.com/dpshade/prompt-mover/internal/service"
)

// Commands for async operations
type presetsLoadedMsg struct {
	presets []models.Summary
	err     error
}

type presetLoadedMsg struct {
	step   Step
	preset *models.Preset
	err    error
}

type relocatedMsg struct {
	outcome *service.Outcome
	err     error
}

// tickMsg is sent to clear the status message
type tickMsg time.Time

const operationTimeout = 30 * time.Second

func loadPresetsCmd(svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()
		presets, err := svc.ListPresets(ctx)
		return presetsLoadedMsg{presets: presets, err: err}
	}
}

func loadPresetCmd(svc *service.Service, step Step, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()
		preset, err := svc.GetPreset(ctx, name)
		return presetLoadedMsg{step: step, preset: preset, err: err}
	}
}

func relocateCmd(svc *service.Service, op service.Operation) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()
		outcome, err := svc.Relocate(ctx, op)
		return relocatedMsg{outcome: outcome, err: err}
	}
}

// clearStatusCmd returns a command that clears the status message after a delay
func clearStatusCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// KeyMap defines all key bindings
type KeyMap struct {
	Enter      key.Binding
	Back       key.Binding
	ToggleMode key.Binding
	Copy       key.Binding
	CopyJSON   key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// ShortHelp returns keybindings to show in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Back, k.ToggleMode, k.Help, k.Quit}
}

// FullHelp returns keybindings to show in the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enter, k.Back, k.ToggleMode},
		{k.Copy, k.CopyJSON},
		{k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	ToggleMode: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "copy/move"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy record"),
	),
	CopyJSON: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy as JSON"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("Ctrl+c", "quit"),
	),
}

// Model represents the TUI application state
type Model struct {
	service  *service.Service
	recorder *notify.Recorder
	logger   *zap.Logger
	clip     clipboard.Writer

	session Session
	picker  *Picker

	// UI components
	preview viewport.Model
	help    help.Model
	keys    KeyMap

	// Data
	presets []models.Summary
	source  *models.Preset
	target  *models.Preset
	loading bool

	glamourRenderer *glamour.TermRenderer

	// Window dimensions
	width  int
	height int

	// Status messages
	statusMsg      string
	statusSeverity notify.Severity
	statusTimeout  int

	errHandler *errors.TUIErrorHandler
}

// Options configures NewModel
type Options struct {
	Mode      relocate.Mode
	Scope     string
	Recorder  *notify.Recorder
	Logger    *zap.Logger
	Clipboard clipboard.Writer
}

// NewModel creates a new TUI model. The recorder must also be a notifier of
// svc so outcome notifications reach the status line.
func NewModel(svc *service.Service, opts Options) *Model {
	// Initialize adaptive colors based on terminal background
	initializeColors()

	if opts.Recorder == nil {
		opts.Recorder = notify.NewRecorder()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.System{}
	}
	scope := opts.Scope
	if scope == "" {
		scope = svc.DefaultScope()
	}

	return &Model{
		service:    svc,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
		clip:       opts.Clipboard,
		session:    NewSession(opts.Mode, scope),
		preview:    viewport.New(60, 12),
		help:       help.New(),
		keys:       keys,
		loading:    true,
		errHandler: errors.NewTUIErrorHandler(false, opts.Logger),
	}
}

// Session returns the current selection state
func (m Model) Session() Session {
	return m.session
}

// Init loads the preset list
func (m Model) Init() tea.Cmd {
	return loadPresetsCmd(m.service)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		previewWidth := max(msg.Width/2-4, 30)
		m.preview.Width = previewWidth
		m.preview.Height = max(msg.Height-10, 5)
		if r, err := renderer.NewTermRenderer(previewWidth - 2); err == nil {
			m.glamourRenderer = r
		}
		if m.picker != nil {
			m.picker.SetSize(msg.Width/2, msg.Height)
		}
		m.refreshPreview()
		return m, nil

	case tickMsg:
		if m.statusTimeout > 0 {
			m.statusTimeout--
			if m.statusTimeout == 0 {
				m.statusMsg = ""
			} else {
				return m, clearStatusCmd()
			}
		}
		return m, nil

	case presetsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.presets = nil
			return m, m.showError(msg.err)
		}
		m.presets = msg.presets
		m.openStepPicker()
		return m, nil

	case presetLoadedMsg:
		m.loading = false
		if msg.step != m.session.Step {
			// stale load from a step the user already left
			return m, nil
		}
		if msg.err != nil {
			m.session = m.session.Back()
			m.openStepPicker()
			return m, m.showError(msg.err)
		}
		switch msg.step {
		case StepItem:
			m.source = msg.preset
		case StepSlot:
			m.target = msg.preset
		}
		m.openStepPicker()
		return m, nil

	case relocatedMsg:
		m.loading = false
		cmd := m.showNotification()
		if msg.err != nil {
			// keep the choices so the user can adjust the slot and retry
			m.logger.Debug("relocation failed", zap.Error(msg.err))
			m.session = m.session.Back()
			m.openStepPicker()
			return m, cmd
		}
		m.session = m.session.Reset()
		m.source, m.target = nil, nil
		m.loading = true
		return m, tea.Batch(cmd, loadPresetsCmd(m.service))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.picker != nil {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filtering := m.picker != nil && m.picker.Filtering()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case filtering:
		// every other key belongs to the filter input
	case key.Matches(msg, m.keys.ToggleMode):
		if m.session.Mode == relocate.ModeCopy && m.session.SameCollection() {
			return m, m.showError(errors.SameCollectionMoveError(m.session.TargetName))
		}
		m.session = m.session.ToggleMode()
		if m.session.Step == StepTarget {
			m.openStepPicker()
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case m.session.Step == StepItem && key.Matches(msg, m.keys.Copy, m.keys.CopyJSON):
		return m, m.copyHighlighted(key.Matches(msg, m.keys.CopyJSON))
	case m.session.Step == StepConfirm:
		return m.handleConfirmKey(msg)
	}

	if m.picker == nil || m.loading {
		return m, nil
	}

	before := m.picker.Highlighted()
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if m.picker.Done() {
		return m.applyPick(m.picker.Selected())
	}
	if m.picker.Highlighted() != before {
		m.refreshPreview()
	}
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		op, ok := m.session.Operation()
		if !ok || m.loading {
			return m, nil
		}
		m.loading = true
		return m, relocateCmd(m.service, op)
	case key.Matches(msg, m.keys.Back):
		m.session = m.session.Back()
		m.openStepPicker()
	}
	return m, nil
}

// applyPick advances or rewinds the session with the picker's result
func (m Model) applyPick(selected int) (tea.Model, tea.Cmd) {
	if selected == Cancelled {
		if m.session.Step == StepSource {
			return m, tea.Quit
		}
		m.session = m.session.Back()
		m.openStepPicker()
		return m, nil
	}

	switch m.session.Step {
	case StepSource:
		name := m.presets[selected].Name
		m.session = m.session.WithSource(name)
		m.source, m.target = nil, nil
		m.picker = nil
		m.loading = true
		return m, loadPresetCmd(m.service, StepItem, name)

	case StepItem:
		m.session = m.session.WithItem(m.source.Items[selected])
		m.openStepPicker()
		return m, nil

	case StepTarget:
		name := m.presets[selected].Name
		m.session = m.session.WithTarget(name)
		m.target = nil
		m.picker = nil
		m.loading = true
		return m, loadPresetCmd(m.service, StepSlot, name)

	case StepSlot:
		m.session = m.session.WithSlot(selected)
		m.picker = nil
		return m, nil
	}
	return m, nil
}

// openStepPicker builds the picker for the current step
func (m *Model) openStepPicker() {
	switch m.session.Step {
	case StepSource:
		m.picker = NewPicker("Copy or move from which preset?", presetOptions(m.presets, ""), true)
		m.picker.SetEmptyText("No presets found")
	case StepItem:
		if m.source == nil {
			m.picker = nil
			return
		}
		m.picker = NewPicker(fmt.Sprintf("Which prompt from %s?", m.source.Name), itemOptions(m.source.Items), true)
		m.picker.SetEmptyText("This preset has no prompts")
	case StepTarget:
		title := fmt.Sprintf("%s to which preset?", modeVerb(m.session.Mode))
		exclude := ""
		if m.session.Mode == relocate.ModeMove {
			// moving within one preset is a reorder, not a relocation
			exclude = m.session.SourceName
		}
		m.picker = NewPicker(title, presetOptions(m.presets, exclude), true)
		m.picker.SetEmptyText("No other presets to choose from")
	case StepSlot:
		if m.target == nil {
			m.picker = nil
			return
		}
		m.picker = NewPicker(fmt.Sprintf("Where in %s (%s)?", m.target.Name, m.session.Scope),
			slotOptions(m.target, m.session.Scope), false)
	default:
		m.picker = nil
	}
	if m.picker != nil && m.width > 0 {
		m.picker.SetSize(m.width/2, m.height)
	}
	m.refreshPreview()
}

func modeVerb(mode relocate.Mode) string {
	if mode == relocate.ModeMove {
		return "Move"
	}
	return "Copy"
}

func presetOptions(presets []models.Summary, exclude string) []Option {
	options := make([]Option, 0, len(presets))
	for i, p := range presets {
		if p.Name == exclude {
			continue
		}
		options = append(options, Option{
			Index:  i,
			Label:  p.Name,
			Detail: fmt.Sprintf("%d prompts • %d scopes", p.Items, p.Scopes),
		})
	}
	return options
}

func itemOptions(items []*models.Prompt) []Option {
	options := make([]Option, len(items))
	for i, item := range items {
		options[i] = Option{Index: i, Label: item.Title(), Detail: item.Description()}
	}
	return options
}

// slotOptions lists every gap of the target scope. A scope the preset does
// not have yet only offers slot 0.
func slotOptions(target *models.Preset, scope string) []Option {
	view := relocate.ResolveOrder(target, scope)
	if target.Scope(scope) == nil {
		return []Option{{Index: 0, Label: "Slot 0", Detail: fmt.Sprintf("creates scope %s", scope)}}
	}

	options := make([]Option, 0, len(view)+1)
	for i, ref := range view {
		options = append(options, Option{
			Index:  i,
			Label:  fmt.Sprintf("Slot %d", i),
			Detail: fmt.Sprintf("before %s", ref.Item.Title()),
		})
	}
	detail := "at the end"
	if len(view) > 0 {
		detail = fmt.Sprintf("after %s", view[len(view)-1].Item.Title())
	}
	options = append(options, Option{Index: len(view), Label: fmt.Sprintf("Slot %d", len(view)), Detail: detail})
	return options
}

// highlightedItem returns the prompt under the cursor during the item step
func (m *Model) highlightedItem() *models.Prompt {
	if m.session.Step != StepItem || m.source == nil || m.picker == nil {
		return nil
	}
	idx := m.picker.Highlighted()
	if idx < 0 || idx >= len(m.source.Items) {
		return nil
	}
	return m.source.Items[idx]
}

// refreshPreview renders the highlighted prompt into the preview pane
func (m *Model) refreshPreview() {
	item := m.highlightedItem()
	if item == nil && m.session.Step > StepItem {
		item = m.session.Item
	}
	if item == nil {
		m.preview.SetContent("")
		return
	}

	markdown := renderer.NewRenderer(item).RenderMarkdown()
	content := markdown
	if m.glamourRenderer != nil {
		if formatted, err := m.glamourRenderer.Render(markdown); err == nil {
			content = formatted
		}
	}
	m.preview.SetContent(content)
	m.preview.GotoTop()
}

func (m *Model) copyHighlighted(asMessages bool) tea.Cmd {
	item := m.highlightedItem()
	if item == nil {
		return nil
	}

	r := renderer.NewRenderer(item)
	text, err := r.RenderRecord()
	if asMessages {
		text, err = r.RenderJSON()
	}
	if err == nil {
		var msg string
		if msg, err = clipboard.CopyWithFallback(m.clip, text); err == nil {
			return m.setStatus(msg, notify.Success)
		}
	}
	return m.setStatus(err.Error(), notify.Error)
}

// showNotification shows the latest service notification on the status line
func (m *Model) showNotification() tea.Cmd {
	n, ok := m.recorder.Last()
	if !ok {
		return nil
	}
	return m.setStatus(n.Message, n.Severity)
}

func (m *Model) showError(err error) tea.Cmd {
	appErr := errors.GetAppError(m.errHandler.HandleError(err))
	return m.setStatus(m.errHandler.FormatError(appErr), notify.SeverityFor(appErr))
}

func (m *Model) setStatus(text string, severity notify.Severity) tea.Cmd {
	m.statusMsg = text
	m.statusSeverity = severity
	m.statusTimeout = 5
	return clearStatusCmd()
}

// View renders the model
func (m Model) View() string {
	header := CreateHeader("Prompt Mover", string(m.session.Mode))
	crumbs := StyleBreadcrumbs.Render(m.session.Breadcrumbs())

	var body string
	switch {
	case m.loading:
		body = StyleLoading.Render("Loading...")
	case m.session.Step == StepConfirm:
		body = m.renderConfirm()
	case m.picker != nil:
		body = m.picker.View()
		if m.session.Step >= StepItem && m.preview.TotalLineCount() > 0 {
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", StylePreview.Render(m.preview.View()))
		}
	}

	parts := []string{header, crumbs, "", body}
	if m.statusMsg != "" {
		parts = append(parts, CreateStatus(m.statusMsg, m.statusSeverity))
	}
	parts = append(parts, "", CreateGuaranteedHelp(m.help.View(m.keys), m.width))
	return AddMainPadding(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderConfirm() string {
	op, ok := m.session.Operation()
	if !ok {
		return ""
	}

	lines := []string{
		StyleSubtitle.Render(fmt.Sprintf("%s '%s'?", modeVerb(op.Mode), m.session.Item.Title())),
		"",
		CreateMetadata(fmt.Sprintf("from   %s", op.SourceName)),
		CreateMetadata(fmt.Sprintf("to     %s, scope %s, slot %d", op.TargetName, op.Scope, m.session.Slot)),
	}
	if m.session.SameCollection() {
		lines = append(lines, CreateMetadata("a renamed duplicate will be added to the same preset"))
	}
	lines = append(lines, "", StyleTextDim.Render("Enter: confirm • Esc: back"))
	return StyleModal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
