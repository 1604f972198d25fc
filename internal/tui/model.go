package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	apierrors "github.com/diogo/codechat/internal/errors"
	"github.com/diogo/codechat/internal/history"
	"github.com/diogo/codechat/internal/models"
	"github.com/diogo/codechat/internal/render"
	"github.com/diogo/codechat/internal/session"
)

// Backend is the part of the backend client the chat screen uses directly.
// Everything that changes the conversation goes through the session Store.
type Backend interface {
	ListConversations(ctx context.Context) ([]models.ConversationSummary, error)
	SaveFile(ctx context.Context, req models.SaveFileRequest) (string, error)
}

// Message types for the TUI
type (
	// sendDoneMsg is the outcome of a submit or retry
	sendDoneMsg struct {
		err error
	}
	// replaceDoneMsg is the outcome of a load, start or initialize
	replaceDoneMsg struct {
		err error
	}
	// noticeMsg shows text in the notice panel
	noticeMsg struct {
		title string
		text  string
	}
	// statusMsg replaces the one-line status
	statusMsg struct {
		text string
		err  error
	}
)

type mode int

const (
	modeChat mode = iota
	modeSidebar
	modeCode
)

// Option configures the chat Model
type Option func(*Model)

// WithRenderOptions sets the markdown options for assistant replies
func WithRenderOptions(opts render.Options) Option {
	return func(m *Model) {
		m.renderOpts = opts
	}
}

// WithClipboard replaces the clipboard writer
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) {
		m.copyFn = fn
	}
}

// WithFileWriter replaces the function used by /write
func WithFileWriter(fn func(path string, data []byte) error) Option {
	return func(m *Model) {
		m.writeFn = fn
	}
}

// Model is the chat screen
type Model struct {
	ctx      context.Context
	store    *session.Store
	backend  Backend
	resolver *history.Resolver

	renderOpts render.Options
	copyFn     func(string) error
	writeFn    func(path string, data []byte) error

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	state    session.State
	mode     mode
	sidebar  sidebarModel
	viewer   codeViewer
	localErr error
	notice   noticeMsg
	status   string
	// pending is set while a load or start runs outside the Store's
	// loading flag, e.g. while resolving a reference
	pending bool
	ready   bool

	width  int
	height int
}

// NewChatModel creates the chat screen over store
func NewChatModel(ctx context.Context, store *session.Store, backend Backend, opts ...Option) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message or /help ..."
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		ctx:        ctx,
		store:      store,
		backend:    backend,
		resolver:   history.NewResolver(backend),
		renderOpts: render.DefaultOptions(),
		copyFn:     clipboard.WriteAll,
		writeFn: func(path string, data []byte) error {
			return os.WriteFile(path, data, 0o644)
		},
		textarea: ta,
		spinner:  s,
		state:    store.Snapshot(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init restores the persisted conversation
func (m Model) Init() tea.Cmd {
	store, ctx := m.store, m.ctx
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		func() tea.Msg {
			return replaceDoneMsg{err: store.Initialize(ctx)}
		},
	)
}

func (m Model) busy() bool {
	return m.state.Loading || m.pending
}

// sync pulls a fresh snapshot from the Store and redraws the messages
func (m *Model) sync() {
	m.state = m.store.Snapshot()
	m.updateViewport()
}

// noteErr records errors the Store did not already put into its state
func (m *Model) noteErr(err error) {
	if err == nil || errors.Is(err, session.ErrStaleResponse) {
		return
	}
	if m.state.Error == apierrors.Message(err) {
		return
	}
	m.localErr = err
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.resize(size.Width, size.Height)
	}

	switch m.mode {
	case modeSidebar:
		return m.updateSidebar(msg)
	case modeCode:
		return m.updateCodeViewer(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			switch {
			case m.notice.text != "":
				m.notice = noticeMsg{}
			case m.localErr != nil || m.state.Error != "":
				m.localErr = nil
				m.store.ClearError()
				m.sync()
			default:
				return m, tea.Quit
			}
			return m, nil

		case "ctrl+o":
			return m.openSidebar()

		case "ctrl+b":
			return m.openCodeViewer(0)

		case "ctrl+r":
			return m.retry()

		case "enter":
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if input == "exit" || input == "quit" {
				return m, tea.Quit
			}
			m.textarea.Reset()
			m.status = ""
			if sc, ok := parseSlash(input); ok {
				return m.runSlash(sc)
			}
			return m.submit(input)
		}

	case sendDoneMsg:
		m.sync()
		m.noteErr(msg.err)
		m.viewport.GotoBottom()

	case replaceDoneMsg:
		m.pending = false
		m.sync()
		m.noteErr(msg.err)
		m.viewport.GotoBottom()

	case noticeMsg:
		m.pending = false
		m.notice = msg

	case statusMsg:
		m.pending = false
		m.status = msg.text
		if msg.err != nil {
			m.localErr = msg.err
		}

	case spinner.TickMsg:
		if m.busy() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if _, ok := msg.(tea.KeyMsg); ok {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 4
	inputHeight := 7
	statusHeight := 1
	vpHeight := max(5, height-headerHeight-inputHeight-statusHeight-2)
	contentWidth := width - 4

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.updateViewport()
}

// submit sends text through the Store. The user message is on screen before
// the reply arrives.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if m.store.Snapshot().Loading {
		m.textarea.SetValue(text)
		m.localErr = session.ErrBusy
		return m, nil
	}
	m.store.SetDraftText(text)
	done, err := m.store.SubmitMessage(m.ctx)
	if err != nil {
		// keep what the user typed
		m.textarea.SetValue(text)
		m.localErr = err
		return m, nil
	}
	m.localErr = nil
	m.notice = noticeMsg{}
	m.sync()
	m.viewport.GotoBottom()
	return m, tea.Batch(waitForSend(done), m.spinner.Tick)
}

func (m Model) retry() (tea.Model, tea.Cmd) {
	done, err := m.store.RetryLast(m.ctx)
	if err != nil {
		m.localErr = err
		return m, nil
	}
	m.localErr = nil
	m.sync()
	return m, tea.Batch(waitForSend(done), m.spinner.Tick)
}

func waitForSend(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: <-done}
	}
}

func (m Model) startConversation() (tea.Model, tea.Cmd) {
	store, ctx := m.store, m.ctx
	m.pending = true
	m.localErr = nil
	return m, tea.Batch(func() tea.Msg {
		return replaceDoneMsg{err: store.StartNewConversation(ctx)}
	}, m.spinner.Tick)
}

// loadConversation resolves ref against the backend list, then loads it
func (m Model) loadConversation(ref string, resolve bool) (tea.Model, tea.Cmd) {
	store, ctx, resolver := m.store, m.ctx, m.resolver
	m.pending = true
	m.localErr = nil
	return m, tea.Batch(func() tea.Msg {
		id := ref
		if resolve {
			var err error
			if id, err = resolver.Resolve(ctx, ref); err != nil {
				return replaceDoneMsg{err: err}
			}
		}
		return replaceDoneMsg{err: store.LoadConversation(ctx, id)}
	}, m.spinner.Tick)
}

func (m Model) runSlash(sc slashCommand) (tea.Model, tea.Cmd) {
	store, ctx := m.store, m.ctx

	switch sc.name {
	case "quit", "exit":
		return m, tea.Quit

	case "help":
		m.notice = noticeMsg{title: "Help", text: helpText()}

	case "new":
		return m.startConversation()

	case "load":
		if sc.args == "" {
			m.localErr = fmt.Errorf("usage: /load <ref> (%s)", history.ListAliases())
			return m, nil
		}
		return m.loadConversation(sc.args, true)

	case "conversations", "list":
		return m.openSidebar()

	case "reset":
		m.store.Reset()
		m.localErr = nil
		m.sync()
		m.status = "Conversation forgotten"

	case "retry":
		return m.retry()

	case "analyze":
		if sc.args == "" {
			m.localErr = fmt.Errorf("usage: /analyze <question>")
			return m, nil
		}
		m.pending = true
		question := sc.args
		return m, tea.Batch(func() tea.Msg {
			return noticeMsg{title: "Project analysis", text: store.AnalyzeProject(ctx, question)}
		}, m.spinner.Tick)

	case "paths":
		if sc.args == "" {
			m.localErr = fmt.Errorf("usage: /paths <feature request>")
			return m, nil
		}
		m.pending = true
		feature := sc.args
		return m, tea.Batch(func() tea.Msg {
			return noticeMsg{title: "Relevant files", text: store.FetchFilePaths(ctx, feature)}
		}, m.spinner.Tick)

	case "files":
		paths := session.ParseFilePaths(sc.args)
		m.store.SetDraftFilePaths(paths)
		m.sync()
		if len(paths) == 0 {
			m.status = "Attachments cleared"
		} else {
			m.status = fmt.Sprintf("Attached %d file(s)", len(paths))
		}

	case "code":
		n := 1
		if sc.args != "" {
			var err error
			if n, _, err = blockArg(sc.args); err != nil {
				m.localErr = err
				return m, nil
			}
		}
		return m.openCodeViewer(n - 1)

	case "copy":
		n, _, err := blockArg(sc.args)
		if err != nil {
			m.localErr = err
			return m, nil
		}
		loc, err := m.block(n)
		if err != nil {
			m.localErr = err
			return m, nil
		}
		m.copyBlock(loc.Block)

	case "save":
		n, path, err := blockArg(sc.args)
		if err == nil && path == "" {
			err = fmt.Errorf("usage: /save <n> <path>")
		}
		if err != nil {
			m.localErr = err
			return m, nil
		}
		loc, err := m.block(n)
		if err != nil {
			m.localErr = err
			return m, nil
		}
		m.pending = true
		return m, m.saveRemote(loc.Block, path)

	case "write":
		n, path, err := blockArg(sc.args)
		if err == nil && path == "" {
			err = fmt.Errorf("usage: /write <n> <path>")
		}
		if err != nil {
			m.localErr = err
			return m, nil
		}
		loc, err := m.block(n)
		if err != nil {
			m.localErr = err
			return m, nil
		}
		if err := m.writeFn(path, []byte(loc.Block.Code)); err != nil {
			m.localErr = err
			return m, nil
		}
		m.status = fmt.Sprintf("Wrote %s to %s", loc.Block.Title, path)

	default:
		m.localErr = fmt.Errorf("unknown command /%s, try /help", sc.name)
	}
	return m, nil
}

// block returns the n-th (1-based) code block of the conversation
func (m Model) block(n int) (session.BlockLocation, error) {
	blocks := m.store.CodeBlocks()
	if n < 1 || n > len(blocks) {
		return session.BlockLocation{}, fmt.Errorf("%w: %d (have %d)", session.ErrNoCodeBlock, n, len(blocks))
	}
	return blocks[n-1], nil
}

func (m *Model) copyBlock(block models.CodeBlockRef) {
	if err := m.copyFn(block.Code); err != nil {
		log.Debug().Err(err).Msg("clipboard write failed")
		m.localErr = fmt.Errorf("copy to clipboard: %w", err)
		return
	}
	m.status = fmt.Sprintf("Copied %s", block.Title)
}

func (m Model) saveRemote(block models.CodeBlockRef, path string) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		resp, err := backend.SaveFile(ctx, models.SaveFileRequest{
			FilePath: path,
			Code:     block.Code,
			Language: block.Language,
		})
		if err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{text: resp}
	}
}

func (m Model) openSidebar() (tea.Model, tea.Cmd) {
	m.mode = modeSidebar
	m.sidebar = newSidebar()
	backend, ctx := m.backend, m.ctx
	return m, func() tea.Msg {
		list, err := backend.ListConversations(ctx)
		return conversationsLoadedMsg{conversations: list, err: err}
	}
}

func (m Model) updateSidebar(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		return m, tea.Quit
	}
	sb, choice, done := m.sidebar.update(msg)
	m.sidebar = sb
	if !done {
		return m, nil
	}
	m.mode = modeChat
	switch {
	case choice == nil:
		return m, nil
	case choice.isNew:
		return m.startConversation()
	default:
		return m.loadConversation(choice.id, false)
	}
}

func (m Model) openCodeViewer(index int) (tea.Model, tea.Cmd) {
	blocks := m.store.CodeBlocks()
	if len(blocks) == 0 {
		m.status = "No code blocks in this conversation"
		return m, nil
	}
	m.mode = modeCode
	m.viewer = newCodeViewer(blocks, index, m.width, m.height, m.renderOpts)
	return m, nil
}

func (m Model) updateCodeViewer(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc", "q", "ctrl+b":
			m.mode = modeChat
			return m, nil
		case "c":
			if loc, ok := m.viewer.current(); ok {
				m.copyBlock(loc.Block)
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewer, cmd = m.viewer.update(msg)
	return m, cmd
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := m.width - 4

	switch m.mode {
	case modeSidebar:
		return m.sidebar.view(m.width, m.height, m.state.ConversationID)
	case modeCode:
		return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(contentWidth), m.viewer.view(m.width))
	}

	var sections []string
	sections = append(sections, m.renderHeader(contentWidth))

	messages := m.viewport.View()
	if len(m.state.Messages) == 0 {
		messages = m.renderWelcome()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messages))

	if m.notice.text != "" {
		body := m.notice.text
		if m.notice.title != "" {
			body = titleStyle.Render(m.notice.title) + "\n" + body
		}
		sections = append(sections, noticeStyle.Width(contentWidth).Render(body))
	}

	var input string
	if m.busy() {
		input = m.spinner.View() + " " + loadingStyle.Render("Waiting for the backend...")
	} else {
		input = lipgloss.JoinVertical(lipgloss.Left, inputLabelStyle.Render("You"), m.textarea.View())
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(input))

	if errText := m.renderError(); errText != "" {
		sections = append(sections, errText)
	}
	sections = append(sections, m.renderStatusBar(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(width int) string {
	title := "new conversation"
	if m.state.Bound() {
		title = models.ConversationSummary{ID: m.state.ConversationID}.DisplayTitle()
	}
	line := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("✦ codechat"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(title),
	)
	if m.state.Summary != "" && m.state.ProjectFolderPath != "" {
		line += "\n" + subtitleStyle.Render(m.state.Summary) +
			hintStyle.Render("  •  "+m.state.ProjectFolderPath)
	}
	return headerStyle.Width(width).Render(line)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		welcomeIconStyle.Width(width).Render("✦"),
		"",
		welcomeTitleStyle.Width(width).Render("Welcome to codechat"),
		"",
		welcomeStyle.Width(width).Render("Type a message below, /help for commands, ctrl+o for conversations"),
	)
	top := max(0, (m.viewport.Height-lipgloss.Height(content))/2)
	return strings.Repeat("\n", top) + content
}

func (m Model) renderError() string {
	switch {
	case m.localErr != nil:
		return FormatError(m.localErr)
	case m.state.Error != "":
		out := errorStyle.Render("⚠ " + m.state.Error)
		if m.state.CanRetry() {
			out += hintStyle.Render("  ctrl+r to retry")
		}
		return out
	}
	return ""
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"^O", "Conversations"},
		{"^B", "Code"},
		{"Esc", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	bar := strings.Join(items, "  │  ")

	if n := len(m.state.Draft.FilePaths); n > 0 {
		bar += statusDescStyle.Render(fmt.Sprintf("  │  %d file(s) attached", n))
	}
	if m.status != "" {
		bar += "  " + activeMarkerStyle.Render(m.status)
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport content from the current state
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	blockNo := 0

	for i, msg := range m.state.Messages {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.IsUser() {
			content.WriteString(userLabelStyle.Render("● "+msg.Sender.Label()) + "\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Text))
			content.WriteString("\n")
			continue
		}

		content.WriteString(assistantLabelStyle.Render("✦ "+msg.Sender.Label()) + "\n")
		body := strings.TrimRight(render.MarkdownOrPlain(msg.Text, m.renderOpts.WithWidth(bubbleWidth-4)), "\n")
		for _, block := range msg.CodeBlocks {
			blockNo++
			body += "\n" + codeRefStyle.Render(render.CodeBlockSummary(blockNo, block))
		}
		content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(body))
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// RunChat starts the chat TUI
func RunChat(ctx context.Context, store *session.Store, backend Backend, opts ...Option) error {
	p := tea.NewProgram(
		NewChatModel(ctx, store, backend, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
