package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adrianmross/geo-tree/internal/logger"
	"github.com/adrianmross/geo-tree/pkg/browser"
	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/geo"
	"github.com/adrianmross/geo-tree/pkg/query"
)

var (
	stagedColor = lipgloss.Color("205")
	infoColor   = lipgloss.Color("244")
	errorColor  = lipgloss.Color("196")
)

var (
	infoStyle     = lipgloss.NewStyle().Foreground(infoColor)
	selectedStyle = lipgloss.NewStyle().Foreground(stagedColor).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
)

const (
	selectTimeout  = 30 * time.Second
	restoreTimeout = 60 * time.Second
	// defaultBookmark is used when saving without a current bookmark.
	defaultBookmark = "last"
	// jumpResults caps the fuzzy matches listed under the jump prompt.
	jumpResults = 5
)

func newTuiCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool
	var name string
	cmd := &cobra.Command{
		Use:   "tui [query]",
		Short: "Interactive region/country/state/city browser",
		Long: "Browse the region > country > state > city tree. Children load the first time a node is selected.\n" +
			"The optional query (e.g. \"?region=Europe&country=France\" or a full URL) is restored on start;\n" +
			"without it the current bookmark is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			if name == "" {
				name = cfg.CurrentBookmark
			}
			if name == "" {
				name = defaultBookmark
			}
			start, err := startParams(cfg, args)
			if err != nil {
				return err
			}
			if !isTerminal() {
				return runPromptFallback(cmd, path, cfg, name)
			}
			if _, err := logger.SetupForTUI(); err != nil {
				return err
			}
			b, closeFn, err := newBrowser(cfg.Options)
			if err != nil {
				return err
			}
			defer closeFn()

			m := newTuiModel(cfg, path, name, b, start)
			finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			if err != nil {
				return err
			}
			fm := finalModel.(tuiModel)
			if fm.finalized && fm.err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Selected %s (saved as %s)\n", fm.state.Params.Encode(), fm.bookmark)
			}
			return fm.err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Bookmark to save the selection under (default: current bookmark)")
	return cmd
}

// startParams picks the selection to restore: the argument when given,
// otherwise the current bookmark.
func startParams(cfg config.Config, args []string) (query.Params, error) {
	if len(args) == 1 {
		return query.Parse(args[0])
	}
	if b, err := currentBookmark(cfg); err == nil {
		return b.Params()
	}
	return query.Params{}, nil
}

// isTerminal checks if stdout is a TTY.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// runPromptFallback provides a non-TTY prompt-based flow: pick a region,
// then drill one level at a time until a city or 0 is chosen.
func runPromptFallback(cmd *cobra.Command, path string, cfg config.Config, name string) error {
	b, closeFn, err := newBrowser(cfg.Options)
	if err != nil {
		return err
	}
	defer closeFn()

	roots := b.Tree().Roots()
	fmt.Fprintln(cmd.OutOrStdout(), "Select region:")
	for i, n := range roots {
		fmt.Fprintf(cmd.OutOrStdout(), "%d) %s\n", i+1, n.DisplayName())
	}
	idx, err := readChoice(cmd, len(roots))
	if err != nil {
		return err
	}
	key := roots[idx].Key()
	for {
		node, err := selectWithTimeout(cmd.Context(), b, key)
		if err != nil {
			return err
		}
		next, ok := node.Level.Next()
		if !ok {
			break
		}
		if len(node.Children) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No %s under %s; keeping current selection.\n", strings.ToLower(next.String()), node.DisplayName())
			break
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Select %s (or 0 to keep current):\n", strings.ToLower(next.String()))
		fmt.Fprintf(cmd.OutOrStdout(), "0) stay at %s\n", node.DisplayName())
		for i, c := range node.Children {
			fmt.Fprintf(cmd.OutOrStdout(), "%d) %s\n", i+1, c.DisplayName())
		}
		cidx, err := readChoiceZero(cmd, len(node.Children))
		if err != nil {
			return err
		}
		if cidx == -1 {
			break
		}
		key = node.Children[cidx].Key()
	}
	p := b.Params()
	if err := saveSelection(path, &cfg, name, p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Selected %s (saved as %s)\n", p.Encode(), name)
	return nil
}

func selectWithTimeout(ctx context.Context, b *browser.Browser, key string) (geo.Node, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, selectTimeout)
	defer cancel()
	return b.Select(ctx, key)
}

func readChoice(cmd *cobra.Command, n int) (int, error) {
	var choice int
	if _, err := fmt.Fscan(cmd.InOrStdin(), &choice); err != nil {
		return 0, err
	}
	if choice < 1 || choice > n {
		return 0, fmt.Errorf("invalid choice")
	}
	return choice - 1, nil
}

func readChoiceZero(cmd *cobra.Command, n int) (int, error) {
	var choice int
	if _, err := fmt.Fscan(cmd.InOrStdin(), &choice); err != nil {
		return 0, err
	}
	if choice == 0 {
		return -1, nil
	}
	if choice < 1 || choice > n {
		return 0, fmt.Errorf("invalid choice")
	}
	return choice - 1, nil
}

// saveSelection stores p under name and makes it the current bookmark.
func saveSelection(path string, cfg *config.Config, name string, p query.Params) error {
	b, err := cfg.GetBookmark(name)
	if err != nil {
		b = config.Bookmark{Name: name}
	}
	b.Query = p.Encode()
	if err := b.Validate(); err != nil {
		return err
	}
	if err := cfg.UpsertBookmark(b); err != nil {
		return err
	}
	cfg.CurrentBookmark = name
	return config.Save(path, *cfg)
}

type selectResultMsg struct {
	key    string
	node   geo.Node
	expand bool
	err    error
}

type restoreResultMsg struct {
	chain []geo.Node
	err   error
}

type tuiModel struct {
	browser   *browser.Browser
	cfg       config.Config
	cfgPath   string
	bookmark  string
	state     browser.State
	accordion *browser.Accordion
	rows      []browser.Row
	cursor    int
	offset    int
	width     int
	height    int
	loading   map[string]bool // keys with a request issued from this model
	status    string
	err       error
	finalized bool
	jumping   bool
	jump      textinput.Model
	matches   []jumpMatch
	initCmd   tea.Cmd
}

type jumpMatch struct {
	key  string
	path string
}

func newTuiModel(cfg config.Config, cfgPath, bookmark string, b *browser.Browser, start query.Params) tuiModel {
	// Set a reasonable default size to avoid zero-height rendering when no resize event arrives.
	defaultWidth, defaultHeight := 80, 20
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		if w > 0 {
			defaultWidth = w
		}
		if h > 0 {
			defaultHeight = h - 2
		}
	}
	if defaultWidth < 40 {
		defaultWidth = 40
	}
	if defaultHeight < 10 {
		defaultHeight = 10
	}
	ti := textinput.New()
	ti.Prompt = "jump> "
	ti.Placeholder = "name of a loaded place"
	ti.CharLimit = 64

	m := tuiModel{
		browser:   b,
		cfg:       cfg,
		cfgPath:   cfgPath,
		bookmark:  bookmark,
		accordion: browser.NewAccordion(),
		width:     defaultWidth,
		height:    defaultHeight,
		loading:   make(map[string]bool),
		jump:      ti,
	}
	m.refresh()
	if start.Region != "" {
		m.status = "Restoring " + start.Encode() + "..."
		m.initCmd = restoreCmd(b, start)
	}
	return m
}

func (m tuiModel) Init() tea.Cmd {
	return m.initCmd
}

// refresh takes a new snapshot and rebuilds the visible rows.
func (m *tuiModel) refresh() {
	m.state = m.browser.State()
	m.rows = browser.Rows(m.state, m.accordion)
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scrollToCursor()
}

func (m *tuiModel) listHeight() int {
	h := m.height - 4
	if m.jumping {
		h -= jumpResults + 1
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *tuiModel) scrollToCursor() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// moveTo puts the cursor on key, opening its ancestors so it is visible.
func (m *tuiModel) moveTo(key string) {
	chain, ok := m.state.Tree.Chain(key)
	if !ok {
		return
	}
	for _, n := range chain[:len(chain)-1] {
		m.accordion.Open(m.state.Tree, n.Key())
	}
	m.refresh()
	for i, r := range m.rows {
		if r.Node.Key() == key {
			m.cursor = i
			break
		}
	}
	m.scrollToCursor()
}

func (m tuiModel) currentRow() (browser.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return browser.Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.scrollToCursor()
		return m, nil
	case restoreResultMsg:
		m.refresh()
		if errors.Is(msg.err, browser.ErrSuperseded) {
			return m, nil
		}
		if len(msg.chain) > 0 {
			last := msg.chain[len(msg.chain)-1]
			m.accordion.Reveal(m.state.Tree, last.Key())
			m.moveTo(last.Key())
		}
		m.status = ""
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
		}
		return m, nil
	case selectResultMsg:
		delete(m.loading, msg.key)
		if errors.Is(msg.err, browser.ErrSuperseded) {
			m.refresh()
			return m, nil
		}
		if msg.err != nil {
			m.status = fmt.Sprintf("error: %v (r to retry)", msg.err)
			m.refresh()
			return m, nil
		}
		m.status = ""
		if msg.expand && !msg.node.IsLeaf() {
			m.accordion.Open(m.browser.Tree(), msg.key)
		}
		m.refresh()
		m.moveTo(msg.key)
		return m, nil
	case tea.KeyMsg:
		if m.jumping {
			return m.updateJump(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m tuiModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.scrollToCursor()
		return m, nil
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		m.scrollToCursor()
		return m, nil
	case "home":
		m.cursor = 0
		m.scrollToCursor()
		return m, nil
	case "end":
		m.cursor = len(m.rows) - 1
		m.scrollToCursor()
		return m, nil
	case "enter":
		row, ok := m.currentRow()
		if !ok {
			return m, nil
		}
		// a loaded section that is open, or already selected, just folds
		if row.Open || (row.Selected && row.Node.Loaded && !row.Node.IsLeaf()) {
			m.accordion.Toggle(m.state.Tree, row.Node.Key())
			m.refresh()
			return m, nil
		}
		return m.issueSelect(row, true, false)
	case "right", "l":
		row, ok := m.currentRow()
		if !ok {
			return m, nil
		}
		if row.Open {
			if len(row.Node.Children) > 0 && m.cursor < len(m.rows)-1 {
				m.cursor++
				m.scrollToCursor()
			}
			return m, nil
		}
		return m.issueSelect(row, true, false)
	case "left", "h", "backspace":
		row, ok := m.currentRow()
		if !ok {
			return m, nil
		}
		if row.Open {
			m.accordion.Close(row.Node.Key())
			m.refresh()
			return m, nil
		}
		chain, ok := m.state.Tree.Chain(row.Node.Key())
		if ok && len(chain) > 1 {
			m.moveTo(chain[len(chain)-2].Key())
		}
		return m, nil
	case " ":
		row, ok := m.currentRow()
		if !ok {
			return m, nil
		}
		return m.issueSelect(row, false, false)
	case "r":
		row, ok := m.currentRow()
		if !ok || row.Err == nil {
			return m, nil
		}
		return m.issueSelect(row, true, true)
	case "/":
		m.jumping = true
		m.jump.SetValue("")
		m.matches = nil
		m.scrollToCursor()
		return m, m.jump.Focus()
	case "q", "ctrl+s":
		return m.saveAndQuit()
	case "esc", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m tuiModel) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.jumping = false
		m.jump.Blur()
		m.scrollToCursor()
		return m, nil
	case "enter":
		m.jumping = false
		m.jump.Blur()
		if len(m.matches) > 0 {
			m.moveTo(m.matches[0].key)
		} else {
			m.status = fmt.Sprintf("no loaded place matches %q", m.jump.Value())
		}
		m.scrollToCursor()
		return m, nil
	}
	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	m.matches = fuzzyMatches(m.state.Tree, m.jump.Value(), jumpResults)
	return m, cmd
}

// issueSelect starts a Select (or Retry) for row in the background.
func (m tuiModel) issueSelect(row browser.Row, expand, retry bool) (tea.Model, tea.Cmd) {
	key := row.Node.Key()
	if !row.Node.Loaded && !row.Node.IsLeaf() {
		m.loading[key] = true
		m.status = "Loading " + row.Node.DisplayName() + "..."
	}
	return m, selectCmd(m.browser, key, expand, retry)
}

func selectCmd(b *browser.Browser, key string, expand, retry bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), selectTimeout)
		defer cancel()
		var node geo.Node
		var err error
		if retry {
			node, err = b.Retry(ctx, key)
		} else {
			node, err = b.Select(ctx, key)
		}
		return selectResultMsg{key: key, node: node, expand: expand, err: err}
	}
}

func restoreCmd(b *browser.Browser, p query.Params) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()
		chain, err := b.Restore(ctx, p)
		return restoreResultMsg{chain: chain, err: err}
	}
}

// saveAndQuit stores the current selection as the bookmark and exits.
func (m tuiModel) saveAndQuit() (tea.Model, tea.Cmd) {
	p := m.state.Params
	if p.Region == "" {
		m.status = "nothing selected yet"
		return m, nil
	}
	m.finalized = true
	if err := saveSelection(m.cfgPath, &m.cfg, m.bookmark, p); err != nil {
		m.err = err
	}
	return m, tea.Quit
}

// fuzzyMatches ranks every loaded node by name against pattern.
func fuzzyMatches(tree geo.Tree, pattern string, limit int) []jumpMatch {
	if strings.TrimSpace(pattern) == "" {
		return nil
	}
	nodes := allNodes(tree)
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.DisplayName()
	}
	found := fuzzy.Find(pattern, names)
	if len(found) > limit {
		found = found[:limit]
	}
	out := make([]jumpMatch, 0, len(found))
	for _, f := range found {
		n := nodes[f.Index]
		path := n.DisplayName()
		if chain, ok := tree.Chain(n.Key()); ok {
			parts := make([]string, len(chain))
			for i, c := range chain {
				parts[i] = c.DisplayName()
			}
			path = strings.Join(parts, " > ")
		}
		out = append(out, jumpMatch{key: n.Key(), path: path})
	}
	return out
}

// allNodes lists every node of tree in pre-order.
func allNodes(tree geo.Tree) []geo.Node {
	roots := tree.Roots()
	stack := make([]geo.Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	var out []geo.Node
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

func (m tuiModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("error: %v", m.err)
	}
	if m.finalized {
		return fmt.Sprintf("Selected %s\n", m.state.Params.Encode())
	}
	var sb strings.Builder
	sb.WriteString(infoStyle.Render("enter/→ expand • ← collapse • space select • / jump • r retry • q save • esc quit"))
	sb.WriteByte('\n')
	sb.WriteString(infoStyle.Render(compactMeta(m)))
	sb.WriteByte('\n')

	h := m.listHeight()
	end := m.offset + h
	if end > len(m.rows) {
		end = len(m.rows)
	}
	for i := m.offset; i < end; i++ {
		line := m.renderRow(m.rows[i])
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if m.jumping {
		sb.WriteString(m.jump.View())
		sb.WriteByte('\n')
		for _, jm := range m.matches {
			sb.WriteString(infoStyle.Render("  " + jm.path))
			sb.WriteByte('\n')
		}
	}
	if m.status != "" {
		if strings.HasPrefix(m.status, "error") {
			sb.WriteString(errorStyle.Render(m.status))
		} else {
			sb.WriteString(m.status)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (m tuiModel) renderRow(r browser.Row) string {
	marker := "▸"
	switch {
	case r.Node.IsLeaf():
		marker = "•"
	case r.Open:
		marker = "▾"
	}
	line := strings.Repeat("  ", r.Depth) + marker + " " + r.Node.DisplayName()
	if r.Node.Loaded && len(r.Node.Children) == 0 && !r.Node.IsLeaf() {
		line += infoStyle.Render(" (empty)")
	}
	if r.Selected {
		line = selectedStyle.Render("[*] " + line)
	}
	if r.Pending || m.loading[r.Node.Key()] {
		line += infoStyle.Render(" loading…")
	}
	if r.Err != nil {
		line += errorStyle.Render(" [failed: r to retry]")
	}
	return line
}

func compactMeta(m tuiModel) string {
	q := m.state.Params.Encode()
	if q == "" {
		q = "-"
	} else {
		q = "?" + q
	}
	filter := "off"
	if m.jumping {
		filter = "on"
	}
	return fmt.Sprintf("query:%s | bookmark:%s | loaded:%d | jump:%s", q, m.bookmark, m.state.Tree.Count(), filter)
}
