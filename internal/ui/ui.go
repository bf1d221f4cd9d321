package ui

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/jdefrancesco/imgDitto/internal/dfs"
	"github.com/jdefrancesco/imgDitto/internal/dmap"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"
	"github.com/jdefrancesco/imgDitto/internal/remove"
	"github.com/jdefrancesco/imgDitto/pkg/utils"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Styles using Lip Gloss
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("35")).
			Padding(0, 1)

	normalFileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	markedFileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("240")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

type sortMode int

const (
	sortByTotalSize sortMode = iota
	sortByCount
	sortByPath
)

func (s sortMode) String() string {
	switch s {
	case sortByCount:
		return "count"
	case sortByPath:
		return "path"
	}
	return "size"
}

// fileEntry is one secondary duplicate.
type fileEntry struct {
	Path   string
	Size   uint64
	Marked bool
	// Status is set once a deletion was attempted.
	Status string
}

// duplicateGroup is a primary image and its duplicates. The primary itself
// is never offered for deletion.
type duplicateGroup struct {
	Title    string
	TotalSz  uint64
	Files    []*fileEntry
	Expanded bool
}

// row addresses a visible line: a group header when file is -1.
type row struct {
	group int
	file  int
}

// model holds the state of the TUI
type model struct {
	ctx     context.Context
	remover remove.Remover

	groups   []*duplicateGroup
	rows     []row
	cursor   int
	sortMode sortMode
	width    int

	showingDialog bool
	dialogInput   string
	dialogCode    string
	dialogError   string
	status        string
	quitting      bool
}

// LaunchTUI shows the duplicates in m for review. Every duplicate starts
// out marked; confirmed deletions go through r.
func LaunchTUI(ctx context.Context, m *dmap.Dmap, r remove.Remover) error {
	p := tea.NewProgram(initialModel(ctx, m, r), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run review UI: %w", err)
	}
	return nil
}

func initialModel(ctx context.Context, m *dmap.Dmap, r remove.Remover) *model {
	mod := &model{
		ctx:     ctx,
		remover: r,
		groups:  buildGroups(m),
		width:   100,
	}
	mod.sortGroups()
	mod.rebuildRows()
	return mod
}

// buildGroups turns the mapping into display groups with all duplicates
// marked.
func buildGroups(m *dmap.Dmap) []*duplicateGroup {
	if m == nil {
		dsklog.Dlogger.Debug("No mapping to review")
		return nil
	}

	var groups []*duplicateGroup
	for _, primary := range m.Primaries() {
		dups, _ := m.Get(primary)
		g := &duplicateGroup{Title: primary, Expanded: true}
		for _, d := range dups {
			size := dfs.GetFileSize(d)
			g.Files = append(g.Files, &fileEntry{Path: d, Size: size, Marked: true})
			g.TotalSz += size
		}
		groups = append(groups, g)
	}
	return groups
}

func (m *model) sortGroups() {
	sort.SliceStable(m.groups, func(i, j int) bool {
		a, b := m.groups[i], m.groups[j]
		switch m.sortMode {
		case sortByCount:
			if len(a.Files) != len(b.Files) {
				return len(a.Files) > len(b.Files)
			}
		case sortByPath:
			return a.Title < b.Title
		default:
			if a.TotalSz != b.TotalSz {
				return a.TotalSz > b.TotalSz
			}
		}
		return a.Title < b.Title
	})
}

func (m *model) rebuildRows() {
	m.rows = m.rows[:0]
	for gi, g := range m.groups {
		m.rows = append(m.rows, row{group: gi, file: -1})
		if !g.Expanded {
			continue
		}
		for fi := range g.Files {
			m.rows = append(m.rows, row{group: gi, file: fi})
		}
	}
	m.cursor = max(0, min(m.cursor, len(m.rows)-1))
}

// marked returns the duplicates still marked and not yet handled.
func (m *model) marked() []*fileEntry {
	var out []*fileEntry
	for _, g := range m.groups {
		for _, f := range g.Files {
			if f.Marked && f.Status == "" {
				out = append(out, f)
			}
		}
	}
	return out
}

// Init is called when the program starts
func (m *model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showingDialog {
		return m.updateDialog(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}

		case "enter", " ":
			if r, ok := m.current(); ok && r.file < 0 {
				g := m.groups[r.group]
				g.Expanded = !g.Expanded
				m.rebuildRows()
			}

		case "m":
			if r, ok := m.current(); ok && r.file >= 0 {
				f := m.groups[r.group].Files[r.file]
				if f.Status == "" {
					f.Marked = !f.Marked
				}
			}

		case "s":
			m.sortMode = (m.sortMode + 1) % 3
			m.sortGroups()
			m.rebuildRows()

		case "d":
			if len(m.marked()) > 0 {
				m.showingDialog = true
				m.dialogCode = GenConfirmationCode()
				m.dialogInput = ""
				m.dialogError = ""
			}
		}
	}

	return m, nil
}

func (m *model) current() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// updateDialog handles updates when the delete confirmation dialog is shown
func (m *model) updateDialog(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "esc":
		m.showingDialog = false
		m.dialogInput = ""
		m.dialogError = ""

	case "enter":
		if m.dialogInput == m.dialogCode {
			m.performDeletion()
			m.showingDialog = false
			m.dialogInput = ""
			m.dialogError = ""
		} else {
			m.dialogError = "Incorrect code. Try again."
			m.dialogInput = ""
		}

	case "backspace":
		if len(m.dialogInput) > 0 {
			m.dialogInput = m.dialogInput[:len(m.dialogInput)-1]
		}

	default:
		s := key.String()
		if len(s) == 1 && len(m.dialogInput) < len(m.dialogCode) && utils.IsAlphanumeric(rune(s[0])) {
			m.dialogInput += s
		}
	}

	return m, nil
}

// performDeletion hands the marked duplicates to the remover and records
// the result on each entry.
func (m *model) performDeletion() {
	entries := m.marked()
	paths := make([]string, len(entries))
	for i, f := range entries {
		paths[i] = f.Path
	}

	sum, err := m.remover.RemovePaths(m.ctx, paths)
	if err != nil {
		dsklog.Dlogger.Errorf("Deletion interrupted: %v", err)
	}

	done := make(map[string]string, len(paths))
	for _, p := range sum.Removed {
		done[p] = "DELETED"
		if sum.DryRun {
			done[p] = "DRY-RUN"
		}
	}
	for _, p := range sum.Skipped {
		done[p] = "GONE"
	}
	for p := range sum.Failed {
		done[p] = "ERROR"
	}
	for _, f := range entries {
		f.Status = done[f.Path]
	}

	m.status = fmt.Sprintf("%d removed, %d already gone, %d failed (%s)",
		len(sum.Removed), len(sum.Skipped), len(sum.Failed), utils.DisplaySize(sum.Bytes))
}

// View renders the UI
func (m *model) View() string {
	if m.quitting {
		return ""
	}

	if m.showingDialog {
		return m.renderDialog()
	}

	var b strings.Builder

	title := titleStyle.Render("imgDitto: Review Duplicate Images")
	help := helpStyle.Render(fmt.Sprintf("[m=mark, d=delete, s=sort (%s), q=quit, ↑↓=navigate, enter=expand/collapse]", m.sortMode))
	b.WriteString(title + "\n")
	b.WriteString(help + "\n\n")

	if len(m.groups) == 0 {
		b.WriteString(normalFileStyle.Render("No duplicates found."))
	}

	for i, r := range m.rows {
		b.WriteString(m.renderRow(r, i == m.cursor))
		b.WriteString("\n")
	}

	if n := len(m.marked()); n > 0 {
		b.WriteString(helpStyle.Render(fmt.Sprintf("\n%d file(s) marked for deletion", n)))
	}
	if m.status != "" {
		b.WriteString("\n" + headerStyle.Render(m.status))
	}

	return borderStyle.Render(b.String())
}

func (m *model) renderRow(r row, selected bool) string {
	g := m.groups[r.group]
	maxWidth := max(m.width-12, 20)

	var text string
	var style lipgloss.Style
	if r.file < 0 {
		prefix := "▶ "
		if g.Expanded {
			prefix = "▼ "
		}
		header := fmt.Sprintf("%s (%d duplicates, %s)", g.Title, len(g.Files), utils.DisplaySize(g.TotalSz))
		text = prefix + runewidth.Truncate(header, maxWidth, "…")
		style = headerStyle
	} else {
		f := g.Files[r.file]
		mark := "[ ] "
		if f.Marked {
			mark = "[x] "
		}
		if f.Status != "" {
			mark = "[" + f.Status + "] "
		}
		text = "    " + mark + runewidth.Truncate(f.Path, maxWidth-runewidth.StringWidth(mark), "…")
		style = normalFileStyle
		if f.Marked {
			style = markedFileStyle
		}
	}

	if selected {
		style = style.Inherit(selectedStyle)
	}
	return style.Render(text)
}

// renderDialog renders the delete confirmation dialog
func (m *model) renderDialog() string {
	var b strings.Builder

	dialogStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(1, 2).
		Width(60)

	verb := "delete"
	if m.remover.DryRun {
		verb = "dry-run delete"
	}
	b.WriteString(fmt.Sprintf("Type the confirmation code below to %s %d file(s):\n\n", verb, len(m.marked())))
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true).Render(m.dialogCode))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Code: %s\n", m.dialogInput))

	if m.dialogError != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.dialogError))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("[enter=confirm, esc=cancel]"))

	return lipgloss.Place(
		80, 24,
		lipgloss.Center, lipgloss.Center,
		dialogStyle.Render(b.String()),
	)
}

// GenConfirmationCode generates a random alphanumeric confirmation code
// user will need to type to confirm the deletion of files.
func GenConfirmationCode() string {

	const kAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// #nosec G404 -- used intentionally. Not being used for crypto just UX.
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	length := r.Intn(4) + 5 // Random length between 5 and 8
	code := make([]byte, length)

	for i := range code {
		code[i] = kAlnum[r.Intn(len(kAlnum))]
	}

	return string(code)

}
