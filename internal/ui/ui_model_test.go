package ui

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jdefrancesco/imgDitto/internal/dmap"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"
	"github.com/jdefrancesco/imgDitto/internal/remove"

	tea "github.com/charmbracelet/bubbletea"
)

func TestMain(m *testing.M) {
	dsklog.InitializeDlogger(os.DevNull)
	os.Exit(m.Run())
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeCode(m *model, code string) {
	for _, r := range code {
		m.Update(key(string(r)))
	}
}

// reviewFixture creates one primary with two on-disk duplicates.
func reviewFixture(t *testing.T) (*dmap.Dmap, []string) {
	t.Helper()
	dir := t.TempDir()
	var dups []string
	for _, name := range []string{"dup1.jpg", "dup2.jpg"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("pixels"), 0o600); err != nil {
			t.Fatal(err)
		}
		dups = append(dups, p)
	}
	m, err := dmap.NewDmap()
	if err != nil {
		t.Fatal(err)
	}
	m.Add(filepath.Join(dir, "primary.jpg"), dups)
	return m, dups
}

func TestInitialModelMarksDuplicates(t *testing.T) {
	dm, dups := reviewFixture(t)
	m := initialModel(context.Background(), dm, remove.Remover{DryRun: true})

	if len(m.groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(m.groups))
	}
	if got := len(m.marked()); got != len(dups) {
		t.Fatalf("marked = %d, want %d", got, len(dups))
	}
	// header plus two files
	if len(m.rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(m.rows))
	}
	if m.groups[0].TotalSz != uint64(2*len("pixels")) {
		t.Fatalf("TotalSz = %d", m.groups[0].TotalSz)
	}
}

func TestToggleMarkAndCollapse(t *testing.T) {
	dm, _ := reviewFixture(t)
	m := initialModel(context.Background(), dm, remove.Remover{DryRun: true})

	m.Update(key("j"))
	m.Update(key("m"))
	if got := len(m.marked()); got != 1 {
		t.Fatalf("marked after toggle = %d, want 1", got)
	}

	m.Update(key("k"))
	m.Update(key("enter"))
	if len(m.rows) != 1 {
		t.Fatalf("rows after collapse = %d, want 1", len(m.rows))
	}
}

func TestDeleteRequiresConfirmationCode(t *testing.T) {
	dm, dups := reviewFixture(t)
	m := initialModel(context.Background(), dm, remove.Remover{})

	m.Update(key("d"))
	if !m.showingDialog {
		t.Fatal("dialog not shown")
	}

	typeCode(m, "!!")
	if m.dialogInput != "" {
		t.Fatalf("non-alphanumeric input accepted: %q", m.dialogInput)
	}

	typeCode(m, "wrong")
	m.Update(key("enter"))
	if m.dialogError == "" || !m.showingDialog {
		t.Fatal("wrong code was accepted")
	}
	for _, p := range dups {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s removed before confirmation", p)
		}
	}

	typeCode(m, m.dialogCode)
	m.Update(key("enter"))
	if m.showingDialog {
		t.Fatal("dialog still shown after correct code")
	}
	for _, p := range dups {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s still exists", p)
		}
	}
	for _, f := range m.groups[0].Files {
		if f.Status != "DELETED" {
			t.Fatalf("%s status = %q", f.Path, f.Status)
		}
	}
	if len(m.marked()) != 0 {
		t.Fatal("handled entries still counted as marked")
	}
}

func TestDryRunDeletionKeepsFiles(t *testing.T) {
	dm, dups := reviewFixture(t)
	m := initialModel(context.Background(), dm, remove.Remover{DryRun: true})

	m.Update(key("d"))
	typeCode(m, m.dialogCode)
	m.Update(key("enter"))

	for _, p := range dups {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("dry run removed %s", p)
		}
	}
	if got := m.groups[0].Files[0].Status; got != "DRY-RUN" {
		t.Fatalf("status = %q, want DRY-RUN", got)
	}
}

func TestEmptyMappingView(t *testing.T) {
	dm, _ := dmap.NewDmap()
	m := initialModel(context.Background(), dm, remove.Remover{})
	m.Update(key("d"))
	if m.showingDialog {
		t.Fatal("dialog opened with nothing marked")
	}
	if m.View() == "" {
		t.Fatal("empty view")
	}
}
