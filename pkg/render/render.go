// Package render prints inkwell data for terminals and pipes.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"

	"github.com/papercomputeco/inkwell/pkg/storage"
)

// DateFormat is how post timestamps are shown.
const DateFormat = "02.01.2006 15:04"

const wrapWidth = 80

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Printer writes styled output when w is a terminal and plain text otherwise.
type Printer struct {
	w   io.Writer
	tty bool
}

// NewPrinter creates a Printer for w.
func NewPrinter(w io.Writer) *Printer {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{w: w, tty: tty}
}

// Markdown renders md with glamour on a terminal, verbatim otherwise.
func (p *Printer) Markdown(md string) error {
	if !p.tty {
		_, err := fmt.Fprintln(p.w, md)
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return fmt.Errorf("could not create markdown renderer: %w", err)
	}

	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("could not render markdown: %w", err)
	}
	_, err = io.WriteString(p.w, out)
	return err
}

// Users prints one line per user.
func (p *Printer) Users(users []*storage.User) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(p.w, "Пользователи не найдены")
		return err
	}
	for _, u := range users {
		name := u.DisplayName()
		if p.tty {
			name = titleStyle.Render(name)
		}
		id := u.ID
		if p.tty {
			id = mutedStyle.Render(id)
		}
		if _, err := fmt.Fprintf(p.w, "%s  %s\n", id, name); err != nil {
			return err
		}
	}
	return nil
}

// Posts prints a user's posts.
func (p *Printer) Posts(posts []*storage.Post, owner string) error {
	if !p.tty {
		_, err := io.WriteString(p.w, FormatPosts(posts, owner))
		return err
	}

	if len(posts) == 0 {
		_, err := fmt.Fprintln(p.w, mutedStyle.Render(FormatPosts(nil, owner)))
		return err
	}

	fmt.Fprintln(p.w, titleStyle.Render(fmt.Sprintf("Посты пользователя %s:", owner)))
	for _, post := range posts {
		fmt.Fprintf(p.w, "\n%s %s\n", mutedStyle.Render(fmt.Sprintf("#%d", post.ID)), titleStyle.Render(post.Name))
		fmt.Fprintln(p.w, mutedStyle.Render(post.CreatedAt.Local().Format(DateFormat)))
		if post.Content != "" {
			fmt.Fprintln(p.w, Preview(post.Content, wrapWidth))
		}
	}
	return nil
}

// FormatPosts is the plain-text listing of a user's posts.
func FormatPosts(posts []*storage.Post, owner string) string {
	if len(posts) == 0 {
		return fmt.Sprintf("У пользователя %s нет постов\n", owner)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Посты пользователя %s:\n\n", owner)
	for _, post := range posts {
		fmt.Fprintf(&b, "📝 *%s*\n", post.Name)
		fmt.Fprintf(&b, "🆔 ID: %d\n", post.ID)
		fmt.Fprintf(&b, "📅 Дата: %s\n\n", post.CreatedAt.Local().Format(DateFormat))
	}
	return b.String()
}

// Preview flattens s to one line no wider than width cells.
func Preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return ansi.Truncate(s, width, "…")
}
