package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/quill/internal/models"
)

const infoTimeLayout = "Mon 2006-01-02 15:04:05 MST"

type styles struct {
	category lipgloss.Style
	branch   lipgloss.Style
	note     lipgloss.Style
	desc     lipgloss.Style
	label    lipgloss.Style
}

// newStyles binds styles to r so colours are dropped when the output is not
// a terminal.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		category: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		branch:   r.NewStyle().Faint(true),
		note:     r.NewStyle(),
		desc:     r.NewStyle().Foreground(lipgloss.Color("8")),
		label:    r.NewStyle().Bold(true),
	}
}

func (st styles) noteLine(n models.Note, delim string) string {
	line := st.note.Render(n.Title)
	if n.Description != "" {
		line += delim + st.desc.Render(n.Description)
	}
	return line
}

// printTree writes every category followed by its notes as tree branches.
func printTree(w io.Writer, st styles, delim string, cats []models.Category, notes map[string][]models.Note) {
	for _, c := range cats {
		fmt.Fprintln(w, st.category.Render(c.Title))
		ns := notes[c.Title]
		for i, n := range ns {
			branch := "├──"
			if i == len(ns)-1 {
				branch = "└──"
			}
			fmt.Fprintf(w, "%s %s\n", st.branch.Render(branch), st.noteLine(n, delim))
		}
	}
}

func printCategoryList(w io.Writer, st styles, cats []models.Category) {
	for _, c := range cats {
		fmt.Fprintln(w, st.category.Render(c.Title))
	}
}

func printNoteList(w io.Writer, st styles, delim string, notes []models.Note) {
	for _, n := range notes {
		fmt.Fprintln(w, st.noteLine(n, delim))
	}
}

func quoteTitles(notes []models.Note) string {
	q := make([]string, len(notes))
	for i, n := range notes {
		q[i] = "'" + n.Title + "'"
	}
	return strings.Join(q, ", ")
}

func printCategoryInfo(w io.Writer, st styles, c models.Category, notes []models.Note) {
	fmt.Fprintf(w, "%s %s\n", st.label.Render("Title:"), c.Title)
	fmt.Fprintf(w, "%s %s\n", st.label.Render("Path:"), c.Path)
	fmt.Fprintf(w, "%s %s\n", st.label.Render("Last modified:"), c.LastModified.In(time.Local).Format(infoTimeLayout))
	fmt.Fprintf(w, "%s %d\n", st.label.Render("Number of notes:"), len(notes))
	fmt.Fprintf(w, "%s %s\n", st.label.Render("Notes:"), quoteTitles(notes))
}

func printNoteInfo(w io.Writer, st styles, n models.Note) {
	fmt.Fprintf(w, "%s %s\n", st.label.Render("Title:"), n.Title)
	if n.Description != "" {
		fmt.Fprintf(w, "%s %s\n", st.label.Render("Description:"), n.Description)
	}
	fmt.Fprintf(w, "%s %s\n", st.label.Render("Path:"), n.Path)
	fmt.Fprintf(w, "%s %s\n", st.label.Render("Last modified:"), n.LastModified.In(time.Local).Format(infoTimeLayout))
	fmt.Fprintf(w, "%s %s\n", st.label.Render("Category:"), n.Category)
}
