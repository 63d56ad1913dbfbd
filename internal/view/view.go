// Package view renders a session as the browser page.
package view

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"sheet-qa/internal/domain"
	"sheet-qa/internal/session"
)

//go:embed page.html
var pageHTML string

var templateFuncs = template.FuncMap{
	"rowClass": func(i int) string {
		if i%2 == 0 {
			return "row-even"
		}
		return "row-odd"
	},
}

var pageTemplate = template.Must(template.New("page.html").Funcs(templateFuncs).Parse(pageHTML))

// Page is the data behind the HTML page.
type Page struct {
	FileUploaded    bool
	Messages        []domain.Message
	PendingQuestion string
	Columns         []string
	Rows            [][]string
	MaxQuestion     int
}

// FromState builds the page for s. The table is only shown once a file has
// been uploaded.
func FromState(s *session.State, maxQuestion int) Page {
	p := Page{
		FileUploaded:    s.FileUploaded,
		Messages:        s.Messages,
		PendingQuestion: s.PendingQuestion,
		MaxQuestion:     maxQuestion,
	}
	if s.FileUploaded && s.Table != nil {
		p.Columns = s.Table.Columns()
		p.Rows = s.Table.Rows()
	}
	return p
}

func Render(w io.Writer, p Page) error {
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("view: render page: %w", err)
	}
	return nil
}
