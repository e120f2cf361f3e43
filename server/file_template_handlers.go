package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/medix-console/access"
	"github.com/jrsteele09/medix-console/api"
	"github.com/jrsteele09/medix-console/auth"
	"github.com/jrsteele09/medix-console/users"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	layoutTemplate  = "layout.html"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"money": func(a api.Amount) string {
		return "$" + a.String()
	},
	"initial": func(name string) string {
		r, _ := utf8.DecodeRuneInString(name)
		if r == utf8.RuneError {
			return "?"
		}
		return strings.ToUpper(string(r))
	},
	"lower": strings.ToLower,
}

// ParseTemplate parses a standalone template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), name)
}

// ParseLayoutTemplate parses a page whose "content" block renders inside the layout
func ParseLayoutTemplate(content string) (*template.Template, error) {
	return template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), layoutTemplate, content)
}

type pageTemplates struct {
	login       *template.Template
	waiting     *template.Template
	dashboard   *template.Template
	placeholder *template.Template
}

func parsePageTemplates() (pageTemplates, error) {
	var (
		p   pageTemplates
		err error
	)
	if p.login, err = ParseTemplate("login.html"); err != nil {
		return p, err
	}
	if p.waiting, err = ParseTemplate("waiting.html"); err != nil {
		return p, err
	}
	if p.dashboard, err = ParseLayoutTemplate("dashboard.html"); err != nil {
		return p, err
	}
	if p.placeholder, err = ParseLayoutTemplate("placeholder.html"); err != nil {
		return p, err
	}
	return p, nil
}

// layoutData is shared by every page rendered inside the layout
type layoutData struct {
	AppName       string
	Title         string
	ActivePath    string
	User          *users.User
	Nav           []access.Page
	Notifications []auth.Notification
	Content       any
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, tmpl *template.Template, title string, content any) {
	session := auth.FromContext(r.Context())
	user := session.User()

	data := layoutData{
		AppName:    s.config.GetAppName(),
		Title:      title,
		ActivePath: r.URL.Path,
		User:       user,
		Content:    content,
	}
	if user != nil {
		data.Nav = s.policy.Navigation(user.Role)
	}
	data.Notifications = session.TakeNotifications()

	s.render(w, tmpl, data)
}

// render executes into a buffer so a template failure never produces half a page
func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderWaiting(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	s.render(w, s.pages.waiting, map[string]any{
		"AppName": s.config.GetAppName(),
		"Path":    r.URL.RequestURI(),
	})
}
