package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"peoplepulse/internal/dashboard"
	"peoplepulse/internal/models"
	"peoplepulse/internal/navigation"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names
const (
	TemplateLoading = "loading"
	TemplateLogin   = "login"
	TemplateShell   = "shell"
)

// LoadingData feeds the loading screen
type LoadingData struct {
	WatchURL string
}

// LoginData feeds the login screen
type LoginData struct {
	Username  string
	Error     string
	CSRFToken string
	// Remaining is the number of login attempts left before the address is
	// blocked, shown after a rejected attempt when non-zero
	Remaining int
}

// ShellData feeds the authenticated shell
type ShellData struct {
	User        *models.User
	Menu        []navigation.Entry
	Page        navigation.PageID
	HeaderTitle string
	CSRFToken   string
	Dashboard   *dashboard.Summary
}

// NewShellData builds the shell model for user on page
func NewShellData(user *models.User, page navigation.PageID, csrf string, sum *dashboard.Summary) *ShellData {
	menu := navigation.Menu(user.Role)
	return &ShellData{
		User:        user,
		Menu:        menu,
		Page:        page,
		HeaderTitle: navigation.HeaderTitle(menu, page),
		CSRFToken:   csrf,
		Dashboard:   sum,
	}
}

// Renderer renders the embedded templates for echo
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses every screen with the shared base layout
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"isPage": func(a, b navigation.PageID) bool { return a == b },
	}

	screens := map[string][]string{
		TemplateLoading: {"templates/base.html", "templates/loading.html"},
		TemplateLogin:   {"templates/base.html", "templates/login.html"},
		TemplateShell:   {"templates/base.html", "templates/shell.html", "templates/dashboard.html", "templates/placeholder.html"},
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(screens))}
	for name, files := range screens {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parse %s templates: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render implements echo.Renderer
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "base", data)
}
