package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/justestif/spotify-mood-it/internal/clustering"
	"github.com/justestif/spotify-mood-it/internal/lexicon"
)

// Templates holds parsed pages and fragments. Pages are rendered through the
// "base" layout; partials are rendered on their own for fetch requests.
type Templates struct {
	pages    map[string]*template.Template
	partials map[string]*template.Template
}

// NewTemplates parses layouts/, pages/ and partials/ from templatesFS.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	funcs := defaultFuncs()

	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding layouts: %w", err)
	}
	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding partials: %w", err)
	}
	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding pages: %w", err)
	}

	t := &Templates{
		pages:    make(map[string]*template.Template, len(pages)),
		partials: make(map[string]*template.Template, len(partials)),
	}

	shared := append(append([]string{}, layouts...), partials...)
	for _, page := range pages {
		files := append([]string{page}, shared...)
		tmpl, err := template.New(path.Base(page)).Funcs(funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parsing page %s: %w", page, err)
		}
		t.pages[templateName(page)] = tmpl
	}

	for _, partial := range partials {
		// The root template carries the file's name so Execute runs its body.
		tmpl, err := template.New(path.Base(partial)).Funcs(funcs).ParseFS(templatesFS, partial)
		if err != nil {
			return nil, fmt.Errorf("parsing partial %s: %w", partial, err)
		}
		t.partials[templateName(partial)] = tmpl
	}

	return t, nil
}

// templateName maps "pages/home.html" to "home".
func templateName(file string) string {
	return strings.TrimSuffix(path.Base(file), path.Ext(file))
}

// Render writes page inside the base layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial writes a fragment without the layout.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.Execute(w, data)
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// similarityColor returns an HSL color for a cosine similarity:
		// cool indigo near 0, warm orange near 1.
		"similarityColor": func(similarity float64) string {
			similarity = max(0, min(1, similarity))
			hue := 264 - (similarity * 229)
			return fmt.Sprintf("hsl(%.0f, 70%%, 50%%)", hue)
		},

		// formatDateRange formats a date range as "Jan 2 - Feb 3, 2006"
		"formatDateRange": func(start, end time.Time) string {
			if start.Year() == end.Year() && start.Month() == end.Month() {
				return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("2, 2006"))
			}
			if start.Year() == end.Year() {
				return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
			}
			return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
		},

		// displayMood capitalizes a mood for headings.
		"displayMood": lexicon.DisplayName,

		// add adds two integers (for 1-based indexing in loops)
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	User        *UserData
	CurrentPath string
}

// UserData contains authenticated user information.
type UserData struct {
	ID   string
	Name string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Authenticated    bool
	Moods            []string
	DefaultThreshold float64
}

// GroupsPartialData contains data for the mood groups fragment.
type GroupsPartialData struct {
	Groups       []clustering.Group
	OutlierCount int
}
