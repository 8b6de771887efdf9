package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"
)

// Manager renders named templates from a directory, parsing each lazily and
// caching the result.
type Manager struct {
	templatesDir string

	mu    sync.Mutex
	cache map[string]*template.Template
}

func NewManager(templatesDir string) *Manager {
	return &Manager{
		templatesDir: templatesDir,
		cache:        make(map[string]*template.Template),
	}
}

func (m *Manager) Render(templateName string, data any) (string, error) {
	m.mu.Lock()
	tmpl, ok := m.cache[templateName]
	m.mu.Unlock()

	if !ok {
		path := filepath.Join(m.templatesDir, templateName)
		var err error
		tmpl, err = template.ParseFiles(path)
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %w", templateName, err)
		}
		m.mu.Lock()
		m.cache[templateName] = tmpl
		m.mu.Unlock()
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}
