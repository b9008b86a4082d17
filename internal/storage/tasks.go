package storage

import (
	"errors"

	"repnote/internal/domain"
)

// LoadTasks reads the tasks document. Missing or malformed files load as an
// empty category list.
func (g *Gateway) LoadTasks() (domain.TaskDocument, error) {
	var doc domain.TaskDocument
	err := readJSON(g.tasksPath, &doc)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		doc = domain.TaskDocument{}
	case errors.Is(err, domain.ErrMalformedDocument):
		g.log.Warn("tasks document unreadable, showing empty", "error", err)
		doc = domain.TaskDocument{}
	default:
		return domain.TaskDocument{}, err
	}
	doc.Normalize()
	for i := range doc.Categories {
		doc.Categories[i].Icon = g.icon(doc.Categories[i].Icon, g.opts.DefaultCategoryIcon)
	}
	return doc, nil
}

func (g *Gateway) SaveTasks(doc domain.TaskDocument) error {
	doc.Normalize()
	return writeJSON(g.tasksPath, doc)
}

// DefaultCategoryIcon is used for categories created without an icon.
func (g *Gateway) DefaultCategoryIcon() string {
	return g.opts.DefaultCategoryIcon
}
