package storage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"repnote/internal/domain"
	"repnote/internal/repetition"
)

// ListSubjects returns the subjects of a topic sorted by name. Only the
// cached metadata is read; content is not aggregated here.
func (g *Gateway) ListSubjects(topic string) ([]domain.SubjectSummary, error) {
	if err := g.requireTopic(topic); err != nil {
		return nil, err
	}
	dir := g.topicPath(topic)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.NewIOError("readdir", dir, err)
	}
	out := make([]domain.SubjectSummary, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == topicConfigName || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, subjectExt) {
			continue
		}
		subject := strings.TrimSuffix(name, subjectExt)
		doc, err := g.LoadSubject(topic, subject)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.SubjectSummary{
			Name:         subject,
			Icon:         g.icon(doc.Metadata.Icon, g.opts.DefaultSubjectIcon),
			EarliestDate: doc.Metadata.EarliestDate,
			EarliestCode: doc.Metadata.EarliestCode,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// LoadSubject reads a subject document. Missing and unparsable files load as
// an empty document; nothing is written back until an explicit save.
func (g *Gateway) LoadSubject(topic, subject string) (domain.Document, error) {
	path := g.subjectPath(topic, subject)
	var doc domain.Document
	err := readJSON(path, &doc)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		doc = domain.Document{}
	case errors.Is(err, domain.ErrMalformedDocument):
		g.log.Warn("subject unreadable, showing empty", "topic", topic, "subject", subject, "error", err)
		doc = domain.Document{}
	default:
		return domain.Document{}, err
	}
	doc.Normalize()
	return doc, nil
}

// SaveSubject recomputes the metadata rollup and writes the whole document.
// It is the only way a subject reaches disk, so the cache cannot go stale.
func (g *Gateway) SaveSubject(topic, subject string, doc *domain.Document) error {
	if _, err := validSubjectName(subject); err != nil {
		return err
	}
	if err := g.requireTopic(topic); err != nil {
		return err
	}
	doc.Normalize()
	repetition.RefreshMetadata(doc)
	if err := writeJSON(g.subjectPath(topic, subject), doc); err != nil {
		return err
	}
	g.log.Debug("subject saved", "topic", topic, "subject", subject, "discussions", len(doc.Content))
	return nil
}

// CreateSubject writes an empty document. ErrConflict if it exists.
func (g *Gateway) CreateSubject(topic, name string) error {
	name, err := validSubjectName(name)
	if err != nil {
		return err
	}
	if err := g.requireTopic(topic); err != nil {
		return err
	}
	path := g.subjectPath(topic, name)
	ok, err := exists(path)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: subject %q already exists in %q", domain.ErrConflict, name, topic)
	}
	doc := domain.NewDocument(g.opts.DefaultSubjectIcon)
	if err := g.SaveSubject(topic, name, &doc); err != nil {
		return err
	}
	g.log.Info("subject created", "topic", topic, "subject", name)
	return nil
}

func (g *Gateway) RenameSubject(topic, oldName, newName string) error {
	newName, err := validSubjectName(newName)
	if err != nil {
		return err
	}
	if err := g.requireSubject(topic, oldName); err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	dst := g.subjectPath(topic, newName)
	ok, err := exists(dst)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: subject %q already exists in %q", domain.ErrConflict, newName, topic)
	}
	if err := os.Rename(g.subjectPath(topic, oldName), dst); err != nil {
		return domain.NewIOError("rename", dst, err)
	}
	g.log.Info("subject renamed", "topic", topic, "from", oldName, "to", newName)
	return nil
}

func (g *Gateway) DeleteSubject(topic, name string) error {
	if err := g.requireSubject(topic, name); err != nil {
		return err
	}
	path := g.subjectPath(topic, name)
	if err := os.Remove(path); err != nil {
		return domain.NewIOError("remove", path, err)
	}
	g.log.Info("subject deleted", "topic", topic, "subject", name)
	return nil
}

func (g *Gateway) requireSubject(topic, name string) error {
	if err := g.requireTopic(topic); err != nil {
		return err
	}
	if _, err := ValidateName(name); err != nil {
		return err
	}
	ok, err := exists(g.subjectPath(topic, name))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: subject %q in %q", domain.ErrNotFound, name, topic)
	}
	return nil
}

// validSubjectName also refuses the name whose file would be the topic's
// config sidecar.
func validSubjectName(name string) (string, error) {
	name, err := ValidateName(name)
	if err != nil {
		return "", err
	}
	if name+subjectExt == topicConfigName {
		return "", fmt.Errorf("%w: subject name %q is reserved", domain.ErrValidation, name)
	}
	return name, nil
}
