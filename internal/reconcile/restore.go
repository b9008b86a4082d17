package reconcile

import (
	"repnote/internal/domain"
	"repnote/internal/session"
)

// Catalog lists what can be opened.
type Catalog interface {
	ListTopics() ([]domain.Topic, error)
	ListSubjects(topic string) ([]domain.SubjectSummary, error)
}

// TaskCatalog lists task categories with their tasks.
type TaskCatalog interface {
	Categories() ([]domain.TaskCategory, error)
}

// Restored is the part of a saved selection that still exists.
type Restored struct {
	Topic    string
	Subject  string
	Content  *domain.Identity
	Category string
	Task     *domain.TaskRef
}

// RestoreSession re-selects a saved selection in dependency order: topic,
// subject, content row, then category and task. A step whose target is gone
// stops its own chain only; the task chain is tried regardless of the
// content chain.
func (r *Reconciler) RestoreSession(sel session.LastSelection, cat Catalog, tasks TaskCatalog, expanded []int) Restored {
	var out Restored
	r.restoreContent(sel, cat, expanded, &out)
	if tasks != nil {
		restoreTask(sel, tasks, &out)
	}
	r.log.Debug("session restored",
		"topic", out.Topic, "subject", out.Subject, "content", out.Content != nil,
		"category", out.Category, "task", out.Task != nil)
	return out
}

func (r *Reconciler) restoreContent(sel session.LastSelection, cat Catalog, expanded []int, out *Restored) {
	if sel.Topic == "" {
		return
	}
	topics, err := cat.ListTopics()
	if err != nil {
		r.log.Warn("restore: topics unavailable", "error", err)
		return
	}
	if !containsTopic(topics, sel.Topic) {
		return
	}
	out.Topic = sel.Topic

	if sel.Subject == "" {
		return
	}
	subjects, err := cat.ListSubjects(sel.Topic)
	if err != nil {
		r.log.Warn("restore: subjects unavailable", "topic", sel.Topic, "error", err)
		return
	}
	if !containsSubject(subjects, sel.Subject) {
		return
	}
	if _, err := r.Open(sel.Topic, sel.Subject); err != nil {
		r.log.Warn("restore: subject not opened", "topic", sel.Topic, "subject", sel.Subject, "error", err)
		return
	}
	out.Subject = sel.Subject

	if len(expanded) > 0 {
		snap := Snapshot{Expanded: make(map[int]bool, len(expanded))}
		for _, idx := range expanded {
			snap.Expanded[idx] = true
		}
		r.Restore(snap)
	}
	if sel.Content != nil && r.Select(sel.Content) {
		id := *sel.Content
		out.Content = &id
	}
}

func restoreTask(sel session.LastSelection, tasks TaskCatalog, out *Restored) {
	if sel.Category == "" {
		return
	}
	cats, err := tasks.Categories()
	if err != nil {
		return
	}
	if sel.Category == domain.AllTasksCategory {
		out.Category = sel.Category
		if sel.Task == nil {
			return
		}
		for _, c := range cats {
			if c.Name != sel.Task.Category {
				continue
			}
			for _, t := range c.Tasks {
				if t.Name == sel.Task.Name {
					out.Task = &domain.TaskRef{Category: c.Name, Name: t.Name}
					return
				}
			}
		}
		return
	}
	for _, c := range cats {
		if c.Name != sel.Category {
			continue
		}
		out.Category = c.Name
		if sel.Task == nil {
			return
		}
		for _, t := range c.Tasks {
			if t.Name == sel.Task.Name {
				out.Task = &domain.TaskRef{Category: c.Name, Name: t.Name}
				return
			}
		}
		return
	}
}

func containsTopic(topics []domain.Topic, name string) bool {
	for _, t := range topics {
		if t.Name == name {
			return true
		}
	}
	return false
}

func containsSubject(subjects []domain.SubjectSummary, name string) bool {
	for _, s := range subjects {
		if s.Name == name {
			return true
		}
	}
	return false
}
