package tasks

import (
	"fmt"
	"strings"
	"time"

	"repnote/internal/domain"
	"repnote/internal/logger"
)

// Store reads and writes the whole tasks document.
type Store interface {
	LoadTasks() (domain.TaskDocument, error)
	SaveTasks(doc domain.TaskDocument) error
}

// Entry is a task together with the category it lives in, as listed by the
// all-tasks view.
type Entry struct {
	Category string
	Task     domain.Task
}

// Service edits task categories and tasks. Every call loads the document,
// changes it and saves it back; nothing is cached between calls.
type Service struct {
	store       Store
	defaultIcon string
	log         *logger.Logger
	now         func() time.Time
}

func NewService(store Store, defaultIcon string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, defaultIcon: defaultIcon, log: log, now: time.Now}
}

func (s *Service) update(fn func(doc *domain.TaskDocument) error) error {
	doc, err := s.store.LoadTasks()
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return s.store.SaveTasks(doc)
}

func (s *Service) Categories() ([]domain.TaskCategory, error) {
	doc, err := s.store.LoadTasks()
	if err != nil {
		return nil, err
	}
	return doc.Categories, nil
}

// Tasks lists one category, or every task when category is the virtual
// all-tasks name.
func (s *Service) Tasks(category string) ([]Entry, error) {
	if category == domain.AllTasksCategory {
		return s.AllTasks()
	}
	doc, err := s.store.LoadTasks()
	if err != nil {
		return nil, err
	}
	i, err := findCategory(&doc, category)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(doc.Categories[i].Tasks))
	for _, t := range doc.Categories[i].Tasks {
		out = append(out, Entry{Category: category, Task: t})
	}
	return out, nil
}

// AllTasks lists every task in category order, then task order.
func (s *Service) AllTasks() ([]Entry, error) {
	doc, err := s.store.LoadTasks()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, c := range doc.Categories {
		for _, t := range c.Tasks {
			out = append(out, Entry{Category: c.Name, Task: t})
		}
	}
	return out, nil
}

func (s *Service) AddCategory(name, icon string) error {
	name, err := validCategoryName(name)
	if err != nil {
		return err
	}
	if icon = strings.TrimSpace(icon); icon == "" {
		icon = s.defaultIcon
	}
	err = s.update(func(doc *domain.TaskDocument) error {
		if _, err := findCategory(doc, name); err == nil {
			return fmt.Errorf("%w: category %q already exists", domain.ErrConflict, name)
		}
		doc.Categories = append(doc.Categories, domain.TaskCategory{Name: name, Icon: icon, Tasks: []domain.Task{}})
		return nil
	})
	if err == nil {
		s.log.Info("task category created", "category", name)
	}
	return err
}

func (s *Service) RenameCategory(oldName, newName string) error {
	newName, err := validCategoryName(newName)
	if err != nil {
		return err
	}
	return s.update(func(doc *domain.TaskDocument) error {
		i, err := findCategory(doc, oldName)
		if err != nil {
			return err
		}
		if oldName == newName {
			return nil
		}
		if _, err := findCategory(doc, newName); err == nil {
			return fmt.Errorf("%w: category %q already exists", domain.ErrConflict, newName)
		}
		doc.Categories[i].Name = newName
		return nil
	})
}

func (s *Service) DeleteCategory(name string) error {
	return s.update(func(doc *domain.TaskDocument) error {
		i, err := findCategory(doc, name)
		if err != nil {
			return err
		}
		doc.Categories = append(doc.Categories[:i], doc.Categories[i+1:]...)
		return nil
	})
}

func (s *Service) SetCategoryIcon(name, icon string) error {
	if icon = strings.TrimSpace(icon); icon == "" {
		return fmt.Errorf("%w: icon is empty", domain.ErrValidation)
	}
	return s.update(func(doc *domain.TaskDocument) error {
		i, err := findCategory(doc, name)
		if err != nil {
			return err
		}
		doc.Categories[i].Icon = icon
		return nil
	})
}

// MoveCategory shifts a category by delta places. Moving past either end is
// a no-op and reports false.
func (s *Service) MoveCategory(name string, delta int) (bool, error) {
	moved := false
	err := s.update(func(doc *domain.TaskDocument) error {
		i, err := findCategory(doc, name)
		if err != nil {
			return err
		}
		moved = swap(doc.Categories, i, i+delta)
		return nil
	})
	return moved, err
}

// AddTask appends a task dated today with a zero count.
func (s *Service) AddTask(category, name string) error {
	name, err := validName(name)
	if err != nil {
		return err
	}
	return s.update(func(doc *domain.TaskDocument) error {
		i, err := findCategory(doc, category)
		if err != nil {
			return err
		}
		if findTask(doc.Categories[i].Tasks, name) >= 0 {
			return fmt.Errorf("%w: task %q already exists in %q", domain.ErrConflict, name, category)
		}
		doc.Categories[i].Tasks = append(doc.Categories[i].Tasks, domain.Task{
			Name: name,
			Date: domain.FormatDate(s.now()),
		})
		return nil
	})
}

// UpdateTask replaces the task named name in place, keeping its position.
func (s *Service) UpdateTask(category, name string, t domain.Task) error {
	newName, err := validName(t.Name)
	if err != nil {
		return err
	}
	t.Name = newName
	if t.Count < 0 {
		return fmt.Errorf("%w: count must not be negative", domain.ErrValidation)
	}
	if t.Date != "" {
		if _, err := domain.ParseDate(t.Date); err != nil {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", domain.ErrValidation, t.Date)
		}
	}
	return s.update(func(doc *domain.TaskDocument) error {
		i, err := findCategory(doc, category)
		if err != nil {
			return err
		}
		tasks := doc.Categories[i].Tasks
		j := findTask(tasks, name)
		if j < 0 {
			return fmt.Errorf("%w: task %q in %q", domain.ErrNotFound, name, category)
		}
		if newName != name && findTask(tasks, newName) >= 0 {
			return fmt.Errorf("%w: task %q already exists in %q", domain.ErrConflict, newName, category)
		}
		tasks[j] = t
		return nil
	})
}

func (s *Service) DeleteTask(category, name string) error {
	return s.update(func(doc *domain.TaskDocument) error {
		i, err := findCategory(doc, category)
		if err != nil {
			return err
		}
		j := findTask(doc.Categories[i].Tasks, name)
		if j < 0 {
			return fmt.Errorf("%w: task %q in %q", domain.ErrNotFound, name, category)
		}
		tasks := doc.Categories[i].Tasks
		doc.Categories[i].Tasks = append(tasks[:j], tasks[j+1:]...)
		return nil
	})
}

func (s *Service) MoveTask(category, name string, delta int) (bool, error) {
	moved := false
	err := s.update(func(doc *domain.TaskDocument) error {
		i, err := findCategory(doc, category)
		if err != nil {
			return err
		}
		j := findTask(doc.Categories[i].Tasks, name)
		if j < 0 {
			return fmt.Errorf("%w: task %q in %q", domain.ErrNotFound, name, category)
		}
		moved = swap(doc.Categories[i].Tasks, j, j+delta)
		return nil
	})
	return moved, err
}

func (s *Service) SetChecked(category, name string, checked bool) error {
	return s.editTask(category, name, func(t *domain.Task) { t.Checked = checked })
}

// Increment bumps a task's count and stamps it with today's date.
func (s *Service) Increment(category, name string) error {
	today := domain.FormatDate(s.now())
	return s.editTask(category, name, func(t *domain.Task) {
		t.Count++
		t.Date = today
	})
}

func (s *Service) editTask(category, name string, fn func(*domain.Task)) error {
	return s.update(func(doc *domain.TaskDocument) error {
		i, err := findCategory(doc, category)
		if err != nil {
			return err
		}
		j := findTask(doc.Categories[i].Tasks, name)
		if j < 0 {
			return fmt.Errorf("%w: task %q in %q", domain.ErrNotFound, name, category)
		}
		fn(&doc.Categories[i].Tasks[j])
		return nil
	})
}

func findCategory(doc *domain.TaskDocument, name string) (int, error) {
	for i, c := range doc.Categories {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: category %q", domain.ErrNotFound, name)
}

func findTask(tasks []domain.Task, name string) int {
	for i, t := range tasks {
		if t.Name == name {
			return i
		}
	}
	return -1
}

func swap[T any](s []T, i, j int) bool {
	if i == j || j < 0 || j >= len(s) {
		return false
	}
	s[i], s[j] = s[j], s[i]
	return true
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", domain.ErrValidation)
	}
	return name, nil
}

func validCategoryName(name string) (string, error) {
	name, err := validName(name)
	if err != nil {
		return "", err
	}
	if name == domain.AllTasksCategory {
		return "", fmt.Errorf("%w: %q is reserved", domain.ErrValidation, name)
	}
	return name, nil
}
