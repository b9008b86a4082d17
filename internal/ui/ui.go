package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"repnote/internal/config"
	"repnote/internal/domain"
	"repnote/internal/logger"
	"repnote/internal/reconcile"
	"repnote/internal/session"
	"repnote/internal/storage"
	"repnote/internal/tasks"
)

type pane int

const (
	paneTopics pane = iota
	paneSubjects
	paneContent
	paneCategories
	paneTasks
	paneCount
)

type mode int

const (
	modeList mode = iota
	modeInput
	modeConfirm
)

type inputKind int

const (
	inputAddTopic inputKind = iota
	inputRenameTopic
	inputTopicIcon
	inputAddSubject
	inputRenameSubject
	inputSubjectIcon
	inputAddDiscussion
	inputEditDiscussion
	inputAddPoint
	inputEditPoint
	inputSetDate
	inputSearch
	inputAddCategory
	inputRenameCategory
	inputCategoryIcon
	inputAddTask
	inputRenameTask
	inputImport
)

// Deps are the services the UI drives. State may be nil.
type Deps struct {
	Gateway    *storage.Gateway
	Reconciler *reconcile.Reconciler
	Tasks      *tasks.Service
	State      *session.Store
	Log        *logger.Logger
}

type Model struct {
	deps Deps
	cfg  config.Config

	pane     pane
	topics   []domain.Topic
	subjects []domain.SubjectSummary
	rows     []reconcile.Row
	cats     []domain.TaskCategory
	entries  []tasks.Entry
	cursor   [paneCount]int

	mode      mode
	input     textinput.Model
	inputKind inputKind
	target    domain.Identity
	confirm   func() (string, error)
	status    string
	width     int
}

// Run starts the program and returns the selection to persist on exit.
func Run(deps Deps, cfg config.Config, restored reconcile.Restored) (session.LastSelection, error) {
	m := New(deps, cfg, restored)
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return m.LastSelection(), err
	}
	if fm, ok := final.(Model); ok {
		fm.leaveSubject()
		return fm.LastSelection(), nil
	}
	return m.LastSelection(), nil
}

func New(deps Deps, cfg config.Config, restored reconcile.Restored) Model {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		deps:   deps,
		cfg:    cfg,
		input:  ti,
		mode:   modeList,
		status: "tab switches pane, a adds, d deletes, q quits.",
	}
	m.reloadTopics()
	if restored.Topic != "" {
		m.cursor[paneTopics] = indexOf(len(m.topics), func(i int) bool { return m.topics[i].Name == restored.Topic })
	}
	m.reloadSubjects()
	if restored.Subject != "" {
		m.cursor[paneSubjects] = indexOf(len(m.subjects), func(i int) bool { return m.subjects[i].Name == restored.Subject })
		m.pane = paneContent
	}
	m.syncContent(deps.Reconciler.View())
	m.reloadTasks()
	if restored.Category != "" {
		m.cursor[paneCategories] = indexOf(len(m.cats), func(i int) bool { return m.cats[i].Name == restored.Category })
		m.reloadEntries()
	}
	if restored.Task != nil {
		m.cursor[paneTasks] = indexOf(len(m.entries), func(i int) bool {
			return m.entries[i].Category == restored.Task.Category && m.entries[i].Task.Name == restored.Task.Name
		})
	}
	return m
}

// LastSelection reports what is selected in every pane.
func (m Model) LastSelection() session.LastSelection {
	sel := session.LastSelection{Topic: m.currentTopic(), Category: m.currentCategory()}
	s := m.deps.Reconciler.Session()
	if s.Loaded() {
		sel.Topic = s.Topic
		sel.Subject = s.Subject
		if info := m.deps.Reconciler.Selection(); info.Selected != nil {
			sel.Content = info.Selected
		}
	}
	if e, ok := m.currentEntry(); ok {
		sel.Task = &domain.TaskRef{Category: e.Category, Name: e.Task.Name}
	}
	return sel
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeConfirm:
			return m.updateConfirm(msg.String())
		case modeInput:
			return m.updateInputMode(msg.String(), msg)
		}
		return m.updateListMode(msg.String())
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.NextPane:
		m.pane = (m.pane + 1) % paneCount
		return m, nil
	case "shift+tab":
		m.pane = (m.pane + paneCount - 1) % paneCount
		return m, nil
	case k.Down, "down":
		m.moveCursor(1)
		return m, nil
	case k.Up, "up":
		m.moveCursor(-1)
		return m, nil
	case k.Export:
		return m.exportBackup()
	case k.Import:
		return m.startInput(inputImport, "Backup zip path", "")
	}

	switch m.pane {
	case paneTopics:
		return m.updateTopics(key)
	case paneSubjects:
		return m.updateSubjects(key)
	case paneContent:
		return m.updateContent(key)
	case paneCategories:
		return m.updateCategories(key)
	case paneTasks:
		return m.updateTasks(key)
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	n := m.paneLen(m.pane)
	if n == 0 {
		return
	}
	m.cursor[m.pane] = clampCursor(m.cursor[m.pane]+delta, n)
	switch m.pane {
	case paneTopics:
		m.cursor[paneSubjects] = 0
		m.reloadSubjects()
	case paneContent:
		id := m.rows[m.cursor[paneContent]].ID
		m.deps.Reconciler.Select(&id)
		m.rows = m.deps.Reconciler.View().Visible()
	case paneCategories:
		m.cursor[paneTasks] = 0
		m.reloadEntries()
	}
}

func (m Model) paneLen(p pane) int {
	switch p {
	case paneTopics:
		return len(m.topics)
	case paneSubjects:
		return len(m.subjects)
	case paneContent:
		return len(m.rows)
	case paneCategories:
		return len(m.cats)
	case paneTasks:
		return len(m.entries)
	}
	return 0
}

func (m Model) updateTopics(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	topic := m.currentTopic()
	switch key {
	case k.Open:
		if topic != "" {
			m.pane = paneSubjects
		}
	case k.Add:
		return m.startInput(inputAddTopic, "Topic name", "")
	case k.Rename:
		if topic != "" {
			return m.startInput(inputRenameTopic, "New topic name", topic)
		}
	case k.Icon:
		if topic != "" {
			return m.startInput(inputTopicIcon, "Topic icon", m.topics[m.cursor[paneTopics]].Icon)
		}
	case k.Delete:
		if topic != "" {
			return m.askConfirm(fmt.Sprintf("Delete topic %q and all its subjects? y/n", topic), func() (string, error) {
				if m.deps.Reconciler.Session().Topic == topic {
					m.deps.Reconciler.Close()
				}
				if err := m.deps.Gateway.DeleteTopic(topic); err != nil {
					return "", err
				}
				m.forgetTopic(topic)
				return "Deleted topic", nil
			})
		}
	}
	return m, nil
}

func (m Model) updateSubjects(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	topic, subject := m.currentTopic(), m.currentSubject()
	switch key {
	case k.Open:
		if subject == "" {
			return m, nil
		}
		if err := m.openSubject(topic, subject); err != nil {
			m.fail("open failed", err)
			return m, nil
		}
		m.pane = paneContent
		m.status = fmt.Sprintf("Opened %s / %s", topic, subject)
	case k.Add:
		if topic != "" {
			return m.startInput(inputAddSubject, "Subject name", "")
		}
	case k.Rename:
		if subject != "" {
			return m.startInput(inputRenameSubject, "New subject name", subject)
		}
	case k.Icon:
		if subject != "" {
			return m.startInput(inputSubjectIcon, "Subject icon", m.subjects[m.cursor[paneSubjects]].Icon)
		}
	case k.Delete:
		if subject != "" {
			return m.askConfirm(fmt.Sprintf("Delete subject %q? y/n", subject), func() (string, error) {
				m.closeIfOpen(topic, subject)
				if err := m.deps.Gateway.DeleteSubject(topic, subject); err != nil {
					return "", err
				}
				return "Deleted subject", nil
			})
		}
	}
	return m, nil
}

func (m Model) updateContent(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	rec := m.deps.Reconciler
	info := rec.Selection()
	if !info.Loaded {
		m.status = "Open a subject first"
		return m, nil
	}
	row, hasRow := m.currentRow()

	switch key {
	case k.Add:
		return m.startInput(inputAddDiscussion, "Discussion text", "")
	case k.AddPoint:
		if info.CanAddPoint {
			m.target = domain.DiscussionID(info.Parent)
			return m.startInput(inputAddPoint, "Point text", "")
		}
	case k.Edit:
		if info.CanEditDiscussion {
			m.target = *info.Selected
			return m.startInput(inputEditDiscussion, "Discussion text", row.Text)
		}
		if info.CanEditPoint {
			m.target = *info.Selected
			return m.startInput(inputEditPoint, "Point text", row.Text)
		}
	case k.SetDate:
		if info.CanSetDate {
			m.target = *info.Selected
			return m.startInput(inputSetDate, "Date (YYYY-MM-DD)", row.Date)
		}
		m.status = "Dates of a discussion with points follow its points"
	case k.Delete:
		if info.CanDeleteDiscussion {
			idx := info.Selected.Index
			return m.askConfirm(fmt.Sprintf("Delete discussion %q? y/n", row.Text), func() (string, error) {
				_, err := rec.Apply(reconcile.DeleteDiscussion{Index: idx})
				return "Deleted discussion", err
			})
		}
		if info.CanDeletePoint {
			id := *info.Selected
			return m.askConfirm(fmt.Sprintf("Delete point %q? y/n", row.Text), func() (string, error) {
				_, err := rec.Apply(reconcile.DeletePoint{Parent: id.ParentIndex, Index: id.Index})
				return "Deleted point", err
			})
		}
	case k.Finish:
		if info.CanToggleFinish {
			id := *info.Selected
			prompt := fmt.Sprintf("Mark %q finished? y/n", row.Text)
			if row.Finished {
				prompt = fmt.Sprintf("Return %q to the repetition cycle? y/n", row.Text)
			}
			return m.askConfirm(prompt, func() (string, error) {
				_, err := rec.Apply(reconcile.ToggleFinish{Target: id})
				return "Finish status changed", err
			})
		}
	case k.NextCode:
		if info.CanChangeCode {
			return m.confirmNextCode(*info.Selected, row)
		}
	case k.Search:
		return m.startInput(inputSearch, "Search", rec.Session().Filters.Query)
	case k.DateFilter:
		f := rec.Session().Filters
		f.Date = f.Date.Next()
		return m.refreshWith(rec.SetFilters(f))
	case k.Sort:
		s := rec.Session().Sort
		return m.refreshWith(rec.SetSort(reconcile.SortState{Column: (s.Column + 1) % 3}))
	case k.SortReverse:
		s := rec.Session().Sort
		return m.refreshWith(rec.SetSort(s.Toggle(s.Column)))
	case k.ExpandToggle, k.Open:
		if hasRow {
			rec.ToggleExpanded(row.ID.DiscussionIndex())
			parent := domain.DiscussionID(row.ID.DiscussionIndex())
			if row.ID.Type == domain.KindPoint {
				rec.Select(&parent)
			}
			m.syncContent(rec.View())
		}
	case k.Icon:
		return m.startInput(inputSubjectIcon, "Subject icon", "")
	}
	return m, nil
}

func (m Model) confirmNextCode(id domain.Identity, row reconcile.Row) (tea.Model, tea.Cmd) {
	rec := m.deps.Reconciler
	next := rec.Vocabulary().Next(row.Code)
	preview, err := rec.PreviewCode(id, next)
	if err != nil {
		m.fail("code change rejected", err)
		return m, nil
	}
	if !preview.Changed {
		m.status = "Nothing to change"
		return m, nil
	}
	prompt := fmt.Sprintf("Change code %s -> %s, date %s -> %s? y/n",
		emptyPlaceholder(preview.FromCode), preview.ToCode, emptyPlaceholder(preview.FromDate), preview.ToDate)
	return m.askConfirm(prompt, func() (string, error) {
		_, err := rec.Apply(reconcile.ChangeCode{Target: id, Code: next})
		return "Code changed to " + next, err
	})
}

func (m Model) updateCategories(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	cat := m.currentCategory()
	editable := cat != "" && cat != domain.AllTasksCategory
	switch key {
	case k.Open:
		if cat != "" {
			m.pane = paneTasks
		}
	case k.Add:
		return m.startInput(inputAddCategory, "Category name", "")
	case k.Rename:
		if editable {
			return m.startInput(inputRenameCategory, "New category name", cat)
		}
	case k.Icon:
		if editable {
			return m.startInput(inputCategoryIcon, "Category icon", m.cats[m.cursor[paneCategories]].Icon)
		}
	case k.Delete:
		if editable {
			return m.askConfirm(fmt.Sprintf("Delete category %q and its tasks? y/n", cat), func() (string, error) {
				return "Deleted category", m.deps.Tasks.DeleteCategory(cat)
			})
		}
	case k.MoveUp, k.MoveDown:
		if !editable {
			return m, nil
		}
		delta := 1
		if key == k.MoveUp {
			delta = -1
		}
		moved, err := m.deps.Tasks.MoveCategory(cat, delta)
		if err != nil {
			m.fail("move failed", err)
			return m, nil
		}
		m.reloadTasks()
		if moved {
			m.cursor[paneCategories] = clampCursor(m.cursor[paneCategories]+delta, len(m.cats))
			m.reloadEntries()
		}
	}
	return m, nil
}

func (m Model) updateTasks(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	svc := m.deps.Tasks
	e, ok := m.currentEntry()
	switch key {
	case k.Add:
		if cat := m.currentCategory(); cat != "" && cat != domain.AllTasksCategory {
			return m.startInput(inputAddTask, "Task name", "")
		}
		m.status = "Pick a category to add tasks to"
		return m, nil
	}
	if !ok {
		return m, nil
	}
	var err error
	switch key {
	case k.Open, k.Finish:
		err = svc.SetChecked(e.Category, e.Task.Name, !e.Task.Checked)
	case k.NextCode:
		err = svc.Increment(e.Category, e.Task.Name)
	case k.Rename, k.Edit:
		return m.startInput(inputRenameTask, "Task name", e.Task.Name)
	case k.Delete:
		return m.askConfirm(fmt.Sprintf("Delete task %q from %q? y/n", e.Task.Name, e.Category), func() (string, error) {
			return "Deleted task", svc.DeleteTask(e.Category, e.Task.Name)
		})
	case k.MoveUp, k.MoveDown:
		if m.currentCategory() == domain.AllTasksCategory {
			return m, nil
		}
		delta := 1
		if key == k.MoveUp {
			delta = -1
		}
		var moved bool
		moved, err = svc.MoveTask(e.Category, e.Task.Name, delta)
		if err == nil && moved {
			m.cursor[paneTasks] += delta
		}
	default:
		return m, nil
	}
	if err != nil {
		m.fail("task update failed", err)
		return m, nil
	}
	m.reloadEntries()
	return m, nil
}

func (m Model) startInput(kind inputKind, placeholder, value string) (tea.Model, tea.Cmd) {
	m.mode = modeInput
	m.inputKind = kind
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.status = placeholder + ": Enter to confirm, Esc to cancel"
	return m, m.input.Focus()
}

func (m Model) updateInputMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm:
		value := strings.TrimSpace(m.input.Value())
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		note, err := m.submitInput(value)
		if err != nil {
			m.fail("failed", err)
			return m, nil
		}
		m.status = note
		m.reloadAll()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) submitInput(value string) (string, error) {
	gw, rec, svc := m.deps.Gateway, m.deps.Reconciler, m.deps.Tasks
	topic, subject := m.currentTopic(), m.currentSubject()
	switch m.inputKind {
	case inputAddTopic:
		return "Added topic", gw.CreateTopic(value)
	case inputRenameTopic:
		if rec.Session().Topic == topic {
			rec.Close()
		}
		if err := gw.RenameTopic(topic, value); err != nil {
			return "", err
		}
		m.forgetTopic(topic)
		return "Renamed topic", nil
	case inputTopicIcon:
		return "Topic icon set", gw.SetTopicIcon(topic, value)
	case inputAddSubject:
		return "Added subject", gw.CreateSubject(topic, value)
	case inputRenameSubject:
		m.closeIfOpen(topic, subject)
		return "Renamed subject", gw.RenameSubject(topic, subject, value)
	case inputSubjectIcon:
		s := rec.Session()
		if m.pane != paneContent && (!s.Loaded() || s.Topic != topic || s.Subject != subject) {
			if err := m.openSubject(topic, subject); err != nil {
				return "", err
			}
		}
		_, err := rec.Apply(reconcile.SetSubjectIcon{Icon: value})
		return "Subject icon set", err
	case inputAddDiscussion:
		_, err := rec.Apply(reconcile.AddDiscussion{Text: value})
		return "Added discussion", err
	case inputEditDiscussion:
		_, err := rec.Apply(reconcile.EditDiscussion{Index: m.target.Index, Text: value})
		return "Updated discussion", err
	case inputAddPoint:
		_, err := rec.Apply(reconcile.AddPoint{Parent: m.target.Index, Text: value})
		return "Added point", err
	case inputEditPoint:
		_, err := rec.Apply(reconcile.EditPoint{Parent: m.target.ParentIndex, Index: m.target.Index, Text: value})
		return "Updated point", err
	case inputSetDate:
		_, err := rec.Apply(reconcile.SetDate{Target: m.target, Date: value})
		return "Date set to " + value, err
	case inputSearch:
		f := rec.Session().Filters
		f.Query = value
		_, err := rec.SetFilters(f)
		if value == "" {
			return "Search cleared", err
		}
		return "Searching " + value, err
	case inputAddCategory:
		return "Added category", svc.AddCategory(value, "")
	case inputRenameCategory:
		return "Renamed category", svc.RenameCategory(m.currentCategory(), value)
	case inputCategoryIcon:
		return "Category icon set", svc.SetCategoryIcon(m.currentCategory(), value)
	case inputAddTask:
		return "Added task", svc.AddTask(m.currentCategory(), value)
	case inputRenameTask:
		e, ok := m.currentEntry()
		if !ok {
			return "", nil
		}
		t := e.Task
		t.Name = value
		return "Renamed task", svc.UpdateTask(e.Category, e.Task.Name, t)
	case inputImport:
		report, err := gw.ImportBackup(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Imported %d topics (tasks replaced: %t)", len(report.Topics), report.TasksReplaced), nil
	}
	return "", nil
}

func (m Model) askConfirm(prompt string, action func() (string, error)) (tea.Model, tea.Cmd) {
	m.mode = modeConfirm
	m.confirm = action
	m.status = prompt
	return m, nil
}

func (m Model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.mode = modeList
		m.confirm = nil
		m.status = "Cancelled"
		return m, nil
	case "y", "Y":
		action := m.confirm
		m.mode = modeList
		m.confirm = nil
		if action == nil {
			return m, nil
		}
		msg, err := action()
		if err != nil {
			m.fail("failed", err)
		} else {
			m.status = msg
		}
		m.reloadAll()
		return m, nil
	}
	return m, nil
}

func (m Model) exportBackup() (tea.Model, tea.Cmd) {
	gw := m.deps.Gateway
	path := filepath.Join(filepath.Dir(gw.Root()), gw.BackupFileName())
	if err := gw.ExportBackup(path); err != nil {
		m.fail("export failed", err)
		return m, nil
	}
	m.status = "Backup written to " + path
	return m, nil
}

func (m Model) refreshWith(v reconcile.View, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.fail("refresh failed", err)
		return m, nil
	}
	m.syncContent(v)
	return m, nil
}

// fail reports err in the status line. Refused edits are expected; anything
// else is logged.
func (m *Model) fail(what string, err error) {
	m.status = fmt.Sprintf("%s: %v", what, err)
	if !reconcile.IsRejected(err) && !errors.Is(err, domain.ErrConflict) {
		m.deps.Log.Error(what, "error", err)
	}
}

func (m *Model) openSubject(topic, subject string) error {
	m.leaveSubject()
	rec := m.deps.Reconciler
	v, err := rec.Open(topic, subject)
	if err != nil {
		return err
	}
	if m.deps.State != nil {
		if idx, err := m.deps.State.LoadExpanded(topic, subject); err == nil && len(idx) > 0 {
			snap := reconcile.Snapshot{Expanded: make(map[int]bool, len(idx))}
			for _, i := range idx {
				snap.Expanded[i] = true
			}
			v = rec.Restore(snap)
		}
	}
	m.cursor[paneContent] = 0
	m.syncContent(v)
	return nil
}

// leaveSubject stores the open subject's expansion state.
func (m *Model) leaveSubject() {
	s := m.deps.Reconciler.Session()
	if !s.Loaded() || m.deps.State == nil {
		return
	}
	idx := m.deps.Reconciler.Capture().ExpandedIndices()
	if err := m.deps.State.SaveExpanded(s.Topic, s.Subject, idx); err != nil {
		m.deps.Log.Warn("expanded state not saved", "topic", s.Topic, "subject", s.Subject, "error", err)
	}
}

func (m *Model) closeIfOpen(topic, subject string) {
	s := m.deps.Reconciler.Session()
	if s.Loaded() && s.Topic == topic && s.Subject == subject {
		m.deps.Reconciler.Close()
	}
	if m.deps.State != nil {
		if err := m.deps.State.ForgetSubject(topic, subject); err != nil {
			m.deps.Log.Warn("subject state not cleared", "error", err)
		}
	}
}

func (m *Model) forgetTopic(topic string) {
	if m.deps.State == nil {
		return
	}
	if err := m.deps.State.ForgetTopic(topic); err != nil {
		m.deps.Log.Warn("topic state not cleared", "topic", topic, "error", err)
	}
}

func (m *Model) reloadAll() {
	m.reloadTopics()
	m.reloadSubjects()
	v, err := m.deps.Reconciler.Refresh()
	if err != nil {
		m.fail("refresh failed", err)
	}
	m.syncContent(v)
	m.reloadTasks()
}

func (m *Model) reloadTopics() {
	topics, err := m.deps.Gateway.ListTopics()
	if err != nil {
		m.fail("topics unavailable", err)
		return
	}
	m.topics = topics
	m.cursor[paneTopics] = clampCursor(m.cursor[paneTopics], len(topics))
}

func (m *Model) reloadSubjects() {
	m.subjects = nil
	topic := m.currentTopic()
	if topic == "" {
		return
	}
	subjects, err := m.deps.Gateway.ListSubjects(topic)
	if err != nil {
		m.fail("subjects unavailable", err)
		return
	}
	m.subjects = subjects
	m.cursor[paneSubjects] = clampCursor(m.cursor[paneSubjects], len(subjects))
}

// syncContent shows v and puts the cursor on the selected row. A selection
// hidden under a collapsed discussion moves to the row under the cursor, so
// edits always target a displayed row.
func (m *Model) syncContent(v reconcile.View) {
	m.rows = v.Visible()
	for i, r := range m.rows {
		if r.Selected {
			m.cursor[paneContent] = i
			return
		}
	}
	m.cursor[paneContent] = clampCursor(m.cursor[paneContent], len(m.rows))
	rec := m.deps.Reconciler
	if len(m.rows) == 0 {
		rec.Select(nil)
		return
	}
	id := m.rows[m.cursor[paneContent]].ID
	rec.Select(&id)
	m.rows = rec.View().Visible()
}

func (m *Model) reloadTasks() {
	cats, err := m.deps.Tasks.Categories()
	if err != nil {
		m.fail("tasks unavailable", err)
		return
	}
	all := domain.TaskCategory{Name: domain.AllTasksCategory, Icon: m.cfg.Icons.Category}
	m.cats = append([]domain.TaskCategory{all}, cats...)
	m.cursor[paneCategories] = clampCursor(m.cursor[paneCategories], len(m.cats))
	m.reloadEntries()
}

func (m *Model) reloadEntries() {
	m.entries = nil
	cat := m.currentCategory()
	if cat == "" {
		return
	}
	entries, err := m.deps.Tasks.Tasks(cat)
	if err != nil {
		m.fail("tasks unavailable", err)
		return
	}
	m.entries = entries
	m.cursor[paneTasks] = clampCursor(m.cursor[paneTasks], len(entries))
}

func (m Model) currentTopic() string {
	if len(m.topics) == 0 {
		return ""
	}
	return m.topics[clampCursor(m.cursor[paneTopics], len(m.topics))].Name
}

func (m Model) currentSubject() string {
	if len(m.subjects) == 0 {
		return ""
	}
	return m.subjects[clampCursor(m.cursor[paneSubjects], len(m.subjects))].Name
}

func (m Model) currentRow() (reconcile.Row, bool) {
	if len(m.rows) == 0 {
		return reconcile.Row{}, false
	}
	return m.rows[clampCursor(m.cursor[paneContent], len(m.rows))], true
}

func (m Model) currentCategory() string {
	if len(m.cats) == 0 {
		return ""
	}
	return m.cats[clampCursor(m.cursor[paneCategories], len(m.cats))].Name
}

func (m Model) currentEntry() (tasks.Entry, bool) {
	if len(m.entries) == 0 {
		return tasks.Entry{}, false
	}
	return m.entries[clampCursor(m.cursor[paneTasks], len(m.entries))], true
}

func indexOf(n int, match func(int) bool) int {
	for i := 0; i < n; i++ {
		if match(i) {
			return i
		}
	}
	return 0
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
