package domain

// Topic is a directory of subjects.
type Topic struct {
	Name string
	Icon string
}

// SubjectSummary is what the subject list shows; it reads the cached
// metadata rollup, not the content.
type SubjectSummary struct {
	Name         string
	Icon         string
	EarliestDate *string
	EarliestCode *string
}

// TopicConfig is the per-topic sidecar file.
type TopicConfig struct {
	Icon string `json:"icon"`
}

type Task struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Date    string `json:"date"`
	Checked bool   `json:"checked"`
}

type TaskCategory struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Tasks []Task `json:"tasks"`
}

// AllTasksCategory names the virtual category listing every task. It is
// never stored.
const AllTasksCategory = "All Tasks"

// TaskDocument keeps categories and tasks as ordered lists so user ordering
// survives a round trip.
type TaskDocument struct {
	Categories []TaskCategory `json:"categories"`
}

func (d *TaskDocument) Normalize() {
	if d.Categories == nil {
		d.Categories = []TaskCategory{}
	}
	for i := range d.Categories {
		if d.Categories[i].Tasks == nil {
			d.Categories[i].Tasks = []Task{}
		}
	}
}
