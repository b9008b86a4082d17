package storage

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"repnote/internal/domain"
	"repnote/internal/logger"
)

const (
	topicsDirName   = "topics"
	topicConfigName = "topic_config.json"
	subjectExt      = ".json"
)

type Options struct {
	DataDir             string
	TasksFile           string
	DefaultTopicIcon    string
	DefaultSubjectIcon  string
	DefaultCategoryIcon string
}

// Gateway owns every file under the data directory: topic directories,
// subject documents and the tasks document. It is the only writer.
type Gateway struct {
	root      string
	topicsDir string
	tasksPath string
	opts      Options
	log       *logger.Logger
	now       func() time.Time
}

func Open(opts Options, log *logger.Logger) (*Gateway, error) {
	if opts.DataDir == "" {
		return nil, errors.New("data dir is empty")
	}
	if opts.TasksFile == "" {
		opts.TasksFile = "tasks.json"
	}
	if log == nil {
		log = logger.Nop()
	}
	g := &Gateway{
		root:      opts.DataDir,
		topicsDir: filepath.Join(opts.DataDir, topicsDirName),
		tasksPath: filepath.Join(opts.DataDir, opts.TasksFile),
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
	if err := g.ensureDirs(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Gateway) Root() string { return g.root }

func (g *Gateway) ensureDirs() error {
	for _, dir := range []string{g.root, g.topicsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.NewIOError("mkdir", dir, err)
		}
	}
	return nil
}

func (g *Gateway) topicPath(topic string) string {
	return filepath.Join(g.topicsDir, topic)
}

func (g *Gateway) subjectPath(topic, subject string) string {
	return filepath.Join(g.topicsDir, topic, subject+subjectExt)
}

func (g *Gateway) icon(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func (g *Gateway) topicConfigPath(topic string) string {
	return filepath.Join(g.topicsDir, topic, topicConfigName)
}
