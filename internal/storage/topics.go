package storage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"repnote/internal/domain"
)

// ListTopics returns every topic directory sorted by name. A missing or
// unreadable sidecar falls back to the default icon.
func (g *Gateway) ListTopics() ([]domain.Topic, error) {
	entries, err := os.ReadDir(g.topicsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Topic{}, nil
		}
		return nil, domain.NewIOError("readdir", g.topicsDir, err)
	}
	topics := make([]domain.Topic, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		topics = append(topics, domain.Topic{Name: e.Name(), Icon: g.topicIcon(e.Name())})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics, nil
}

func (g *Gateway) topicIcon(name string) string {
	var cfg domain.TopicConfig
	if err := readJSON(g.topicConfigPath(name), &cfg); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			g.log.Warn("topic config unreadable", "topic", name, "error", err)
		}
		return g.opts.DefaultTopicIcon
	}
	return g.icon(cfg.Icon, g.opts.DefaultTopicIcon)
}

// CreateTopic fails with ErrConflict if the topic already exists.
func (g *Gateway) CreateTopic(name string) error {
	name, err := ValidateName(name)
	if err != nil {
		return err
	}
	path := g.topicPath(name)
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: topic %q already exists", domain.ErrConflict, name)
		}
		return domain.NewIOError("mkdir", path, err)
	}
	g.log.Info("topic created", "topic", name)
	return nil
}

func (g *Gateway) RenameTopic(oldName, newName string) error {
	newName, err := ValidateName(newName)
	if err != nil {
		return err
	}
	if err := g.requireTopic(oldName); err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	dst := g.topicPath(newName)
	ok, err := exists(dst)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: topic %q already exists", domain.ErrConflict, newName)
	}
	if err := os.Rename(g.topicPath(oldName), dst); err != nil {
		return domain.NewIOError("rename", dst, err)
	}
	g.log.Info("topic renamed", "from", oldName, "to", newName)
	return nil
}

// DeleteTopic removes the topic and every subject in it.
func (g *Gateway) DeleteTopic(name string) error {
	if err := g.requireTopic(name); err != nil {
		return err
	}
	path := g.topicPath(name)
	if err := os.RemoveAll(path); err != nil {
		return domain.NewIOError("remove", path, err)
	}
	g.log.Info("topic deleted", "topic", name)
	return nil
}

func (g *Gateway) SetTopicIcon(name, icon string) error {
	if err := g.requireTopic(name); err != nil {
		return err
	}
	return writeJSON(g.topicConfigPath(name), domain.TopicConfig{Icon: icon})
}

func (g *Gateway) requireTopic(name string) error {
	if _, err := ValidateName(name); err != nil {
		return err
	}
	info, err := os.Stat(g.topicPath(name))
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("%w: topic %q", domain.ErrNotFound, name)
	}
	if err != nil {
		return domain.NewIOError("stat", g.topicPath(name), err)
	}
	return nil
}
