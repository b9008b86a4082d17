package main

import (
	"fmt"
	"os"

	"repnote/internal/config"
	"repnote/internal/logger"
	"repnote/internal/reconcile"
	"repnote/internal/session"
	"repnote/internal/storage"
	"repnote/internal/tasks"
	"repnote/internal/ui"
)

func main() {
	configPath := config.ResolveConfigPath()
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("logging disabled: %v\n", err)
		log = logger.Nop()
	}
	defer log.Sync()

	vocab, err := cfg.Vocabulary()
	if err != nil {
		fmt.Printf("invalid repetition codes: %v\n", err)
		os.Exit(1)
	}

	gw, err := storage.Open(storage.Options{
		DataDir:             cfg.DataDir,
		TasksFile:           cfg.TasksFile,
		DefaultTopicIcon:    cfg.Icons.Topic,
		DefaultSubjectIcon:  cfg.Icons.Subject,
		DefaultCategoryIcon: cfg.Icons.Category,
	}, log)
	if err != nil {
		fmt.Printf("failed to open data dir: %v\n", err)
		os.Exit(1)
	}

	state, err := session.Open(cfg.StateDB)
	if err != nil {
		fmt.Printf("failed to open state database: %v\n", err)
		os.Exit(1)
	}
	defer state.Close()

	rec := reconcile.New(gw, vocab, reconcile.WithLogger(log))
	filter, err := reconcile.ParseDateFilter(cfg.DefaultDateFilter)
	if err != nil {
		log.Warn("default date filter ignored", "error", err)
	}
	if _, err := rec.SetFilters(reconcile.Filters{Date: filter}); err != nil {
		log.Warn("date filter not applied", "error", err)
	}

	last, err := state.LoadLastSelection()
	if err != nil {
		log.Warn("last selection unavailable", "error", err)
	}
	var expanded []int
	if last.Topic != "" && last.Subject != "" {
		if expanded, err = state.LoadExpanded(last.Topic, last.Subject); err != nil {
			log.Warn("expanded state unavailable", "error", err)
		}
	}
	taskSvc := tasks.NewService(gw, cfg.Icons.Category, log)
	restored := rec.RestoreSession(last, gw, taskSvc, expanded)

	sel, err := ui.Run(ui.Deps{
		Gateway:    gw,
		Reconciler: rec,
		Tasks:      taskSvc,
		State:      state,
		Log:        log,
	}, cfg, restored)
	if serr := state.SaveLastSelection(sel); serr != nil {
		log.Error("last selection not saved", "error", serr)
	}
	if err != nil {
		fmt.Printf("error running program: %v\n", err)
		os.Exit(1)
	}
}
