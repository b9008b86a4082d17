package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	toml "github.com/pelletier/go-toml/v2"

	"repnote/internal/repetition"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDataDirName    = "repnote-data"
	DefaultTasksFile      = "tasks.json"
	DefaultStateDBName    = "state.db"
	DefaultLogFile        = "repnote.log"
	appDirName            = "repnote"
)

type Keymap struct {
	Quit         string `toml:"quit"`
	Up           string `toml:"up"`
	Down         string `toml:"down"`
	NextPane     string `toml:"next_pane"`
	Open         string `toml:"open"`
	Add          string `toml:"add"`
	AddPoint     string `toml:"add_point"`
	Edit         string `toml:"edit"`
	Delete       string `toml:"delete"`
	Finish       string `toml:"finish"`
	NextCode     string `toml:"next_code"`
	SetDate      string `toml:"set_date"`
	Search       string `toml:"search"`
	DateFilter   string `toml:"date_filter"`
	Sort         string `toml:"sort"`
	SortReverse  string `toml:"sort_reverse"`
	Rename       string `toml:"rename"`
	Icon         string `toml:"icon"`
	MoveUp       string `toml:"move_up"`
	MoveDown     string `toml:"move_down"`
	Export       string `toml:"export"`
	Import       string `toml:"import"`
	Confirm      string `toml:"confirm"`
	Cancel       string `toml:"cancel"`
	ExpandToggle string `toml:"expand_toggle"`
}

type Icons struct {
	Topic    string `toml:"topic" env:"REPNOTE_TOPIC_ICON"`
	Subject  string `toml:"subject" env:"REPNOTE_SUBJECT_ICON"`
	Category string `toml:"category" env:"REPNOTE_CATEGORY_ICON"`
}

type LogConfig struct {
	Mode       string `toml:"mode" env:"REPNOTE_LOG_MODE"`
	Level      string `toml:"level" env:"REPNOTE_LOG_LEVEL"`
	File       string `toml:"file" env:"REPNOTE_LOG_FILE"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type RepetitionConfig struct {
	Codes []repetition.Code `toml:"codes"`
}

type Config struct {
	DataDir           string           `toml:"data_dir" env:"REPNOTE_DATA_DIR"`
	TasksFile         string           `toml:"tasks_file" env:"REPNOTE_TASKS_FILE"`
	StateDB           string           `toml:"state_db" env:"REPNOTE_STATE_DB"`
	DefaultDateFilter string           `toml:"default_date_filter" env:"REPNOTE_DATE_FILTER"`
	Icons             Icons            `toml:"icons"`
	Log               LogConfig        `toml:"log"`
	Repetition        RepetitionConfig `toml:"repetition"`
	Keys              Keymap           `toml:"keys"`
}

// ResolveConfigPath prefers REPNOTE_CONFIG, then the user config directory,
// then the working directory.
func ResolveConfigPath() string {
	if p := os.Getenv("REPNOTE_CONFIG"); p != "" {
		return p
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName, DefaultConfigFileName)
	}
	return DefaultConfigFileName
}

// LoadOrCreate reads the TOML file at path, writing the defaults first if it
// does not exist. REPNOTE_* environment variables override file values.
// Relative paths are resolved against the config file's directory.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		// array tables append, so start the vocabulary empty
		cfg.Repetition.Codes = nil
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.fillDefaults()
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Vocabulary builds the repetition vocabulary the config describes.
func (c Config) Vocabulary() (*repetition.Vocabulary, error) {
	return repetition.NewVocabulary(c.Repetition.Codes)
}

func (c *Config) fillDefaults() {
	d := defaultConfig()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.TasksFile == "" {
		c.TasksFile = d.TasksFile
	}
	if c.StateDB == "" {
		c.StateDB = d.StateDB
	}
	if c.DefaultDateFilter == "" {
		c.DefaultDateFilter = d.DefaultDateFilter
	}
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
	if len(c.Repetition.Codes) == 0 {
		c.Repetition.Codes = d.Repetition.Codes
	}
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.DataDir = abs(c.DataDir)
	c.StateDB = abs(c.StateDB)
	c.Log.File = abs(c.Log.File)
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	codes := make([]repetition.Code, len(repetition.DefaultCodes))
	copy(codes, repetition.DefaultCodes)
	return Config{
		DataDir:           DefaultDataDirName,
		TasksFile:         DefaultTasksFile,
		StateDB:           DefaultStateDBName,
		DefaultDateFilter: "all",
		Icons: Icons{
			Topic:    "📁",
			Subject:  "📄",
			Category: "📂",
		},
		Log: LogConfig{
			Mode:       "prod",
			Level:      "info",
			File:       DefaultLogFile,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Repetition: RepetitionConfig{Codes: codes},
		Keys: Keymap{
			Quit:         "q",
			Up:           "k",
			Down:         "j",
			NextPane:     "tab",
			Open:         "enter",
			Add:          "a",
			AddPoint:     "p",
			Edit:         "e",
			Delete:       "d",
			Finish:       "f",
			NextCode:     "c",
			SetDate:      "D",
			Search:       "/",
			DateFilter:   "t",
			Sort:         "s",
			SortReverse:  "S",
			Rename:       "r",
			Icon:         "i",
			MoveUp:       "K",
			MoveDown:     "J",
			Export:       "X",
			Import:       "I",
			Confirm:      "enter",
			Cancel:       "esc",
			ExpandToggle: " ",
		},
	}
}
