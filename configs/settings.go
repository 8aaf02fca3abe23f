package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
	"gopkg.in/yaml.v3"
)

// Settings are persistent defaults kept in settings.yaml under the app
// path, so the user does not have to repeat flags on every run.
type Settings struct {
	OutputRoot  string   `yaml:"output_root"`
	PostWorkers int      `yaml:"post_workers"`
	FileParts   int      `yaml:"file_parts"`
	CookieFile  string   `yaml:"cookie_file"`
	UserAgent   string   `yaml:"user_agent"`
	SkipWords   []string `yaml:"skip_words"`
	RemoveWords []string `yaml:"remove_words"`
}

func settingsPath() string {
	return filepath.Join(utils.APP_PATH, "settings.yaml")
}

func LoadSettings() (*Settings, error) {
	settings := &Settings{}
	data, err := os.ReadFile(settingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf(
			"error %d: failed to read settings file, more info => %v",
			utils.OS_ERROR,
			err,
		)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf(
			"error %d: failed to parse settings file, more info => %v",
			utils.INPUT_ERROR,
			err,
		)
	}
	return settings, nil
}

func SaveSettings(settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf(
			"error %d: failed to marshal settings, more info => %v",
			utils.UNEXPECTED_ERROR,
			err,
		)
	}

	if err := os.MkdirAll(utils.APP_PATH, 0755); err != nil {
		return fmt.Errorf(
			"error %d: failed to create app directory, more info => %v",
			utils.OS_ERROR,
			err,
		)
	}
	if err := os.WriteFile(settingsPath(), data, 0666); err != nil {
		return fmt.Errorf(
			"error %d: failed to write settings file, more info => %v",
			utils.OS_ERROR,
			err,
		)
	}
	return nil
}

// ApplyDefaults copies saved settings into any RunConfig field the user
// left unset.
func (c *RunConfig) ApplyDefaults(settings *Settings) {
	if c.OutputRoot == "" {
		c.OutputRoot = settings.OutputRoot
	}
	if c.Threads.PostWorkers == 0 && settings.PostWorkers > 0 {
		c.Threads.PostWorkers = settings.PostWorkers
	}
	if c.Threads.FileParts == 0 && settings.FileParts > 0 {
		c.Threads.FileParts = settings.FileParts
	}
	if c.Cookies.FilePath == "" {
		c.Cookies.FilePath = settings.CookieFile
	}
	if c.UserAgent == "" {
		c.UserAgent = settings.UserAgent
	}
	if len(c.SkipWords) == 0 {
		c.SkipWords = settings.SkipWords
	}
	if len(c.RemoveWords) == 0 {
		c.RemoveWords = settings.RemoveWords
	}
}
