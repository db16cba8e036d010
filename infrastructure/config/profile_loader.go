package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sentinel/domain/core/entities"

	"gopkg.in/yaml.v3"
)

// FileLoader decodes one profile file format
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extensions() []string
}

// YAMLLoader loads YAML profiles
type YAMLLoader struct{}

func (YAMLLoader) Load(reader io.Reader, target interface{}) error {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	return decoder.Decode(target)
}

func (YAMLLoader) Extensions() []string { return []string{".yaml", ".yml"} }

// JSONLoader loads JSON profiles
type JSONLoader struct{}

func (JSONLoader) Load(reader io.Reader, target interface{}) error {
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func (JSONLoader) Extensions() []string { return []string{".json"} }

// ProfileLoader reads the user profile from disk, picking the decoder by
// file extension.
type ProfileLoader struct {
	loaders map[string]FileLoader
}

// NewProfileLoader creates a loader for YAML and JSON profiles
func NewProfileLoader() *ProfileLoader {
	l := &ProfileLoader{loaders: make(map[string]FileLoader)}
	l.RegisterLoader(YAMLLoader{})
	l.RegisterLoader(JSONLoader{})
	return l
}

// RegisterLoader registers a decoder for its extensions
func (l *ProfileLoader) RegisterLoader(loader FileLoader) {
	for _, ext := range loader.Extensions() {
		l.loaders[ext] = loader
	}
}

// Supports reports whether path has a registered extension
func (l *ProfileLoader) Supports(path string) bool {
	_, ok := l.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads a profile. Missing optional fields take the setup form
// defaults; validation is left to the engine.
func (l *ProfileLoader) Load(path string) (entities.UserProfile, error) {
	loader, ok := l.loaders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return entities.UserProfile{}, fmt.Errorf("unsupported profile format: %s", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return entities.UserProfile{}, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	return l.decode(loader, f)
}

func (l *ProfileLoader) decode(loader FileLoader, r io.Reader) (entities.UserProfile, error) {
	var profile entities.UserProfile
	if err := loader.Load(r, &profile); err != nil {
		return entities.UserProfile{}, fmt.Errorf("decode profile: %w", err)
	}

	defaults := entities.DefaultProfile()
	if profile.CustomTrigger == "" {
		profile.CustomTrigger = defaults.CustomTrigger
	}
	if profile.AudioSensitivity == "" {
		profile.AudioSensitivity = defaults.AudioSensitivity
	}
	return profile, nil
}
