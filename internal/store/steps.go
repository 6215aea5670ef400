package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/vision"
)

// StepName identifies a pipeline step for caching purposes.
type StepName string

const (
	StepSnapshots   StepName = "snapshots"
	StepScreenshots StepName = "screenshots"
	StepVision      StepName = "vision"
	StepDocuments   StepName = "documents"
)

// Cache writes step outputs under one directory. Files written through the
// same Cache share its creation stamp, so one run's files sort together.
type Cache struct {
	dir   string
	stamp string
}

// NewCache creates a cache rooted at dir, or at the user cache directory
// when dir is empty.
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		d, err := config.CacheDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return &Cache{dir: dir, stamp: generateStamp()}, nil
}

// Dir returns the cache root
func (c *Cache) Dir() string {
	return c.dir
}

// stepDir returns the cache directory for a given step.
func (c *Cache) stepDir(step StepName) (string, error) {
	dir := filepath.Join(c.dir, string(step))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step cache dir: %w", err)
	}
	return dir, nil
}

// generateStamp uses dashes instead of colons for filesystem compatibility
func generateStamp() string {
	return time.Now().Format("2006-01-02T15-04-05")
}

// SaveCapture stores a page snapshot or screenshot for selector debugging.
func (c *Cache) SaveCapture(kind string, index int, data []byte) error {
	step, ext := StepSnapshots, ".html"
	if kind == "screenshot" {
		step, ext = StepScreenshots, ".png"
	}
	_, err := c.SaveBytes(step, fmt.Sprintf("%s_%03d%s", c.stamp, index, ext), data)
	return err
}

// SaveVisionExchange stores one request/response pair with the service.
func (c *Cache) SaveVisionExchange(ex vision.Exchange) error {
	_, err := SaveStepOutput(c, StepVision, fmt.Sprintf("%s_batch%03d.json", c.stamp, ex.Batch), ex)
	return err
}

// SaveBytes writes raw content to the step's cache directory.
// Returns the path to the saved file.
func (c *Cache) SaveBytes(step StepName, name string, data []byte) (string, error) {
	dir, err := c.stepDir(step)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write step output: %w", err)
	}

	return path, nil
}

// SaveStepOutput saves JSON-serializable data to the step's cache directory.
// An empty name uses the cache stamp. Returns the path to the saved file.
func SaveStepOutput[T any](c *Cache, step StepName, name string, data T) (string, error) {
	if name == "" {
		name = c.stamp + ".json"
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal step output: %w", err)
	}

	return c.SaveBytes(step, name, jsonData)
}

// LoadLatestStepOutput loads the most recent output from a step's cache directory.
// Returns the data, the filepath it was loaded from, and any error.
func LoadLatestStepOutput[T any](c *Cache, step StepName) (T, string, error) {
	var zero T

	latestPath, err := c.LatestStepFile(step)
	if err != nil {
		return zero, "", err
	}

	data, err := LoadStepOutput[T](latestPath)
	if err != nil {
		return zero, "", err
	}

	return data, latestPath, nil
}

// LoadStepOutput loads JSON data from a specific file path.
func LoadStepOutput[T any](path string) (T, error) {
	var data T

	jsonData, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("failed to read step output: %w", err)
	}

	if err := json.Unmarshal(jsonData, &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal step output: %w", err)
	}

	return data, nil
}

// StepFiles lists a step's files, oldest first.
func (c *Cache) StepFiles(step StepName) ([]string, error) {
	dir := filepath.Join(c.dir, string(step))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no cached output for step %s", step)
		}
		return nil, err
	}

	// os.ReadDir sorts by name, which is chronological for our stamps
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no cached output for step %s", step)
	}
	return files, nil
}

// LatestStepFile returns the path to the most recent file in a step's cache directory.
func (c *Cache) LatestStepFile(step StepName) (string, error) {
	files, err := c.StepFiles(step)
	if err != nil {
		return "", err
	}
	return files[len(files)-1], nil
}
