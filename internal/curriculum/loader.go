package curriculum

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/felixgeelhaar/chatty/internal/domain"
	"gopkg.in/yaml.v3"
)

// manifestName is the ladder file at the root of a curriculum directory
const manifestName = "levels.yaml"

// ManifestFile represents the YAML structure of levels.yaml
type ManifestFile struct {
	Version string `yaml:"version"`
	Levels  []struct {
		Name string `yaml:"name"`
		File string `yaml:"file"`
	} `yaml:"levels"`
}

// LevelFile represents the YAML structure of a level's lesson file
type LevelFile struct {
	Level   string       `yaml:"level"`
	Lessons []LessonFile `yaml:"lessons"`
}

// LessonFile represents a single lesson in a level file
type LessonFile struct {
	Title       string   `yaml:"title"`
	Explanation string   `yaml:"explanation"`
	Examples    []string `yaml:"examples"`
	Task        string   `yaml:"task"`
	Keywords    []string `yaml:"keywords"`
}

// Loader reads a curriculum from a filesystem
type Loader struct {
	fsys   fs.FS
	source string
}

// NewLoader creates a loader for a curriculum directory on disk
func NewLoader(basePath string) *Loader {
	return &Loader{fsys: os.DirFS(basePath), source: basePath}
}

// NewFSLoader creates a loader over an arbitrary filesystem
func NewFSLoader(fsys fs.FS, source string) *Loader {
	return &Loader{fsys: fsys, source: source}
}

// Source describes where the curriculum is read from
func (l *Loader) Source() string {
	return l.source
}

// Catalog is a fully loaded, validated curriculum
type Catalog struct {
	Version string
	Ladder  domain.Ladder
	Lessons map[domain.Level][]domain.Lesson
}

// LoadManifest reads levels.yaml
func (l *Loader) LoadManifest() (*ManifestFile, error) {
	data, err := fs.ReadFile(l.fsys, manifestName)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest ManifestFile
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if len(manifest.Levels) == 0 {
		return nil, fmt.Errorf("manifest declares no levels")
	}

	return &manifest, nil
}

// LoadLevel reads the lessons of one level. Indices follow file order.
func (l *Loader) LoadLevel(level domain.Level, file string) ([]domain.Lesson, error) {
	data, err := fs.ReadFile(l.fsys, path.Clean(file))
	if err != nil {
		return nil, fmt.Errorf("read level file: %w", err)
	}

	var levelFile LevelFile
	if err := yaml.Unmarshal(data, &levelFile); err != nil {
		return nil, fmt.Errorf("parse level file: %w", err)
	}

	if levelFile.Level != "" && domain.Level(levelFile.Level) != level {
		return nil, fmt.Errorf("level file %s declares %q, manifest expects %q", file, levelFile.Level, level)
	}

	lessons := make([]domain.Lesson, len(levelFile.Lessons))
	for i, lf := range levelFile.Lessons {
		lessons[i] = domain.Lesson{
			Level:              level,
			Index:              i,
			Title:              strings.TrimSpace(lf.Title),
			Explanation:        strings.TrimSpace(lf.Explanation),
			Examples:           lf.Examples,
			TaskText:           strings.TrimSpace(lf.Task),
			AcceptanceKeywords: normalizeKeywords(lf.Keywords),
		}
	}

	return lessons, nil
}

// LoadAll loads the manifest and every level it names
func (l *Loader) LoadAll() (*Catalog, error) {
	manifest, err := l.LoadManifest()
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{
		Version: manifest.Version,
		Ladder:  make(domain.Ladder, 0, len(manifest.Levels)),
		Lessons: make(map[domain.Level][]domain.Lesson, len(manifest.Levels)),
	}

	for _, entry := range manifest.Levels {
		level := domain.Level(strings.TrimSpace(entry.Name))
		file := entry.File
		if file == "" {
			file = slugify(string(level)) + ".yaml"
		}

		lessons, err := l.LoadLevel(level, file)
		if err != nil {
			return nil, fmt.Errorf("load level %s: %w", level, err)
		}

		catalog.Ladder = append(catalog.Ladder, level)
		catalog.Lessons[level] = lessons
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	return catalog, nil
}

// Validate checks the curriculum invariants
func (c *Catalog) Validate() error {
	if len(c.Ladder) == 0 {
		return fmt.Errorf("curriculum has no levels")
	}

	seen := make(map[domain.Level]bool, len(c.Ladder))
	for _, level := range c.Ladder {
		if level == "" {
			return fmt.Errorf("curriculum has an unnamed level")
		}
		if seen[level] {
			return fmt.Errorf("level %s appears twice on the ladder", level)
		}
		seen[level] = true

		lessons := c.Lessons[level]
		if len(lessons) == 0 {
			return fmt.Errorf("level %s has no lessons", level)
		}
		for i, lesson := range lessons {
			if lesson.Index != i || lesson.Level != level {
				return fmt.Errorf("level %s: lesson %d is out of sequence", level, i)
			}
			if lesson.Title == "" {
				return fmt.Errorf("level %s: lesson %d has no title", level, i+1)
			}
			if lesson.TaskText == "" {
				return fmt.Errorf("level %s: lesson %d has no task", level, i+1)
			}
			if len(lesson.AcceptanceKeywords) == 0 {
				return fmt.Errorf("level %s: lesson %d has no acceptance keywords", level, i+1)
			}
		}
	}

	return nil
}

// normalizeKeywords lowercases and de-duplicates keywords. Surrounding spaces
// are kept because they act as word boundaries.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if strings.TrimSpace(kw) == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

func slugify(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", "-"))
}
