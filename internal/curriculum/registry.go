package curriculum

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/chatty/internal/domain"
)

// Store is the read-only lesson catalog consumed by the progression engine.
// Implementations must be safe for concurrent reads.
type Store interface {
	// Ladder returns the ordered levels
	Ladder() domain.Ladder

	// LessonsFor returns the ordered lessons of a level
	LessonsFor(level domain.Level) ([]domain.Lesson, error)

	// LessonAt returns one lesson by 0-based index
	LessonAt(level domain.Level, index int) (domain.Lesson, error)

	// LessonCount returns the number of lessons in a level
	LessonCount(level domain.Level) (int, error)
}

// Ensure Registry implements Store
var _ Store = (*Registry)(nil)

// Registry holds a loaded curriculum in memory
type Registry struct {
	loader  *Loader
	mu      sync.RWMutex
	version string
	ladder  domain.Ladder
	lessons map[domain.Level][]domain.Lesson
	loaded  bool
}

// NewRegistry creates a registry backed by a loader
func NewRegistry(loader *Loader) *Registry {
	return &Registry{
		loader:  loader,
		lessons: make(map[domain.Level][]domain.Lesson),
	}
}

// NewStaticRegistry creates a registry from an already built catalog
func NewStaticRegistry(catalog *Catalog) (*Registry, error) {
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	r := &Registry{}
	r.install(catalog)
	return r, nil
}

// Load reads the curriculum through the loader. A registry is loaded once;
// stored learner cursors are only valid against the catalog they were made
// with.
func (r *Registry) Load() error {
	if r.loader == nil {
		return fmt.Errorf("registry has no loader")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return fmt.Errorf("curriculum from %s is already loaded", r.loader.Source())
	}

	catalog, err := r.loader.LoadAll()
	if err != nil {
		return fmt.Errorf("load curriculum from %s: %w", r.loader.Source(), err)
	}
	r.install(catalog)
	return nil
}

func (r *Registry) install(catalog *Catalog) {
	r.version = catalog.Version
	r.ladder = append(domain.Ladder(nil), catalog.Ladder...)
	r.lessons = make(map[domain.Level][]domain.Lesson, len(catalog.Lessons))
	for level, lessons := range catalog.Lessons {
		r.lessons[level] = append([]domain.Lesson(nil), lessons...)
	}
	r.loaded = true
}

// Ladder returns a copy of the level ladder
func (r *Registry) Ladder() domain.Ladder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(domain.Ladder(nil), r.ladder...)
}

// LessonsFor returns a copy of the level's lessons
func (r *Registry) LessonsFor(level domain.Level) ([]domain.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lessons, ok := r.lessons[level]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLevel, level)
	}
	return append([]domain.Lesson(nil), lessons...), nil
}

// LessonAt returns the lesson at index within level
func (r *Registry) LessonAt(level domain.Level, index int) (domain.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lessons, ok := r.lessons[level]
	if !ok {
		return domain.Lesson{}, fmt.Errorf("%w: %s", domain.ErrUnknownLevel, level)
	}
	if index < 0 || index >= len(lessons) {
		return domain.Lesson{}, fmt.Errorf("%w: %s #%d", domain.ErrLessonNotFound, level, index)
	}
	return lessons[index], nil
}

// LessonCount returns the number of lessons in level
func (r *Registry) LessonCount(level domain.Level) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lessons, ok := r.lessons[level]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownLevel, level)
	}
	return len(lessons), nil
}

// Stats returns statistics about the loaded curriculum
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		Version:    r.version,
		LevelCount: len(r.ladder),
		ByLevel:    make(map[domain.Level]int, len(r.ladder)),
	}
	for _, level := range r.ladder {
		n := len(r.lessons[level])
		stats.ByLevel[level] = n
		stats.LessonCount += n
	}
	return stats
}

// RegistryStats holds statistics about the registry
type RegistryStats struct {
	Version     string
	LevelCount  int
	LessonCount int
	ByLevel     map[domain.Level]int
}
