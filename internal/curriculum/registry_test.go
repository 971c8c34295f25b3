package curriculum

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/felixgeelhaar/chatty/internal/domain"
)

func testCatalog() *Catalog {
	lesson := func(level domain.Level, i int) domain.Lesson {
		return domain.Lesson{
			Level:              level,
			Index:              i,
			Title:              "lesson",
			TaskText:           "task",
			AcceptanceKeywords: []string{"ok"},
		}
	}
	return &Catalog{
		Version: "v1",
		Ladder:  domain.Ladder{domain.LevelBeginner, domain.LevelElementary},
		Lessons: map[domain.Level][]domain.Lesson{
			domain.LevelBeginner: {
				lesson(domain.LevelBeginner, 0),
				lesson(domain.LevelBeginner, 1),
				lesson(domain.LevelBeginner, 2),
			},
			domain.LevelElementary: {
				lesson(domain.LevelElementary, 0),
			},
		},
	}
}

func TestNewStaticRegistry(t *testing.T) {
	r, err := NewStaticRegistry(testCatalog())
	if err != nil {
		t.Fatalf("NewStaticRegistry() error = %v", err)
	}

	if v := r.Stats().Version; v != "v1" {
		t.Errorf("Stats().Version = %q, want v1", v)
	}

	n, err := r.LessonCount(domain.LevelBeginner)
	if err != nil {
		t.Fatalf("LessonCount() error = %v", err)
	}
	if n != 3 {
		t.Errorf("LessonCount() = %d, want 3", n)
	}
}

func TestNewStaticRegistry_Invalid(t *testing.T) {
	catalog := testCatalog()
	catalog.Lessons[domain.LevelElementary] = nil

	if _, err := NewStaticRegistry(catalog); err == nil {
		t.Error("NewStaticRegistry() expected error for empty level")
	}
}

func TestRegistry_LessonAt(t *testing.T) {
	r, _ := NewStaticRegistry(testCatalog())

	lesson, err := r.LessonAt(domain.LevelBeginner, 2)
	if err != nil {
		t.Fatalf("LessonAt() error = %v", err)
	}
	if lesson.Index != 2 {
		t.Errorf("Index = %d, want 2", lesson.Index)
	}

	if _, err := r.LessonAt(domain.LevelBeginner, 3); !errors.Is(err, domain.ErrLessonNotFound) {
		t.Errorf("LessonAt(3) error = %v, want ErrLessonNotFound", err)
	}
	if _, err := r.LessonAt(domain.LevelBeginner, -1); !errors.Is(err, domain.ErrLessonNotFound) {
		t.Errorf("LessonAt(-1) error = %v, want ErrLessonNotFound", err)
	}
	if _, err := r.LessonAt("Expert", 0); !errors.Is(err, domain.ErrUnknownLevel) {
		t.Errorf("LessonAt(Expert) error = %v, want ErrUnknownLevel", err)
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r, _ := NewStaticRegistry(testCatalog())

	lessons, _ := r.LessonsFor(domain.LevelBeginner)
	lessons[0].Title = "changed"

	again, _ := r.LessonAt(domain.LevelBeginner, 0)
	if again.Title != "lesson" {
		t.Error("LessonsFor() exposed internal storage")
	}

	ladder := r.Ladder()
	ladder[0] = "changed"
	if r.Ladder()[0] != domain.LevelBeginner {
		t.Error("Ladder() exposed internal storage")
	}
}

func TestRegistry_Stats(t *testing.T) {
	r, _ := NewStaticRegistry(testCatalog())

	stats := r.Stats()
	if stats.LevelCount != 2 {
		t.Errorf("LevelCount = %d, want 2", stats.LevelCount)
	}
	if stats.LessonCount != 4 {
		t.Errorf("LessonCount = %d, want 4", stats.LessonCount)
	}
	if stats.ByLevel[domain.LevelBeginner] != 3 {
		t.Errorf("ByLevel[Beginner] = %d, want 3", stats.ByLevel[domain.LevelBeginner])
	}
}

func TestRegistry_LoadsOnce(t *testing.T) {
	dir := writeTestCurriculum(t)
	r := NewRegistry(NewLoader(dir))
	if err := r.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "elementary.yaml")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := r.Load(); err == nil {
		t.Fatal("second Load() expected error")
	}

	if n, err := r.LessonCount(domain.LevelElementary); err != nil || n != 1 {
		t.Errorf("LessonCount() = %d, %v after second Load()", n, err)
	}
}

func TestRegistry_LoadFailure(t *testing.T) {
	dir := writeTestCurriculum(t)
	if err := os.Remove(filepath.Join(dir, "elementary.yaml")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	r := NewRegistry(NewLoader(dir))
	if err := r.Load(); err == nil {
		t.Fatal("Load() expected error")
	}
	if len(r.Ladder()) != 0 {
		t.Errorf("Ladder() = %v after failed Load(), want empty", r.Ladder())
	}
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r, _ := NewStaticRegistry(testCatalog())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.LessonAt(domain.LevelBeginner, n%3)
			r.Ladder()
			r.Stats()
		}(i)
	}
	wg.Wait()
}

func TestOpen_EmptyPathUsesDefault(t *testing.T) {
	r, err := Open("")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !r.Ladder().Contains(domain.LevelAdvanced) {
		t.Error("default curriculum should contain Advanced")
	}
}
