package report

import (
	"bufio"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Built-in ordering names. Any other name resolves to a custom ordering
// file under the order root.
const (
	BatchChronological = "chronological"
	BatchReverse       = "reverse"
	BatchAscending     = "ascending"
	BatchDescending    = "descending"
	BatchRandom        = "random"
	BatchEnglish       = "english"
	BatchForeign       = "foreign"
	BatchInteresting   = "interesting"
)

// Store lists tests and their orderings. Orderings are built lazily,
// cached, and invalidated when the report root changes on disk.
type Store struct {
	root        string // directory of per-test report directories
	orderRoot   string // directory of custom ordering files
	interesting []string
	log         *zap.Logger

	mu        sync.RWMutex
	orderings map[string][]string
	gen       uint64

	group   singleflight.Group
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore creates a Store over the given report root. A watcher on the
// root keeps the ordering cache fresh; if watching fails the store
// still works, it just caches forever.
func NewStore(root, orderRoot string, interesting []string, log *zap.Logger) *Store {
	s := &Store{
		root:        root,
		orderRoot:   orderRoot,
		interesting: interesting,
		log:         log,
		orderings:   make(map[string][]string),
		done:        make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(root)
	}
	if err != nil {
		log.Warn("report root not watchable, ordering cache will not refresh",
			zap.String("root", root), zap.Error(err))
		if watcher != nil {
			watcher.Close()
		}
		return s
	}

	s.watcher = watcher
	go s.watch()
	return s
}

// Close stops the filesystem watcher.
func (s *Store) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) watch() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.log.Info("report root changed, invalidating orderings",
					zap.String("path", ev.Name))
				s.Invalidate()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("report watcher error", zap.Error(err))
		}
	}
}

// Invalidate drops all cached orderings.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.orderings = make(map[string][]string)
	s.gen++
	s.mu.Unlock()
}

// Generation increases every time the cache is invalidated. Callers
// holding derived caches compare generations to decide on a rebuild.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Root returns the report root directory.
func (s *Store) Root() string { return s.root }

// TestDir returns the directory of a single test.
func (s *Store) TestDir(test string) string {
	return filepath.Join(s.root, test)
}

// Tests returns the test names in the given ordering. Unknown custom
// orderings resolve to an empty list.
func (s *Store) Tests(batch string) []string {
	s.mu.RLock()
	cached, ok := s.orderings[batch]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	// Orderings come in pairs (chronological/reverse and so on); build
	// the whole group once even under concurrent requests.
	key := groupKey(batch)
	built, _, _ := s.group.Do(key, func() (interface{}, error) {
		return s.build(key), nil
	})

	s.mu.Lock()
	for name, tests := range built.(map[string][]string) {
		s.orderings[name] = tests
	}
	result := s.orderings[batch]
	s.mu.Unlock()
	return result
}

// Contains reports whether the test appears in the ordering.
func (s *Store) Contains(test, batch string) bool {
	for _, t := range s.Tests(batch) {
		if t == test {
			return true
		}
	}
	return false
}

// First returns the first test of an ordering, or "" when empty.
func (s *Store) First(batch string) string {
	tests := s.Tests(batch)
	if len(tests) == 0 {
		return ""
	}
	return tests[0]
}

// Random returns a random test of an ordering, or "" when empty.
func (s *Store) Random(batch string) string {
	tests := s.Tests(batch)
	if len(tests) == 0 {
		return ""
	}
	return tests[rand.Intn(len(tests))]
}

// Next returns the test after the given one, EndOfBatch past the last
// test, and "" when the test is not in the ordering.
func (s *Store) Next(test, batch string) string {
	tests := s.Tests(batch)
	for i, t := range tests {
		if t == test {
			if i+1 < len(tests) {
				return tests[i+1]
			}
			return EndOfBatch
		}
	}
	return ""
}

// Prev returns the test before the given one, or "" at the start (or
// when the test is not in the ordering).
func (s *Store) Prev(test, batch string) string {
	tests := s.Tests(batch)
	for i, t := range tests {
		if t == test {
			if i > 0 {
				return tests[i-1]
			}
			return ""
		}
	}
	return ""
}

// groupKey maps an ordering to the name of the group built together.
func groupKey(batch string) string {
	switch batch {
	case BatchChronological, BatchReverse:
		return BatchChronological
	case BatchAscending, BatchDescending:
		return BatchAscending
	case BatchEnglish, BatchForeign:
		return BatchEnglish
	default:
		return batch
	}
}

func (s *Store) build(key string) map[string][]string {
	switch key {
	case BatchChronological:
		return s.buildChronological()
	case BatchAscending:
		return s.buildByEffect()
	case BatchEnglish:
		return s.buildByLanguage()
	case BatchRandom:
		return s.buildRandom()
	case BatchInteresting:
		return s.buildInteresting()
	default:
		return s.buildCustom(key)
	}
}

// listTestDirs returns the names of all per-test directories.
func (s *Store) listTestDirs() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.log.Error("cannot list report root", zap.String("root", s.root), zap.Error(err))
		return nil
	}
	var tests []string
	for _, e := range entries {
		if e.IsDir() {
			tests = append(tests, e.Name())
		}
	}
	return tests
}

// buildChronological orders tests by their meta timestamp. Timestamp
// collisions are nudged forward one second so no test is lost.
func (s *Store) buildChronological() map[string][]string {
	byTime := make(map[int64]string)
	for _, test := range s.listTestDirs() {
		meta, err := ReadMeta(s.TestDir(test))
		if err != nil {
			s.log.Debug("skipping test without usable meta",
				zap.String("test", test), zap.Error(err))
			continue
		}
		ts := meta.Time
		for {
			if existing, taken := byTime[ts]; taken && existing != test {
				ts++
				continue
			}
			byTime[ts] = test
			break
		}
	}

	keys := make([]int64, 0, len(byTime))
	for ts := range byTime {
		keys = append(keys, ts)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	chron := make([]string, len(keys))
	for i, ts := range keys {
		chron[i] = byTime[ts]
	}
	return map[string][]string{
		BatchChronological: chron,
		BatchReverse:       reversed(chron),
	}
}

// buildByEffect orders tests by effect size (bestguess), nudging
// collisions by a thousandth.
func (s *Store) buildByEffect() map[string][]string {
	byGuess := make(map[float64]string)
	for _, test := range s.listTestDirs() {
		meta, err := ReadMeta(s.TestDir(test))
		if err != nil {
			continue
		}
		g := meta.BestGuess
		for {
			if existing, taken := byGuess[g]; taken && existing != test {
				g += 0.001
				continue
			}
			byGuess[g] = test
			break
		}
	}

	keys := make([]float64, 0, len(byGuess))
	for g := range byGuess {
		keys = append(keys, g)
	}
	sort.Float64s(keys)

	asc := make([]string, len(keys))
	for i, g := range keys {
		asc[i] = byGuess[g]
	}
	return map[string][]string{
		BatchAscending:  asc,
		BatchDescending: reversed(asc),
	}
}

// buildByLanguage splits the chronological ordering into English tests
// (language en, or the yy placeholder) and everything else.
func (s *Store) buildByLanguage() map[string][]string {
	var english, foreign []string
	for _, test := range s.Tests(BatchChronological) {
		meta, err := ReadMeta(s.TestDir(test))
		if err != nil {
			continue
		}
		switch strings.ToLower(meta.Language) {
		case "en", "yy":
			english = append(english, test)
		default:
			foreign = append(foreign, test)
		}
	}
	return map[string][]string{
		BatchEnglish: english,
		BatchForeign: foreign,
	}
}

func (s *Store) buildRandom() map[string][]string {
	tests := s.listTestDirs()
	rand.Shuffle(len(tests), func(i, j int) {
		tests[i], tests[j] = tests[j], tests[i]
	})
	return map[string][]string{BatchRandom: tests}
}

// buildInteresting keeps the configured hand-picked tests that exist.
func (s *Store) buildInteresting() map[string][]string {
	var existing []string
	for _, test := range s.interesting {
		if s.Contains(test, BatchChronological) {
			existing = append(existing, test)
		}
	}
	return map[string][]string{BatchInteresting: existing}
}

// buildCustom reads an ordering file, one test name per line.
func (s *Store) buildCustom(batch string) map[string][]string {
	path := filepath.Join(s.orderRoot, batch+".txt")
	f, err := os.Open(path)
	if err != nil {
		s.log.Warn("unknown ordering", zap.String("batch", batch), zap.Error(err))
		return map[string][]string{batch: {}}
	}
	defer f.Close()

	var tests []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			tests = append(tests, line)
		}
	}
	return map[string][]string{batch: tests}
}

func reversed(xs []string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}
