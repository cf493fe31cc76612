// Package archive thins the live report tree. Keeping every test ever
// run makes checkouts huge, so all but a sample of tests move to an
// archive directory that git ignores.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"wikiguess/internal/report"
)

// DefaultKeep is how many tests stay live when no count is given.
const DefaultKeep = 30

// Sampler picks which tests stay in the live report tree.
type Sampler struct {
	reportRoot  string
	archiveRoot string
	interesting []string
	keep        int
	log         *zap.Logger
}

// Plan lists what a sampling run would do.
type Plan struct {
	Keep    []string
	Archive []string
}

// NewSampler creates a Sampler. archiveRoot is where displaced test
// directories go; keep <= 0 means DefaultKeep.
func NewSampler(reportRoot, archiveRoot string, interesting []string, keep int, log *zap.Logger) *Sampler {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Sampler{
		reportRoot:  reportRoot,
		archiveRoot: archiveRoot,
		interesting: interesting,
		keep:        keep,
		log:         log,
	}
}

// Plan decides which tests to keep: every interesting test, plus a
// sample spread evenly across the chronological range of the rest.
func (s *Sampler) Plan() (*Plan, error) {
	entries, err := os.ReadDir(s.reportRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list report root: %w", err)
	}

	pinned := make(map[string]bool, len(s.interesting))
	for _, test := range s.interesting {
		pinned[test] = true
	}

	type timed struct {
		test string
		ts   int64
	}
	var rest []timed
	plan := &Plan{}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		test := e.Name()
		if pinned[test] {
			plan.Keep = append(plan.Keep, test)
			continue
		}
		meta, err := report.ReadMeta(filepath.Join(s.reportRoot, test))
		if err != nil {
			s.log.Warn("skipping test without usable meta",
				zap.String("test", test), zap.Error(err))
			continue
		}
		rest = append(rest, timed{test: test, ts: meta.Time})
	}

	sort.Slice(rest, func(i, j int) bool { return rest[i].ts < rest[j].ts })

	if len(rest) <= s.keep {
		for _, r := range rest {
			plan.Keep = append(plan.Keep, r.test)
		}
		return plan, nil
	}

	sampled := make(map[int]bool, s.keep)
	if s.keep == 1 {
		// A single keeper: the newest test.
		sampled[len(rest)-1] = true
	} else {
		for i := 0; i < s.keep; i++ {
			sampled[i*(len(rest)-1)/(s.keep-1)] = true
		}
	}
	for i, r := range rest {
		if sampled[i] {
			plan.Keep = append(plan.Keep, r.test)
		} else {
			plan.Archive = append(plan.Archive, r.test)
		}
	}
	return plan, nil
}

// Apply moves every planned test directory into the archive root and
// makes sure git ignores it.
func (s *Sampler) Apply(plan *Plan) error {
	if len(plan.Archive) == 0 {
		s.log.Info("nothing to archive")
		return nil
	}

	if err := os.MkdirAll(s.archiveRoot, 0755); err != nil {
		return fmt.Errorf("failed to create archive root: %w", err)
	}

	for _, test := range plan.Archive {
		src := filepath.Join(s.reportRoot, test)
		dst := filepath.Join(s.archiveRoot, test)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("failed to archive %s: %w", test, err)
		}
		s.log.Info("archived", zap.String("test", test))
	}

	if err := s.ensureIgnored(); err != nil {
		s.log.Warn("could not update .gitignore", zap.Error(err))
	}
	s.log.Info("sampling done",
		zap.Int("kept", len(plan.Keep)),
		zap.Int("archived", len(plan.Archive)))
	return nil
}

// ensureIgnored adds the archive directory to the .gitignore next to
// it, once.
func (s *Sampler) ensureIgnored() error {
	// archiveRoot is <base>/report; ignore the whole base.
	base := filepath.Dir(s.archiveRoot)
	line := filepath.ToSlash(filepath.Base(base)) + "/"
	path := filepath.Join(filepath.Dir(base), ".gitignore")

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, existing := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(existing) == line {
			return nil
		}
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += line + "\n"
	return os.WriteFile(path, []byte(content), 0644)
}
