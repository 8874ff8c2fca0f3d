package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/pcp/internal/config"
	"github.com/vexxhost/pcp/internal/xcperr"
)

// expandGlobs turns each source pattern into the matching directory
// entries. A pattern with no metacharacters passes through untouched. What
// happens to a pattern that matches nothing is a policy choice: drop keeps
// the historical silent behaviour, error fails pre-flight.
func expandGlobs(cfg *config.Config, patterns []string) ([]string, error) {
	var sources []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			sources = append(sources, pattern)
			continue
		}

		matches, err := matchPattern(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			if cfg.GlobPolicy == config.GlobErrorUnmatched {
				return nil, xcperr.NewPath(xcperr.InvalidArguments, pattern,
					fmt.Errorf("pattern matched nothing"))
			}
			log.WithField("pattern", pattern).Warn("⚠️ pattern matched nothing, dropped")
			continue
		}
		sources = append(sources, matches...)
	}
	return sources, nil
}

// matchPattern matches the basename component of pattern against the
// entries of its parent directory.
func matchPattern(pattern string) ([]string, error) {
	dir, base := filepath.Split(pattern)
	if dir == "" {
		dir = "."
	}

	g, err := glob.Compile(base)
	if err != nil {
		return nil, xcperr.NewPath(xcperr.InvalidArguments, pattern, fmt.Errorf("bad pattern: %w", err))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, xcperr.NewPath(xcperr.InvalidSource, dir, err)
	}

	var matches []string
	for _, entry := range entries {
		if g.Match(entry.Name()) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(matches)
	return matches, nil
}
