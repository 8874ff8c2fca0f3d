package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vexxhost/pcp/internal/config"
	"github.com/vexxhost/pcp/internal/xcperr"
)

// Plan is the validated outcome of pre-flight: the expanded source list and
// the resolved destination.
type Plan struct {
	Sources   []string
	Dest      string
	DestIsDir bool
}

// Preflight validates the argument list and expands glob patterns. Every
// check here fails fast, before any file is opened for write. The order
// matches what a user would be told first: argument shape, then
// destination shape, then each source.
func Preflight(cfg *config.Config, args []string) (*Plan, error) {
	if len(args) < 2 {
		return nil, xcperr.New(xcperr.InvalidArguments,
			fmt.Errorf("need at least one source and a destination, got %d arguments", len(args)))
	}

	dest := args[len(args)-1]
	patterns := args[:len(args)-1]

	destInfo, statErr := os.Stat(dest)
	destExists := statErr == nil
	destIsDir := destExists && destInfo.IsDir()

	if len(patterns) > 1 && !destIsDir {
		return nil, xcperr.NewPath(xcperr.InvalidDestination, dest,
			fmt.Errorf("multiple sources but destination is not a directory"))
	}

	sources := patterns
	if cfg.Glob {
		var err error
		sources, err = expandGlobs(cfg, patterns)
		if err != nil {
			return nil, err
		}
		if len(sources) == 0 {
			return nil, xcperr.New(xcperr.InvalidArguments,
				fmt.Errorf("no sources left after glob expansion"))
		}
		if len(sources) > 1 && !destIsDir {
			return nil, xcperr.NewPath(xcperr.InvalidDestination, dest,
				fmt.Errorf("multiple sources but destination is not a directory"))
		}
	}

	if destExists && !destIsDir && cfg.NoClobber {
		return nil, xcperr.NewPath(xcperr.InvalidDestination, dest,
			fmt.Errorf("exists and --no-clobber is set"))
	}

	for _, src := range sources {
		fi, err := os.Lstat(src)
		if err != nil {
			return nil, xcperr.NewPath(xcperr.InvalidSource, src, err)
		}
		if fi.IsDir() && !cfg.Recursive {
			return nil, xcperr.NewPath(xcperr.InvalidSource, src,
				fmt.Errorf("is a directory (use --recursive)"))
		}

		target := dest
		if destIsDir {
			target = filepath.Join(dest, filepath.Base(src))
		}
		same, err := IsSameFile(src, target)
		if err != nil {
			return nil, err
		}
		if same {
			return nil, xcperr.NewPath(xcperr.InvalidDestination, target,
				fmt.Errorf("same file as source %s", src))
		}
	}

	return &Plan{Sources: sources, Dest: dest, DestIsDir: destIsDir}, nil
}

// IsSameFile reports whether the two paths resolve to the same inode on the
// same device. A missing path on either side is simply not the same file.
func IsSameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, xcperr.NewPath(xcperr.IO, a, err)
	}
	bi, err := os.Stat(b)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, xcperr.NewPath(xcperr.IO, b, err)
	}
	return os.SameFile(ai, bi), nil
}
