package parsers

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

// Router picks a parser from the artifact's file name.
type Router struct {
	Browser evidence.Parser
	AuthLog evidence.Parser
	Binary  evidence.Parser
}

func NewRouter() *Router {
	return &Router{
		Browser: NewBrowserParser(),
		AuthLog: NewAuthLogParser(),
		Binary:  NewBinaryParser(),
	}
}

// KindFor reports which parser handles name.
func KindFor(name string) evidence.Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return evidence.KindBrowser
	case ".log", ".txt":
		return evidence.KindAuthLog
	case ".exe", ".bin", ".dll":
		return evidence.KindBinary
	default:
		return evidence.KindUnsupported
	}
}

// Parse routes path (stored under name) to its parser. A log or text file
// that yields nothing but looks like a renamed binary is fingerprinted instead.
func (r *Router) Parse(ctx context.Context, name, path string) (evidence.Kind, []evidence.Event, error) {
	kind := KindFor(name)
	switch kind {
	case evidence.KindBrowser:
		events, err := r.Browser.Parse(ctx, path)
		return kind, events, err

	case evidence.KindAuthLog:
		events, err := r.AuthLog.Parse(ctx, path)
		lower := strings.ToLower(name)
		if len(events) == 0 && (strings.Contains(lower, ".exe") || strings.Contains(lower, ".bin")) {
			// a read error is moot when the file is fingerprinted as a binary
			events, err = r.Binary.Parse(ctx, path)
			return evidence.KindBinary, events, err
		}
		return kind, events, err

	case evidence.KindBinary:
		events, err := r.Binary.Parse(ctx, path)
		return kind, events, err
	}
	return kind, nil, nil
}
