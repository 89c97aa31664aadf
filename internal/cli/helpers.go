package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger configures the application logger on stderr, keeping stdout for results.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	return logging.NewWithFormat(os.Stderr, cfg.Format, logging.ParseLevel(cfg.Level))
}

// ParseVars parses name=value pairs.
func ParseVars(pairs []string) (domain.Variables, error) {
	vars := domain.Variables{}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q: expected name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid variable %q: %w", pair, err)
		}
		vars[name] = v
	}
	return vars, nil
}

// ParseParams parses name=low:high sensitivity bounds, keeping their order.
func ParseParams(specs []string) ([]domain.SensitivityParam, error) {
	params := make([]domain.SensitivityParam, 0, len(specs))
	for _, spec := range specs {
		name, bounds, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid param %q: expected name=low:high", spec)
		}
		lowRaw, highRaw, ok := strings.Cut(bounds, ":")
		if !ok {
			return nil, fmt.Errorf("invalid param %q: expected name=low:high", spec)
		}
		low, err := strconv.ParseFloat(strings.TrimSpace(lowRaw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid param %q: %w", spec, err)
		}
		high, err := strconv.ParseFloat(strings.TrimSpace(highRaw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid param %q: %w", spec, err)
		}
		params = append(params, domain.SensitivityParam{VariableName: name, Low: low, High: high})
	}
	return params, nil
}

// ReadModel resolves ref as a model file on disk, falling back to a library id.
func ReadModel(ctx context.Context, eng *arbor.Engine, ref string) (*arbor.Model, error) {
	data, err := os.ReadFile(ref)
	switch {
	case err == nil:
		var doc *arbor.Model
		switch strings.ToLower(filepath.Ext(ref)) {
		case ".yaml", ".yml":
			doc, err = eng.ParseModelYAML(data)
		default:
			doc, err = eng.ParseModel(data)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		if doc.ID == "" {
			doc.ID = strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
		}
		return doc, nil
	case errors.Is(err, os.ErrNotExist):
		if eng.Loader() == nil {
			return nil, fmt.Errorf("model %s: no such file and no library configured", ref)
		}
		return eng.LoadModel(ctx, ref)
	default:
		return nil, err
	}
}

// Output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Render writes v to w. Text goes through glamour on a terminal; markdown is
// always raw.
func Render(w io.Writer, format, markdown string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatMarkdown:
		_, err := io.WriteString(w, markdown)
		return err
	case FormatText, "":
		return tui.Print(w, markdown)
	default:
		return fmt.Errorf("unknown format %q (want text, json or markdown)", format)
	}
}
