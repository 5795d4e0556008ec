package facts

import (
	"path/filepath"
	"strings"

	"github.com/toyz/spectra/internal/utils"
)

// Analyzer is the capability every front-end provides. Analyze must only read
// its input and return a private result set; errors are syntax failures for
// the whole file.
type Analyzer interface {
	Name() string
	Extensions() []string
	Analyze(content []byte, path string) (*FileFacts, error)
}

// Registry dispatches files to analyzers by extension
type Registry struct {
	byExt *utils.BaseRegistry[string, Analyzer]
	order []Analyzer
}

// NewRegistry creates an empty analyzer registry
func NewRegistry() *Registry {
	byExt := utils.NewBaseRegistry[string, Analyzer]("analyzer")
	byExt.SetValidator(utils.ChainValidators(
		utils.NotEmptyKeyValidator[Analyzer]("extension"),
		utils.NoDuplicateValidator[string, Analyzer]("extension"),
	))
	return &Registry{byExt: byExt}
}

// Register adds an analyzer for each of its extensions. Claiming an extension
// another analyzer already owns is an error and leaves the registry unchanged.
func (r *Registry) Register(a Analyzer) error {
	exts := make([]string, 0, len(a.Extensions()))
	for _, ext := range a.Extensions() {
		ext = normalizeExt(ext)
		if r.byExt.Has(ext) {
			existing, _ := r.byExt.Get(ext)
			return &duplicateExtError{ext: ext, owner: existing.Name(), claimant: a.Name()}
		}
		exts = append(exts, ext)
	}
	for _, ext := range exts {
		if err := r.byExt.Register(ext, a); err != nil {
			return err
		}
	}
	r.order = append(r.order, a)
	return nil
}

// ForPath returns the analyzer responsible for path
func (r *Registry) ForPath(path string) (Analyzer, bool) {
	return r.byExt.Get(normalizeExt(filepath.Ext(path)))
}

// Extensions lists every registered extension in sorted order
func (r *Registry) Extensions() []string {
	return r.byExt.SortedKeys()
}

// Analyzers lists analyzers in registration order
func (r *Registry) Analyzers() []Analyzer {
	out := make([]Analyzer, len(r.order))
	copy(out, r.order)
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

type duplicateExtError struct {
	ext      string
	owner    string
	claimant string
}

func (e *duplicateExtError) Error() string {
	return "extension '" + e.ext + "' is already handled by " + e.owner + " (requested by " + e.claimant + ")"
}
