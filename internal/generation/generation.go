// =============================================================================
// PCA Consolidation - Document Text Generation
// =============================================================================
//
// This package drafts sections of procurement documents:
//   - DFD    (Documento de Formalização da Demanda)
//   - TR     (Termo de Referência)
//   - Edital (public tender notice)
//
// Two generators implement the same capability:
//   Canned  - static texts with the object substituted in, after a short
//             delay. Works offline; used by default and in tests.
//   Gemini  - asks a Gemini model through the genai SDK.
//
// =============================================================================

package generation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
)

// ErrUnknownSection is returned for a kind/section pair with no template.
var ErrUnknownSection = errors.New("unknown document section")

// Kind is a document kind.
type Kind string

const (
	KindDFD    Kind = "DFD"
	KindTR     Kind = "TR"
	KindEdital Kind = "Edital"
)

// ParseKind matches a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindDFD, KindTR, KindEdital} {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown document kind %q (expected DFD, TR or Edital)", s)
}

// Request describes the text to draft.
type Request struct {
	Kind    Kind
	Section string

	// Object is the description of what is being procured.
	Object string

	// Secretariat is the requesting secretariat, if known.
	Secretariat string
}

// Generator drafts document text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New returns the generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.GeneratorConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "canned":
		return NewCanned(cfg.CannedDelay()), nil
	case "gemini":
		return NewGemini(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

// Sections lists the sections available for kind, sorted.
func Sections(kind Kind) []string {
	out := make([]string, 0, len(templates[kind]))
	for section := range templates[kind] {
		out = append(out, section)
	}
	sort.Strings(out)
	return out
}

// lookup returns the template for a request, normalizing the section name.
func lookup(req Request) (string, error) {
	sections, ok := templates[req.Kind]
	if !ok {
		return "", fmt.Errorf("kind %q: %w", req.Kind, ErrUnknownSection)
	}
	tmpl, ok := sections[strings.ToLower(strings.TrimSpace(req.Section))]
	if !ok {
		return "", fmt.Errorf("%s section %q (available: %s): %w",
			req.Kind, req.Section, strings.Join(Sections(req.Kind), ", "), ErrUnknownSection)
	}
	return tmpl, nil
}

func objectOrDefault(object string) string {
	if s := strings.TrimSpace(object); s != "" {
		return s
	}
	return "o objeto desta contratação"
}

func secretariatOrDefault(secretariat string) string {
	if s := strings.TrimSpace(secretariat); s != "" {
		return s
	}
	return "a secretaria requisitante"
}
