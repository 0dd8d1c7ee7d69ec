// =============================================================================
// PCA Consolidation - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, which drafts one section of a
// DFD, TR or Edital with the configured generator (canned texts or Gemini).
//
// COMMAND USAGE:
//   pca generate --kind TR --section objeto --object "Papel A4"
//   pca generate --kind DFD --section justificativa --document <id>
//   pca generate --kind Edital --list
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pca-consolidation/internal/generation"
	"github.com/ginjaninja78/pca-consolidation/internal/logging"
)

var (
	genKind        string
	genSection     string
	genObject      string
	genSecretariat string
	genDocument    string
	genList        bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft a document section",
	Long: `The generate command drafts one section of a procurement document.

With generator.provider "canned" (the default) the text comes from built-in
templates after a short delay; with "gemini" it is written by the configured
Gemini model (PCA_GENERATOR_API_KEY must be set).

--document fills the object and secretariat from a stored DFD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()
	flags.StringVar(&genKind, "kind", string(generation.KindDFD), "Document kind: DFD, TR or Edital")
	flags.StringVar(&genSection, "section", "", "Section to draft")
	flags.StringVar(&genObject, "object", "", "Description of what is being procured")
	flags.StringVar(&genSecretariat, "secretaria", "", "Requesting secretariat")
	flags.StringVar(&genDocument, "document", "", "Take object and secretariat from this DFD")
	flags.BoolVar(&genList, "list", false, "List the sections of the kind")
}

func runGenerate(ctx context.Context) error {
	kind, err := generation.ParseKind(genKind)
	if err != nil {
		return err
	}

	if genList {
		fmt.Printf("%s sections: %s\n", kind, strings.Join(generation.Sections(kind), ", "))
		return nil
	}
	if genSection == "" {
		return fmt.Errorf("--section is required (available: %s)", strings.Join(generation.Sections(kind), ", "))
	}

	req := generation.Request{
		Kind:        kind,
		Section:     genSection,
		Object:      genObject,
		Secretariat: genSecretariat,
	}

	if genDocument != "" {
		s, err := openStore(ctx, mainConfig)
		if err != nil {
			return err
		}
		doc, err := s.GetDocument(ctx, genDocument)
		s.Close()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(doc.Items))
		for _, it := range doc.Items {
			names = append(names, it.Description)
		}
		if req.Object == "" {
			req.Object = strings.Join(names, ", ")
		}
		if req.Secretariat == "" {
			req.Secretariat = doc.Secretariat
		}
	}

	gen, err := generation.New(ctx, mainConfig.Generator)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Debug().
		Str("provider", mainConfig.Generator.Provider).
		Str("kind", string(kind)).
		Str("section", genSection).
		Msg("generating section")

	text, err := gen.Generate(ctx, req)
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}
