// =============================================================================
// PCA Consolidation - DFD Commands
// =============================================================================
//
// This file defines the 'dfd' command group, which manages Documentos de
// Formalização da Demanda in the document store.
//
// COMMAND USAGE:
//   pca dfd new -f draft.yaml [--generate-justification]
//   pca dfd submit <id>
//   pca dfd approve <id>
//   pca dfd reject <id>
//   pca dfd list [--status pendente]
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pca-consolidation/internal/format"
	"github.com/ginjaninja78/pca-consolidation/internal/generation"
	"github.com/ginjaninja78/pca-consolidation/internal/store"
	"github.com/ginjaninja78/pca-consolidation/internal/wizard"
)

var (
	draftFile             string
	generateJustification bool
	listStatus            string
)

var dfdCmd = &cobra.Command{
	Use:   "dfd",
	Short: "Manage DFDs in the document store",
}

var dfdNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Register a DFD from a YAML draft",
	Long: `The new command runs a YAML draft through the DFD steps
(Identificacao, Itens, Justificativa, Revisao) and stores the result as a
pending DFD. Every step is checked; the first failing step is reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDFDNew(cmd.Context())
	},
}

var dfdSubmitCmd = &cobra.Command{
	Use:   "submit <id>",
	Short: "Submit a draft DFD for approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			return s.Submit(cmd.Context(), args[0])
		}, "submitted", args[0])
	},
}

var dfdApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending DFD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			return s.Approve(cmd.Context(), args[0])
		}, "approved", args[0])
	},
}

var dfdRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending DFD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.Store) error {
			return s.Reject(cmd.Context(), args[0])
		}, "rejected", args[0])
	},
}

var dfdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List DFDs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDFDList(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(dfdCmd)
	dfdCmd.AddCommand(dfdNewCmd, dfdSubmitCmd, dfdApproveCmd, dfdRejectCmd, dfdListCmd)

	dfdNewCmd.Flags().StringVarP(&draftFile, "file", "f", "", "YAML draft of the DFD")
	dfdNewCmd.MarkFlagRequired("file")
	dfdNewCmd.Flags().BoolVar(&generateJustification, "generate-justification", false,
		"Draft the justification with the configured generator when the draft has none")

	dfdListCmd.Flags().StringVar(&listStatus, "status", "", "Only DFDs with this status (rascunho, pendente, aprovado, rejeitado)")
}

func runDFDNew(ctx context.Context) error {
	draft, err := wizard.LoadDraft(draftFile)
	if err != nil {
		return err
	}

	if generateJustification && strings.TrimSpace(draft.Justification) == "" {
		gen, err := generation.New(ctx, mainConfig.Generator)
		if err != nil {
			return err
		}
		text, err := gen.Generate(ctx, generation.Request{
			Kind:        generation.KindDFD,
			Section:     "justificativa",
			Object:      draftObject(draft),
			Secretariat: draft.Secretariat,
		})
		if err != nil {
			return fmt.Errorf("failed to generate justification: %w", err)
		}
		draft.Justification = text
	}

	state, err := wizard.Run(draft)
	if err != nil {
		var verr *wizard.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("draft rejected at step %s:\n  - %s", verr.Step, strings.Join(verr.Problems, "\n  - "))
		}
		return err
	}

	doc, err := state.Document()
	if err != nil {
		return err
	}

	s, err := openStore(ctx, mainConfig)
	if err != nil {
		return err
	}
	defer s.Close()

	created, err := s.CreateDocument(ctx, doc)
	if err != nil {
		return err
	}

	fmt.Printf("DFD %s registered (%s, %d item(s), %s)\n",
		created.ID, created.Status, len(created.Items), format.FormatCurrency(state.Total()))
	return nil
}

// draftObject describes the draft's items for the generator.
func draftObject(draft *wizard.Draft) string {
	names := make([]string, 0, len(draft.Items))
	for _, it := range draft.Items {
		if d := strings.TrimSpace(it.Description); d != "" {
			names = append(names, d)
		}
	}
	return strings.Join(names, ", ")
}

func runDFDList(ctx context.Context) error {
	status, err := store.ParseStatus(listStatus)
	if err != nil {
		return err
	}

	s, err := openStore(ctx, mainConfig)
	if err != nil {
		return err
	}
	defer s.Close()

	docs, err := s.ListDocuments(ctx, status)
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(os.Stdout)
	table.Header("ID", "Ref.", "Secretaria", "Tipo", "Status", "Prioridade", "Data", "Itens", "Valor")
	for _, doc := range docs {
		if err := table.Append(
			doc.ID,
			doc.Reference,
			doc.Secretariat,
			doc.DocumentType,
			string(doc.Status),
			string(doc.Priority),
			format.FormatDate(doc.ContractingDate),
			fmt.Sprintf("%d", len(doc.Items)),
			format.FormatCurrency(doc.Total()),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// withStore opens the store, runs fn and reports the status change.
func withStore(ctx context.Context, fn func(*store.Store) error, verb, id string) error {
	s, err := openStore(ctx, mainConfig)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s); err != nil {
		return err
	}
	fmt.Printf("DFD %s %s\n", id, verb)
	return nil
}
