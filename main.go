// =============================================================================
// PCA Consolidation - Main Entry Point
// =============================================================================
//
// This is the main entry point for the pca CLI. It delegates command
// execution to the cmd package.
//
// USAGE:
//   pca consolidate   - Consolidate demand into the annual procurement plan
//   pca schedule      - Show the licitação schedule
//   pca import        - Import demand exports into the document store
//   pca dfd           - Manage DFDs (new, submit, approve, reject, list)
//   pca generate      - Draft a DFD, TR or Edital section
//   pca version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Consolidation, ingest, store and report logic
//   - pkg/           : Shared file management utilities
//   - sources/       : Source profiles, one per export layout
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/pca-consolidation/cmd"
)

func main() {
	cmd.Execute()
}
