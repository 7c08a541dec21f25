package cmd

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"esgrag/src/core/chunking"
	"esgrag/src/core/corpus"
	"esgrag/src/log"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [corpus-kind...]",
	Short: "Ingest packaged shared corpora into the indexes",
	Long: `The ingest command chunks, embeds and indexes the packaged source of
each named shared corpus. With no arguments every shared corpus is
ingested. Corpora that already hold chunks are skipped.`,
	Run: RunIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func RunIngest(cmd *cobra.Command, args []string) {
	kinds, err := ingestKinds(args)
	if err != nil {
		log.Error(err, "Invalid corpus kind")
		return
	}

	store, err := buildStore()
	if err != nil {
		log.Error(err, "Failed to create chunk store")
		return
	}
	if err := store.EnsureReady(cmd.Context()); err != nil {
		log.Error(err, "Failed to prepare indexes")
		return
	}

	ingestService, _ := buildServices(store)

	bar := progressbar.NewOptions(len(kinds),
		progressbar.OptionSetDescription("ingesting corpora"),
		progressbar.OptionShowCount(),
	)

	for _, kind := range kinds {
		report, err := ingestService.IngestSharedCorpus(cmd.Context(), kind)
		if err != nil {
			fmt.Println()
			log.Error(err, "Ingestion failed", "kind", kind)
			return
		}
		bar.Add(1)
		log.Info("Corpus ingested", "kind", kind, "status", report.Status, "chunks", report.ChunkCount)
	}
	fmt.Println()
}

func ingestKinds(args []string) ([]chunking.CorpusKind, error) {
	if len(args) == 0 {
		return []chunking.CorpusKind{
			chunking.KindRegulatoryPrimary,
			chunking.KindRegulatorySecondary,
			chunking.KindIndustryTaxonomy,
		}, nil
	}

	kinds := make([]chunking.CorpusKind, 0, len(args))
	for _, arg := range args {
		kind, err := chunking.ParseCorpusKind(arg)
		if err != nil {
			return nil, err
		}
		if !kind.Shared() {
			return nil, fmt.Errorf("%w: %q", corpus.ErrNotSharedCorpus, kind)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
