package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"esgrag/src/core/chunking"
	"esgrag/src/core/corpus"
	"esgrag/src/log"
)

var (
	searchTopK  int
	searchMode  string
	searchKinds []string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a ranked retrieval query from the command line",
	Args:  cobra.ExactArgs(1),
	Run:   RunSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", corpus.DefaultTopK, "number of results to return")
	searchCmd.Flags().StringVar(&searchMode, "mode", string(corpus.ModeHybrid), "retrieval mode: semantic, lexical or hybrid")
	searchCmd.Flags().StringSliceVar(&searchKinds, "kinds", nil, "corpus kinds to search (default all)")
	rootCmd.AddCommand(searchCmd)
}

func RunSearch(cmd *cobra.Command, args []string) {
	kinds := make([]chunking.CorpusKind, 0, len(searchKinds))
	for _, raw := range searchKinds {
		kinds = append(kinds, chunking.CorpusKind(raw))
	}

	store, err := buildStore()
	if err != nil {
		log.Error(err, "Failed to create chunk store")
		return
	}

	_, searchService := buildServices(store)

	results, err := searchService.Search(cmd.Context(), corpus.SearchRequest{
		Query: args[0],
		TopK:  searchTopK,
		Mode:  corpus.SearchMode(searchMode),
		Kinds: kinds,
	})
	if err != nil {
		log.Error(err, "Search failed")
		return
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return
	}
	for i, r := range results {
		fmt.Printf("%2d. [%.4f] (%s, %s) %s\n", i+1, r.Score, r.Kind, r.Method, firstLine(r.Text))
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
