package cmd

import (
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"

	"esgrag/src/core/chunking"
	"esgrag/src/core/corpus"
	"esgrag/src/embedding"
	"esgrag/src/fsutil"
	"esgrag/src/storage"
	elasticStore "esgrag/src/storage/elastic"
	weaviateStore "esgrag/src/storage/weaviate"
)

// counterpartPairs links climate-standard paragraphs to the general
// requirement they specialize. Attached to chunk metadata so a consumer
// can cite both sides.
var counterpartPairs = map[string]string{
	"S2.5":  "S1.26",
	"S2.6":  "S1.27",
	"S2.8":  "S1.28",
	"S2.24": "S1.43",
	"S2.25": "S1.44",
	"S2.27": "S1.50",
}

// standardCodes maps source-name keywords to the code recorded on
// taxonomy chunks.
var standardCodes = map[string]string{
	"sasb":    "SASB",
	"ifrs s1": "IFRS-S1",
	"ifrs s2": "IFRS-S2",
	"esrs":    "ESRS",
}

func buildSourceSet() corpus.SourceSet {
	return corpus.SourceSet{
		chunking.KindRegulatoryPrimary: {
			Name: viper.GetString("corpus.primary_name"),
			Path: viper.GetString("corpus.primary_path"),
		},
		chunking.KindRegulatorySecondary: {
			Name: viper.GetString("corpus.secondary_name"),
			Path: viper.GetString("corpus.secondary_path"),
		},
		chunking.KindIndustryTaxonomy: {
			Name: viper.GetString("corpus.taxonomy_name"),
			Path: viper.GetString("corpus.taxonomy_path"),
		},
	}
}

func buildEmbedder() *embedding.Client {
	return embedding.NewClient(
		viper.GetString("embedding.url"),
		viper.GetString("embedding.api_key"),
		&http.Client{Timeout: 60 * time.Second},
		embedding.WithModel(viper.GetString("embedding.model")),
		embedding.WithConcurrency(viper.GetInt("embedding.concurrency")),
	)
}

func buildStore() (*storage.Store, error) {
	wc := weaviateClient.New(weaviateClient.Config{
		Host:   viper.GetString("weaviate.url"),
		Scheme: "http",
	})

	ec, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{viper.GetString("elasticsearch.url")},
	})
	if err != nil {
		return nil, err
	}

	return storage.NewStore(weaviateStore.NewSDK(wc), elasticStore.NewSDK(ec)), nil
}

func buildServices(store *storage.Store) (corpus.IngestionService, corpus.SearchService) {
	embedder := buildEmbedder()

	ingestService := corpus.NewIngestionService(
		store,
		embedder,
		fsutil.NewLocalFileStore(),
		viper.GetString("corpus.data_root"),
		buildSourceSet(),
		corpus.WithCounterpartRegistry(chunking.NewCounterpartRegistry(counterpartPairs)),
		corpus.WithStandardCodeTable(chunking.NewStandardCodeTable(standardCodes)),
	)
	searchService := corpus.NewSearchService(store, embedder)
	return ingestService, searchService
}
