package cmd

import "github.com/spf13/viper"

func settingDefaultConfig() {
	// Enable automatic environment variable binding
	viper.AutomaticEnv()

	// Map environment variables to Viper keys for the embedding provider
	viper.BindEnv("embedding.url", "EMBEDDING_URL")
	viper.BindEnv("embedding.api_key", "EMBEDDING_API_KEY")
	viper.BindEnv("embedding.model", "EMBEDDING_MODEL")
	viper.BindEnv("embedding.concurrency", "EMBEDDING_CONCURRENCY")

	// Map environment variables to Viper keys for the index stores
	viper.BindEnv("weaviate.url", "WEAVIATE_URL")
	viper.BindEnv("elasticsearch.url", "ELASTICSEARCH_URL")

	// Map environment variables to Viper keys for the server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")

	// Map environment variables to Viper keys for packaged corpus sources
	viper.BindEnv("corpus.data_root", "CORPUS_DATA_ROOT")
	viper.BindEnv("corpus.primary_path", "CORPUS_PRIMARY_PATH")
	viper.BindEnv("corpus.secondary_path", "CORPUS_SECONDARY_PATH")
	viper.BindEnv("corpus.taxonomy_path", "CORPUS_TAXONOMY_PATH")

	// Set default values for the embedding provider
	viper.SetDefault("embedding.url", "https://api.openai.com/v1")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.concurrency", 5)

	// Set default values for the index stores
	viper.SetDefault("weaviate.url", "weaviate:8080")
	viper.SetDefault("elasticsearch.url", "http://elasticsearch:9200")

	// Set default values for the server
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdown_timeout", "5s")

	// Set default values for packaged corpus sources
	viper.SetDefault("corpus.data_root", "./data")
	viper.SetDefault("corpus.primary_path", "ifrs_s2.md")
	viper.SetDefault("corpus.primary_name", "IFRS S2")
	viper.SetDefault("corpus.secondary_path", "ifrs_s1.md")
	viper.SetDefault("corpus.secondary_name", "IFRS S1")
	viper.SetDefault("corpus.taxonomy_path", "sasb_taxonomy.md")
	viper.SetDefault("corpus.taxonomy_name", "SASB Standards")
}
