package main

import (
	"context"
	"fmt"
	"log"

	"github.com/w-h-a/kbstore"
	"github.com/w-h-a/kbstore/config"
	"github.com/w-h-a/kbstore/content"
)

func main() {
	ctx := context.Background()

	// Load configuration from the environment (and .env when present)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Build the relational provider and the stores it backs
	conn, err := kbstore.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", cfg.DBBackend, err)
	}
	defer conn.Close()

	contentStore, err := kbstore.NewContentStore(ctx, cfg, conn)
	if err != nil {
		log.Fatalf("failed to build content store: %v", err)
	}

	vectorStore, err := kbstore.NewVectorStore(cfg)
	if err != nil {
		log.Fatalf("failed to build vector store: %v", err)
	}

	// Create a project and seed one FAQ
	project := content.Project{ID: "quickstart", Name: "Quickstart", Active: true}
	if err := contentStore.CreateOrUpdateProject(ctx, project); err != nil {
		log.Fatalf("failed to create project: %v", err)
	}
	fmt.Printf("project ready: %s\n", project.ID)

	result, err := contentStore.UpsertFaqs(ctx, project.ID, []content.FAQ{
		{Question: "Where is my data stored?", Answer: "Wherever the configured backends put it."},
	})
	if err != nil {
		log.Fatalf("failed to upsert faq: %v", err)
	}
	fmt.Printf("faqs created: %v\n", result.Created)

	// Index an embedding for it and search it back
	embedding := []float32{0.1, 0.9, 0.2}
	if _, err := vectorStore.StoreEmbedding(ctx, project.ID, "faq", result.Created[0], "Where is my data stored?", "Wherever the configured backends put it.", embedding, nil); err != nil {
		log.Fatalf("failed to store embedding: %v", err)
	}

	matches, err := vectorStore.SearchSimilar(ctx, project.ID, embedding, cfg.SearchLimit, cfg.SearchThreshold)
	if err != nil {
		log.Fatalf("failed to search: %v", err)
	}
	for _, match := range matches {
		fmt.Printf("match: %s (similarity %.3f)\n", match.Title, match.Similarity)
	}
}
