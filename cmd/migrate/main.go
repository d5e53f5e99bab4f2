package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"cepop/adapters/postgres"
	"cepop/domain/core"
	"cepop/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// migrate moves a file-based checkpoint into a shared postgres store, for
// promoting a single-host sweep to a multi-host deployment without losing
// progress.
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <checkpoint_file> <database_url>")
	}

	checkpointFile := os.Args[1]
	databaseURL := os.Args[2]

	log.Printf("Starting migration from %s to database", checkpointFile)

	records, err := loadFileRecords(checkpointFile)
	if err != nil {
		log.Fatalf("Failed to load checkpoint file: %v", err)
	}
	log.Printf("Found %d job records to migrate", len(records))

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	store, err := postgres.NewCheckpointRepository(ctx, db)
	if err != nil {
		log.Fatalf("Failed to open postgres checkpoint store: %v", err)
	}
	defer store.Close()

	existing, err := store.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to read existing records: %v", err)
	}

	migrated := 0
	skipped := 0
	for key, rec := range records {
		if prev, ok := existing[key]; ok && prev.UpdatedAt.After(rec.UpdatedAt) {
			log.Printf("Skipping %s: database record is newer", key)
			skipped++
			continue
		}
		if err := store.Put(ctx, rec); err != nil {
			log.Printf("Failed to migrate %s: %v", key, err)
			skipped++
			continue
		}
		migrated++
		log.Printf("Migrated %s (%s, %d attempts)", key, rec.Status, rec.Attempts)
	}

	log.Printf("Migration complete: %d migrated, %d skipped", migrated, skipped)
}

// loadFileRecords reads the raw checkpoint file directly rather than
// through checkpoint.NewFileStore, so migration works while an
// orchestrator still holds the lock.
func loadFileRecords(path string) (map[core.JobKey]ports.JobRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file struct {
		Version int                        `json:"version"`
		Records map[string]ports.JobRecord `json:"records"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	records := make(map[core.JobKey]ports.JobRecord, len(file.Records))
	for raw, rec := range file.Records {
		key, err := core.ParseJobKey(raw)
		if err != nil {
			return nil, err
		}
		records[key] = rec
	}
	return records, nil
}
