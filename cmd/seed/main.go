// Package main provides a tool to seed the database with messy catalogue
// data: albums carrying realistic, inconsistent tag strings, useful for
// exercising the migration pass and the candidate finder.
//
// Usage:
//
//	DB_PATH=~/.cratekeeper/catalog.db go run ./cmd/seed
//	DB_PATH=~/.cratekeeper/catalog.db go run ./cmd/seed --albums 200
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/id"
	"github.com/cratekeeper/cratekeeper/internal/logger"
	"github.com/cratekeeper/cratekeeper/internal/service"
	"github.com/cratekeeper/cratekeeper/internal/store"
	"github.com/cratekeeper/cratekeeper/internal/store/sqlite"
)

var (
	albumCount = flag.Int("albums", 100, "Number of albums to create")
	strict     = flag.Bool("strict", false, "Use strict validation when ingesting tags")
)

// messyTags deliberately mixes casing, spacing, misspellings and regional
// spellings of the same handful of genres, so a fresh database immediately
// has duplicate groups worth consolidating.
var messyTags = []string{
	"Black Metal", "black metal", "blackmetal", "BLACK METAL",
	"Post-Metal", "post metal", "postmetal",
	"Prog Metal", "progressive metal", "prog-metal",
	"Death Metal", "death metal", "deth metal",
	"Doom Metal", "doom", "doom metal",
	"Atmospheric Black Metal", "atmospheric",
	"Shoegaze", "shoegaze", "shoe gaze",
	"Post-Rock", "post rock", "postrock",
	"Electronica", "electronic", "electro",
	"Nordic Folk", "scandinavian folk",
	"Jazz Fusion", "jazz  fusion", "fusion",
	"Sludge", "sludge metal",
	"Ambient", "dark ambient",
	"Punk", "punk rock", "hardcore punk",
}

// baseTaxonomy is the starter parent → children hierarchy wired between
// whichever canonical tags the ingestion pass actually produced.
var baseTaxonomy = map[string][]string{
	"metal":       {"black metal", "death metal", "doom metal", "post metal", "prog metal", "sludge metal"},
	"black metal": {"atmospheric black metal"},
	"rock":        {"post rock", "punk"},
	"punk":        {"punk rock", "hardcore punk"},
	"electronic":  {"ambient", "electro"},
	"ambient":     {"dark ambient"},
	"jazz":        {"jazz fusion"},
	"folk":        {"scandinavian folk"},
}

var artistNames = []string{
	"Hollow Spire", "Vesper Tide", "Iron Meridian", "Pale Aurora",
	"The Quiet Ruin", "Saltwater Choir", "Ninth Winter", "Ember Atlas",
	"Grave Lantern", "Cold Harbour", "Fenwood", "Static Pilgrim",
}

var titleWords = []string{
	"Echoes", "Monolith", "Harvest", "Winter", "Cathedral", "Tides",
	"Descent", "Signal", "Vigil", "Hollow", "Spire", "Requiem",
	"Drift", "Summit", "Embers", "Passage",
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Cannot determine home directory: %v", err)
		}
		dbPath = filepath.Join(home, ".cratekeeper", "catalog.db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, logger.Discard())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	rules, err := config.LoadRules("")
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}

	ctx := context.Background()
	svc, err := service.New(ctx, s, rules, logger.Discard())
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	created := 0
	linked := 0
	for i := 0; i < *albumCount; i++ {
		album := &domain.Album{
			ID:        id.MustGenerate("alb"),
			Artist:    artistNames[rng.Intn(len(artistNames))],
			Title:     randomTitle(rng),
			Year:      1985 + rng.Intn(40),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.CreateAlbum(ctx, album); err != nil {
			log.Printf("Failed to create album %q: %v", album.Title, err)
			continue
		}
		created++

		// 1-4 tags per album, drawn with replacement so frequencies skew.
		tagCount := 1 + rng.Intn(4)
		raw := make([]string, 0, tagCount)
		for j := 0; j < tagCount; j++ {
			raw = append(raw, messyTags[rng.Intn(len(messyTags))])
		}

		result, err := svc.IngestAlbumTags(ctx, album.ID, raw, *strict)
		if err != nil {
			log.Printf("Failed to ingest tags for %q: %v", album.Title, err)
			continue
		}
		linked += len(result.Linked)
	}

	fmt.Printf("Created %d albums with %d tag links\n", created, linked)

	edges := seedTaxonomy(ctx, svc, s)
	fmt.Printf("Wired %d hierarchy edges\n", edges)
	fmt.Println("Seeding complete!")
}

// seedTaxonomy creates the base genre roots if ingestion never produced
// them, then wires the starter hierarchy. Children that do not exist in the
// corpus are skipped rather than invented.
func seedTaxonomy(ctx context.Context, svc *service.TagService, s *sqlite.Store) int {
	for parent := range baseTaxonomy {
		normalized := svc.Normalize(parent)
		if _, err := s.GetTagByNormalized(ctx, normalized); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Failed to look up %q: %v", parent, err)
			continue
		}
		now := time.Now().UTC()
		tag := &domain.Tag{
			ID:             id.MustGenerate("tag"),
			Name:           normalized,
			NormalizedName: normalized,
			Category:       svc.Category(normalized),
			IsCanonical:    true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.CreateTag(ctx, tag); err != nil {
			log.Printf("Failed to create root tag %q: %v", parent, err)
		}
	}

	wired := 0
	for parent, children := range baseTaxonomy {
		for _, child := range children {
			if err := svc.AddRelationship(ctx, parent, child); err != nil {
				continue
			}
			wired++
		}
	}
	return wired
}

func randomTitle(rng *rand.Rand) string {
	a := titleWords[rng.Intn(len(titleWords))]
	b := titleWords[rng.Intn(len(titleWords))]
	if a == b {
		return a
	}
	return a + " " + b
}
