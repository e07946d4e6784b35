// Command seed fills the database with generated users, posts and likes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"minifeed/internal/config"
	"minifeed/internal/database"
	"minifeed/internal/featureflags"
	"minifeed/internal/repository"
	"minifeed/internal/seed"
	"minifeed/internal/service"
)

func main() {
	planPath := flag.String("plan", "", "path to a YAML seed plan")
	dryRun := flag.Bool("dry-run", false, "seed an in-memory store instead of the database")
	flag.Parse()

	plan := seed.DefaultPlan()
	if *planPath != "" {
		loaded, err := seed.LoadPlan(*planPath)
		if err != nil {
			log.Fatalf("Failed to load plan: %v", err)
		}
		plan = loaded
	}

	var (
		users repository.UserRepository
		posts repository.PostRepository
		likes repository.LikeRepository
	)

	if *dryRun {
		store := repository.NewMemoryStore()
		users, posts, likes = store.Users(), store.Posts(), store.Likes()
	} else {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		db, err := database.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		users = repository.NewUserRepository(db)
		posts = repository.NewPostRepository(db)
		likes = repository.NewLikeRepository(db)
	}

	// Seeding never publishes like events.
	flags := featureflags.NewManager("like_events=off")
	seeder := seed.NewSeeder(
		service.NewUserService(users),
		service.NewPostService(posts, users, likes),
		service.NewLikeService(likes, posts, users, nil, flags),
	)

	report, err := seeder.Run(context.Background(), plan)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Println(summary(report))
}

func summary(report *seed.Report) string {
	line := fmt.Sprintf("Seeded %d users (%d admins), %d posts, %d likes",
		report.Users, len(report.Admins), report.Posts, report.Likes)
	if len(report.Admins) > 0 {
		line += ": admins " + strings.Join(report.Admins, ", ")
	}
	return line
}
