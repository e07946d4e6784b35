// Package main provides admin management utilities for minifeed.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"minifeed/internal/config"
	"minifeed/internal/database"
	"minifeed/internal/featureflags"
	"minifeed/internal/repository"
	"minifeed/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <username>        - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <username>         - Demote user from admin")
	fmt.Println("  go run ./cmd/admin reset-likes all           - Remove every like")
	fmt.Println("  go run ./cmd/admin reset-likes post <id>     - Remove all likes of a post")
	fmt.Println("  go run ./cmd/admin reset-likes user <id>     - Remove likes on a user's posts")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	likes := repository.NewLikeRepository(db)
	userService := service.NewUserService(users)
	likeService := service.NewLikeService(likes, posts, users, nil, featureflags.NewManager(cfg.FeatureFlags))

	ctx := context.Background()
	switch os.Args[1] {
	case "promote", "demote":
		if len(os.Args) < 3 {
			usage()
		}
		user, err := userService.SetAdmin(ctx, os.Args[2], os.Args[1] == "promote")
		if err != nil {
			log.Fatalf("Failed to update user: %v", err)
		}
		fmt.Printf("User %s (ID %d) admin=%t\n", user.Username, user.ID, user.IsAdmin)

	case "reset-likes":
		if err := resetLikes(ctx, likeService, os.Args[2:]); err != nil {
			log.Fatalf("Failed to reset likes: %v", err)
		}
		fmt.Println("Likes reset")

	default:
		usage()
	}
}

func resetLikes(ctx context.Context, likes *service.LikeService, args []string) error {
	if len(args) == 0 {
		usage()
	}
	if args[0] == "all" {
		return likes.ResetAll(ctx)
	}
	if len(args) < 2 {
		usage()
	}
	id, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid id %q", args[1])
	}

	switch args[0] {
	case "post":
		return likes.ResetForPost(ctx, uint(id))
	case "user":
		return likes.ResetForAuthor(ctx, uint(id))
	}
	usage()
	return nil
}
