package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"webmail/backend/internal/auth"
	"webmail/backend/internal/config"
	"webmail/backend/internal/service"
	"webmail/backend/internal/storage/filesystem"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-user <username> <password>")
		os.Exit(1)
	}

	username := os.Args[1]
	password := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	mailService, err := service.NewMailService(cfg.Storage.DataRoot, filesystem.NewStore(), zap.NewNop())
	if err != nil {
		fmt.Printf("Failed to open data root: %v\n", err)
		os.Exit(1)
	}

	user, recoveryCode, err := auth.NewService(mailService).Register(username, password)
	if err != nil {
		fmt.Printf("Failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ User created successfully!")
	fmt.Printf("  Username:      %s\n", user.Username)
	fmt.Printf("  Data root:     %s\n", cfg.Storage.DataRoot)
	fmt.Printf("  Recovery code: %s\n", recoveryCode)
	fmt.Println("\nStore the recovery code somewhere safe, it is shown only once.")
}
