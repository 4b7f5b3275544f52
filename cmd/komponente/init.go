package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/erazemk/komponente/internal/auth"
	"github.com/erazemk/komponente/internal/db"
	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/store"
)

var (
	adminName     string
	adminUsername string

	newDisplayName string
	newUsername    string
	newRole        string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema and the first admin account",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

var useraddCmd = &cobra.Command{
	Use:   "useradd",
	Short: "Create an account with a generated password",
	Args:  cobra.NoArgs,
	RunE:  runUseradd,
}

func init() {
	initCmd.Flags().StringVar(&adminName, "name", "Administrador", "admin display name")
	initCmd.Flags().StringVarP(&adminUsername, "user", "u", "admin", "admin login name")

	useraddCmd.Flags().StringVar(&newDisplayName, "name", "", "display name, also used as the movement person")
	useraddCmd.Flags().StringVarP(&newUsername, "user", "u", "", "login name")
	useraddCmd.Flags().StringVar(&newRole, "role", model.RoleUser, "admin or user")
	useraddCmd.MarkFlagRequired("name")
	useraddCmd.MarkFlagRequired("user")
}

// openDatabase opens the configured database and ensures the schema.
func openDatabase(url string) (*sqlx.DB, error) {
	database, err := db.Open(url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return database, nil
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	users, err := store.ListUsers(cmd.Context(), database)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return fmt.Errorf("%s already has %d accounts", dbLabel(cfg.DatabaseURL), len(users))
	}

	password, err := createAdmin(cmd.Context(), database, adminName, adminUsername)
	if err != nil {
		return err
	}
	printInitResult(dbLabel(cfg.DatabaseURL), adminUsername, password)
	return nil
}

func runUseradd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !model.ValidRole(newRole) {
		return fmt.Errorf("unknown role %q", newRole)
	}

	database, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := store.CreateUser(cmd.Context(), database, newDisplayName, newUsername, hash, newRole); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Printf("Account created:\n  Name:     %s\n  Username: %s\n  Role:     %s\n  Password: %s\n",
		newDisplayName, newUsername, newRole, password)
	return nil
}

// createAdmin adds an admin account with a generated password.
func createAdmin(ctx context.Context, database *sqlx.DB, displayName, username string) (string, error) {
	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	if _, err := store.CreateUser(ctx, database, displayName, username, hash, model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbURL, username, password string) {
	fmt.Printf("Database ready: %s\n", dbURL)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
