package cmd

import (
	"errors"
	"fmt"

	"github.com/satheeshds/roomrent/handlers"
	"github.com/satheeshds/roomrent/models"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage back-office users",
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an Admin user",
	Long: `Create an Admin user. Use this once after the first migration to get
access to the API; further users can then be managed over HTTP.`,
	Example: `  roomrent users create-admin --username admin --password 'change-me-now'`,
	RunE: runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().String("username", "admin", "login name")
	createAdminCmd.Flags().String("password", "", "password (at least 8 characters)")
	createAdminCmd.Flags().String("full-name", "Administrator", "display name")
	createAdminCmd.Flags().String("email", "", "email address")
	usersCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(usersCmd)
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	fullName, _ := cmd.Flags().GetString("full-name")
	email, _ := cmd.Flags().GetString("email")

	in := models.UserInput{
		Username: username,
		FullName: fullName,
		Password: password,
		Role:     models.RoleAdmin,
	}
	if email != "" {
		in.Email = &email
	}
	if msg := in.Validate(true); msg != "" {
		return errors.New(msg)
	}

	pool, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	u, err := handlers.InsertUser(cmd.Context(), pool, in)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", username, err)
	}
	logger.Info("admin created", "id", u.ID, "username", u.Username)
	return nil
}
