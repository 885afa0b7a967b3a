package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ams/app/config"
	"ams/app/database"
	"ams/app/logger"
	"ams/app/middleware"
	"ams/app/platform/reference"
)

var (
	apiKey     string
	apiBaseURL string
)

type ResponseError struct {
	Error string `json:"error"`
}

type userResponse struct {
	Message string        `json:"message"`
	Data    database.User `json:"data"`
}

type usersResponse struct {
	Message string          `json:"message"`
	Data    []database.User `json:"data"`
	Count   int             `json:"count"`
}

var apiServiceBase = func() *resty.Client {
	return resty.New().
		SetBaseURL(apiBaseURL).
		SetHeader("Accept", "application/json").
		SetHeader(middleware.HeaderAPIKey, apiKey).
		SetError(&ResponseError{}).
		OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				if e, ok := resp.Error().(*ResponseError); ok && e.Error != "" {
					return errors.New(e.Error)
				}
				return fmt.Errorf("unexpected status %d", resp.StatusCode())
			}
			return nil
		})
}

// openDatabase loads configuration the way the server does and connects.
func openDatabase() (*zap.Logger, *gorm.DB, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logr, err := logger.New(logger.Config{Level: cfg.LogLevel, Dev: true})
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return logr, db, nil
}

var rootCmd = &cobra.Command{
	Use:          "ams",
	Short:        "AMS command line",
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		logr, db, err := openDatabase()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		logr.Info("schema migrated")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the embedded reference data",
	RunE: func(cmd *cobra.Command, args []string) error {
		logr, db, err := openDatabase()
		if err != nil {
			return err
		}

		reports, err := reference.SeedDefaults(context.Background(), db, logr)
		if err != nil {
			return err
		}

		failed := 0
		for _, r := range reports {
			if r.Err != nil {
				failed++
				fmt.Printf("%-16s FAILED %v\n", r.Table, r.Err)
				continue
			}
			fmt.Printf("%-16s %d rows\n", r.Table, r.Rows)
		}
		if failed > 0 {
			return fmt.Errorf("%d tables failed to seed", failed)
		}
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create a new user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")

		resp, err := apiServiceBase().R().
			SetBody(map[string]any{
				"user": map[string]string{
					"email":     args[0],
					"firstName": firstName,
					"lastName":  lastName,
				},
			}).
			SetResult(&userResponse{}).
			Post("/users")
		if err != nil {
			return err
		}

		user := resp.Result().(*userResponse).Data

		fmt.Println("User ID :", user.ID)
		fmt.Println("Email   :", user.Email)
		fmt.Println("Role    :", user.RoleID)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := apiServiceBase().R().
			SetQueryParam("expand", "none").
			SetResult(&usersResponse{}).
			Get("/users")
		if err != nil {
			return err
		}

		for _, user := range resp.Result().(*usersResponse).Data {
			fmt.Printf("%s  %-32s %s %s\n", user.ID, user.Email, user.FirstName, user.LastName)
		}
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <user_id>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := apiServiceBase().R().Delete("/users/" + args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

func main() {
	userCreateCmd.Flags().String("first-name", "", "First name")
	userCreateCmd.Flags().String("last-name", "", "Last name")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeleteCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(userCmd)

	userCmd.PersistentFlags().StringVarP(&apiKey, "key", "k", os.Getenv("AMS_ADMIN_API_KEY"), "API key")
	userCmd.PersistentFlags().StringVar(&apiBaseURL, "url", "http://localhost:3000", "API base URL")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
