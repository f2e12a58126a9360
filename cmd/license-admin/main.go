package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cvite-license-server/config"
	"cvite-license-server/internal/database"
	"cvite-license-server/internal/keygen"
	"cvite-license-server/internal/license"

	"github.com/rs/zerolog"
)

func main() {
	fmt.Println("========================================")
	fmt.Println(" License Administration Tool")
	fmt.Println("========================================")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	repo := database.NewRepository(db)
	svc := license.NewService(repo, license.Config{
		DefaultPlan: cfg.LicenseConfig.DefaultPlan,
		KeyPrefix:   cfg.LicenseConfig.KeyPrefix,
		OpTimeout:   cfg.LicenseConfig.OpTimeout,
	}, nil, zerolog.Nop())

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\nOptions:")
		fmt.Println("  1. Generate a license key (offline, not stored)")
		fmt.Println("  2. Create a client")
		fmt.Println("  3. List clients")
		fmt.Println("  4. Block a client")
		fmt.Println("  5. Extend a client")
		fmt.Println("  6. Show statistics")
		fmt.Println("  7. Exit")
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "1":
			generateKey(cfg.LicenseConfig.KeyPrefix)
		case "2":
			createClient(reader, svc)
		case "3":
			listClients(svc)
		case "4":
			blockClient(reader, svc)
		case "5":
			extendClient(reader, svc)
		case "6":
			showStats(svc)
		case "7":
			fmt.Println("Goodbye!")
			os.Exit(0)
		default:
			fmt.Println("Invalid option")
		}
	}
}

func generateKey(prefix string) {
	gen := keygen.New(prefix)
	fmt.Println("\n========================================")
	fmt.Printf("  License Key: %s\n", gen.Generate())
	fmt.Printf("  Generated:   %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println("========================================")
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func createClient(reader *bufio.Reader, svc *license.Service) {
	fmt.Println("\n--- Create Client ---")

	req := license.CreateClientRequest{
		Name:    prompt(reader, "Name"),
		Email:   prompt(reader, "Email"),
		Company: prompt(reader, "Company (optional)"),
		Plan:    prompt(reader, "Plan (blank for default)"),
	}
	if days := prompt(reader, "Term in days (blank = never expires)"); days != "" {
		req.Days, _ = strconv.Atoi(days)
	}

	client, err := svc.Create(context.Background(), req)
	if err != nil {
		fmt.Printf("Failed: %v\n", err)
		return
	}

	fmt.Println("\n========================================")
	fmt.Printf("  Client ID:   %s\n", client.ID)
	fmt.Printf("  License Key: %s\n", client.LicenseKey)
	if client.ExpiresAt != nil {
		fmt.Printf("  Expires:     %s\n", client.ExpiresAt.Format("2006-01-02"))
	} else {
		fmt.Printf("  Expires:     never\n")
	}
	fmt.Println("========================================")
}

func listClients(svc *license.Service) {
	clients, err := svc.ListClients(context.Background())
	if err != nil {
		fmt.Printf("Failed: %v\n", err)
		return
	}

	fmt.Printf("\n%d client(s)\n", len(clients))
	fmt.Println("========================================")
	for _, c := range clients {
		state := "active"
		switch {
		case c.Blocked:
			state = "BLOCKED"
		case c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now()):
			state = "expired"
		}
		expiry := "never"
		if c.ExpiresAt != nil {
			expiry = c.ExpiresAt.Format("2006-01-02")
		}
		fmt.Printf("  %-36s  %-22s  %-8s  expires %s  checks %d\n",
			c.ID, c.Email, state, expiry, c.LoginCount)
	}
	fmt.Println("========================================")
}

func blockClient(reader *bufio.Reader, svc *license.Service) {
	fmt.Println("\n--- Block Client ---")
	id := prompt(reader, "Client ID")
	reason := prompt(reader, "Reason (blank for default)")

	client, err := svc.Block(context.Background(), id, reason)
	if err != nil {
		fmt.Printf("Failed: %v\n", err)
		return
	}
	fmt.Printf("Blocked %s (%s): %s\n", client.Name, client.Email, client.BlockReason)
}

func extendClient(reader *bufio.Reader, svc *license.Service) {
	fmt.Println("\n--- Extend Client ---")
	id := prompt(reader, "Client ID")
	days, err := strconv.Atoi(prompt(reader, "Days to add"))
	if err != nil {
		fmt.Println("Invalid number")
		return
	}

	client, err := svc.Extend(context.Background(), id, days)
	if err != nil {
		fmt.Printf("Failed: %v\n", err)
		return
	}
	fmt.Printf("Extended %s, new expiry: %s\n", client.Name, client.ExpiresAt.Format("2006-01-02"))
}

func showStats(svc *license.Service) {
	stats, err := svc.Stats(context.Background())
	if err != nil {
		fmt.Printf("Failed: %v\n", err)
		return
	}

	fmt.Println("\n========================================")
	fmt.Printf("  Total:        %d\n", stats.Total)
	fmt.Printf("  Active:       %d\n", stats.Active)
	fmt.Printf("  Blocked:      %d\n", stats.Blocked)
	fmt.Printf("  Expired:      %d\n", stats.Expired)
	fmt.Printf("  Checks (24h): %d\n", stats.ChecksToday)
	fmt.Println("========================================")
}
