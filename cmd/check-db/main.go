// Package main is a diagnostic tool for testing database connectivity and
// inspecting live data. It connects to the database, summarizes the users,
// organizations, projects, and files tables, and prints the result to stdout.
// The binary exits with a non-zero code on any failure so it can be embedded
// in health checks or CI/CD pipeline steps to gate deployments on a reachable,
// migrated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("ORB_DATABASE_HOST", "localhost"),
		envOr("ORB_DATABASE_PORT", "5432"),
		envOr("ORB_DATABASE_USER", "orbit"),
		envOr("ORB_DATABASE_PASSWORD", "orbit"),
		envOr("ORB_DATABASE_NAME", "orbit"),
		envOr("ORB_DATABASE_SSL_MODE", "disable"),
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	fmt.Println("=== TABLE COUNTS ===")
	for _, table := range []string{"users", "organizations", "organization_admins", "organization_members", "projects", "files"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			log.Fatalf("Query failed for %s: %v", table, err)
		}
		fmt.Printf("%-22s %d\n", table, count)
	}

	fmt.Println("\n=== ORGANIZATIONS ===")
	rows, err := db.Query("SELECT o.id, o.name, o.owner_id, (SELECT COUNT(*) FROM projects p WHERE p.organization_id = o.id) FROM organizations o ORDER BY o.created_at")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	orgCount := 0
	for rows.Next() {
		var id, name, ownerID string
		var projects int
		if err := rows.Scan(&id, &name, &ownerID, &projects); err != nil {
			log.Printf("Warning: failed to scan organization row: %v", err)
			continue
		}
		fmt.Printf("Organization: %s (ID: %s, owner: %s, projects: %d)\n", name, id, ownerID, projects)
		orgCount++
	}

	if orgCount == 0 {
		fmt.Println("No organizations found!")
	}

	fmt.Println("\n=== STAFF USERS ===")
	rows2, err := db.Query("SELECT id, username, is_active FROM users WHERE is_staff = TRUE")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows2.Close()

	staffCount := 0
	for rows2.Next() {
		var id, username string
		var active bool
		if err := rows2.Scan(&id, &username, &active); err != nil {
			log.Printf("Warning: failed to scan user row: %v", err)
			continue
		}
		fmt.Printf("Staff: %s (ID: %s, active: %v)\n", username, id, active)
		staffCount++
	}

	if staffCount == 0 {
		fmt.Println("No staff users found — the server will bootstrap one on next start.")
	}
}
