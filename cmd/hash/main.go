// Package main is a utility for generating bcrypt hashes of passwords. The
// backend stores only bcrypt hashes — never plain passwords — so this tool is
// used when manually seeding or repairing user records in the database without
// running the full server. The output can be inserted directly into the
// password_hash column of the users table.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/orbit-cloud/orbit-backend/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hash <password>")
		os.Exit(2)
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	fmt.Println(hash)
}
