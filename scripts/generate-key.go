// Package main is a development utility for generating a JWT signing secret.
// It prints a random 48-byte base64url secret together with a ready-to-paste
// export line for ORB_JWT_SECRET. Generate one secret per environment and keep
// it out of version control; rotating the secret invalidates every token that
// was signed with the previous one.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func main() {
	randomBytes := make([]byte, 48)
	if _, err := rand.Read(randomBytes); err != nil {
		log.Fatal(err)
	}

	secret := base64.RawURLEncoding.EncodeToString(randomBytes)

	fmt.Println("==========================================================")
	fmt.Println("JWT Secret Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\n%s\n\n", secret)
	fmt.Println("==========================================================")
	fmt.Printf("export ORB_JWT_SECRET='%s'\n", secret)
	fmt.Println("==========================================================")
}
