// Command fintrack-token issues a bearer token for one owner so clients can
// call a server started with AUTH_JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	email := flag.String("email", "", "owner email the token is issued to")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		log.Fatalf("set AUTH_JWT_SECRET")
	}
	if len(secret) < 32 {
		log.Fatalf("AUTH_JWT_SECRET must be at least 32 characters")
	}
	owner := strings.TrimSpace(*email)
	if owner == "" {
		log.Fatalf("usage: fintrack-token -email owner@example.com [-ttl 720h]")
	}
	if *ttl <= 0 {
		log.Fatalf("ttl must be positive, got %v", *ttl)
	}

	token, err := auth.NewVerifier(secret).Issue(owner, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Token for %s, expires %s\n", owner, time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Println(token)
}
