//go:build ignore

// This script generates a service-role JWT for calling the sync trigger.
// Run with: SUPABASE_JWT_SECRET=... go run scripts/generate-jwt.go [-sub scheduler] [-ttl 1h]

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	sub := flag.String("sub", "scheduler", "Token subject")
	role := flag.String("role", "service_role", "Role claim")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	secret := os.Getenv("SUPABASE_JWT_SECRET")
	if secret == "" {
		secret = os.Getenv("SERVER_JWT_SECRET")
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "set SUPABASE_JWT_SECRET or SERVER_JWT_SECRET")
		os.Exit(1)
	}

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": *role,
		"sub":  *sub,
		"iat":  now.Unix(),
		"exp":  now.Add(*ttl).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "\ncurl -X POST -H 'Authorization: Bearer %s' http://localhost:8080/sync-marketplace-payments\n", token)
}
