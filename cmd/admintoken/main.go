// Command admintoken generates an admin bearer token and the bcrypt hash the
// server verifies it against. The plaintext token is printed once; only the
// hash goes into configuration.
//
// Usage:
//
//	admintoken            generate a fresh token + hash
//	admintoken -token X   hash an existing token instead
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"turnstile/pkg/secrets"
)

type output struct {
	Token string            `json:"token"`
	Hash  string            `json:"hash"`
	Usage map[string]string `json:"usage"`
}

func main() {
	token := flag.String("token", "", "Hash this token instead of generating one.")
	flag.Parse()

	plaintext := *token
	if plaintext == "" {
		generated, err := secrets.Generate()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		plaintext = generated
	}

	hash, err := secrets.Hash(plaintext)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	out := output{
		Token: plaintext,
		Hash:  hash,
		Usage: map[string]string{
			"server": "export TURNSTILE_ADMIN_TOKEN_HASH='" + hash + "'",
			"client": "curl -H 'Authorization: Bearer " + plaintext + "' http://localhost:8080/admin/rate-limit/allowlist",
		},
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
