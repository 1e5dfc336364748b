package main

import (
	"fmt"
	"log"

	"wbanalytics/internal/vault"
)

// keygen prints a fresh value for ENCRYPTION_KEY.
func main() {
	key, err := vault.GenerateKey()
	if err != nil {
		log.Fatal("Failed to generate key:", err)
	}
	fmt.Println(key)
}
