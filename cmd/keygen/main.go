// Command keygen writes a fresh RSA key pair for access-token signing.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/geocoder89/authhub/internal/auth"
)

func main() {
	dir := flag.String("out", "certs", "directory for private.pem and public.pem")
	force := flag.Bool("force", false, "overwrite an existing key pair")
	flag.Parse()

	privPath := filepath.Join(*dir, "private.pem")
	pubPath := filepath.Join(*dir, "public.pem")

	if _, err := os.Stat(privPath); err == nil && !*force {
		log.Fatalf("%s already exists; pass -force to replace it", privPath)
	}

	key, err := auth.GenerateKey()
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}

	privPEM, err := auth.EncodePrivateKeyPEM(key)
	if err != nil {
		log.Fatalf("encode private key: %v", err)
	}
	pubPEM, err := auth.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		log.Fatalf("encode public key: %v", err)
	}

	if err := os.MkdirAll(*dir, 0o700); err != nil {
		log.Fatalf("create %s: %v", *dir, err)
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		log.Fatalf("write private key: %v", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		log.Fatalf("write public key: %v", err)
	}

	log.Printf("wrote %s and %s", privPath, pubPath)
}
