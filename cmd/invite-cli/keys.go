package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"inviteregistry/crypto"
)

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var path string
	fs.StringVar(&path, "keystore", "", "path of the keystore file to create")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return printError(stderr, "--keystore is required")
	}
	if _, err := os.Stat(path); err == nil {
		return printError(stderr, "keystore %s already exists", path)
	}
	pass, err := passphraseFor(true)()
	if err != nil {
		return printError(stderr, "%v", err)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, "generate key: %v", err)
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		return printError(stderr, "save keystore: %v", err)
	}
	addr := key.PubKey().Address()
	fmt.Fprintf(stdout, "Address: %s\nBech32:  %s\nKeystore: %s\n", addr.Hex(), addr.String(), path)
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var path string
	fs.StringVar(&path, "keystore", "", "path of the keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(path) == "" {
		return printError(stderr, "--keystore is required")
	}
	addr, err := crypto.KeystoreAddress(path)
	if err != nil {
		return printError(stderr, "%v", err)
	}
	fmt.Fprintf(stdout, "Address: %s\nBech32:  %s\n", addr.Hex(), addr.String())
	return 0
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--keystore is required")
	}
	pass, err := passphraseFor(false)()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("unlock keystore %s: %w", path, err)
	}
	return key, nil
}
