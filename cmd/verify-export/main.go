package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ETAnderson/offersync/internal/export"
	"github.com/ETAnderson/offersync/internal/signing"
)

func main() {
	var (
		exportPath = flag.String("export", "offers.json", "export file to verify")
		sigPath    = flag.String("sig", "", "detached signature (defaults to <export>.jwt)")
		pubPath    = flag.String("pub", "./secrets/export_signing_public.pem", "RSA public key PEM")
	)
	flag.Parse()

	if *sigPath == "" {
		*sigPath = export.SignaturePath(*exportPath)
	}

	pub, err := signing.LoadRSAPublicKeyFile(*pubPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load public key failed: %v\n", err)
		os.Exit(1)
	}

	payload, err := os.ReadFile(*exportPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read export failed: %v\n", err)
		os.Exit(1)
	}

	tok, err := os.ReadFile(*sigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read signature failed: %v\n", err)
		os.Exit(1)
	}

	claims, err := signing.VerifyExport(strings.TrimSpace(string(tok)), payload, pub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify failed: %v\n", err)
		os.Exit(1)
	}

	issued := ""
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time.UTC().Format(time.RFC3339)
	}
	fmt.Printf("OK offers=%d run=%s issued=%s\n", claims.OfferCount, claims.RunID, issued)
}
