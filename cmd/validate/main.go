package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <catalog.json|catalog.yaml>...\n", os.Args[0])
		os.Exit(1)
	}

	validator, err := NewCatalogValidator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog schema: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		fmt.Printf("Validating %s...\n", filename)
		if err := validator.ValidateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}
