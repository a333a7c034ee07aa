package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/platebook/platebook/internal/normalize"
)

// imgdump runs the image normalizer on a file and reports what each
// pipeline stage did. Useful for checking HEIC handling and size bounds
// without going through the server.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: imgdump <file> [output.jpg]")
		os.Exit(1)
	}
	path := os.Args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	n := normalize.New()
	if converter := os.Getenv("HEIF_CONVERTER"); converter != "" {
		n.ConverterPath = converter
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	result := n.Normalize(context.Background(), data, mimeType, filepath.Base(path))

	fmt.Printf("Input: %s\n", path)
	fmt.Printf("  Declared type: %s\n", orUnknown(mimeType))
	fmt.Printf("  Size: %d bytes\n", len(data))
	fmt.Println()
	fmt.Println("Pipeline:")
	fmt.Printf("  HEIF bridge ran: %v\n", result.Bridged)
	fmt.Printf("  Re-encoded: %v\n", result.Encoded)
	if result.Encoded {
		fmt.Printf("  Output dimensions: %dx%d\n", result.Width, result.Height)
	} else {
		fmt.Println("  Output dimensions: unchanged (input not decodable)")
	}
	fmt.Printf("  Output type: %s\n", orUnknown(result.MimeType))
	fmt.Printf("  Output size: %d bytes\n", len(result.Data))

	if len(os.Args) > 2 {
		out := os.Args[2]
		if err := os.WriteFile(out, result.Data, 0o644); err != nil {
			fmt.Printf("Error writing %s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote %s\n", out)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
