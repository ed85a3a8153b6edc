// lerc1check validates LERC v1 streams.
//
// Usage:
//
//	lerc1check [-q|--quiet] [-e <maxZError>] <filename> [<filename> ...]
//
// Options:
//
//	-q, --quiet   Only output errors. Exit code indicates pass/fail.
//	-e <bound>    Largest acceptable error bound (default: accept any).
//	-h, --help    Show this help message.
//	--version     Show version information.
//
// Exit codes:
//
//	0: All files valid
//	1: One or more files invalid
//	2: Error (file not found, bad arguments, etc.)
package main

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/mlebihan/go-lerc1/lerc1"
)

const version = "1.0.0"

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: lerc1check [-q|--quiet] [-e <maxZError>] <filename> [<filename> ...]")
}

func main() {
	quiet := false
	maxZError := math.Inf(1)
	files := []string{}

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch arg {
		case "-q", "--quiet":
			quiet = true
		case "-e":
			i++
			if i >= len(os.Args) {
				usage()
				os.Exit(2)
			}
			v, err := strconv.ParseFloat(os.Args[i], 64)
			if err != nil || v < 0 {
				fmt.Fprintf(os.Stderr, "lerc1check: invalid error bound %q\n", os.Args[i])
				os.Exit(2)
			}
			maxZError = v
		case "-h", "--help":
			usage()
			os.Exit(0)
		case "--version":
			fmt.Println("lerc1check", version)
			os.Exit(0)
		default:
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		usage()
		os.Exit(2)
	}

	failed := false
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lerc1check: %v\n", err)
			os.Exit(2)
		}

		img, err := lerc1.DecodeAny(data, maxZError)
		if err != nil {
			failed = true
			fmt.Printf("%s: INVALID: %v\n", name, err)
			continue
		}

		if quiet {
			continue
		}

		valid := 0
		mask := img.Mask()
		for k := 0; k < img.Size(); k++ {
			if mask.IsValid(k) {
				valid++
			}
		}
		wrapped := ""
		if !lerc1.IsEncoded(data) {
			wrapped = ", deflate-wrapped"
		}
		fmt.Printf("%s: OK: %dx%d, %d/%d valid pixels, %d bytes%s\n",
			name, img.Width(), img.Height(), valid, img.Size(), len(data), wrapped)
	}

	if failed {
		os.Exit(1)
	}
}
