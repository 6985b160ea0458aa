// Command crxdump inspects a signed extension container or archive and
// prints its header, payload layout, entry list and manifest.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bytedance/sonic"

	"github.com/sitedeck/sitedeck/backend/internal/archive"
	"github.com/sitedeck/sitedeck/backend/internal/crx"
	"github.com/sitedeck/sitedeck/backend/internal/manifest"
	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
)

func main() {
	showEntries := flag.Bool("entries", true, "list archive entries")
	showManifest := flag.Bool("manifest", true, "print the parsed manifest")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: crxdump [flags] <package>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	payload := data
	if bytes.HasPrefix(data, crx.Magic) {
		decoded, err := crx.Decode(data)
		if err != nil {
			log.Fatalf("decode container: %v", err)
		}

		fmt.Printf("container version:  %d\n", decoded.Header.Version)
		fmt.Printf("public key length:  %d\n", decoded.Header.PublicKeyLength)
		fmt.Printf("signature length:   %d\n", decoded.Header.SignatureLength)
		fmt.Printf("payload offset:     %d\n", decoded.Start)
		fmt.Printf("payload length:     %d\n", decoded.Length)
		if decoded.Recovered {
			fmt.Println("payload located by recovery scan")
		}
		for _, w := range decoded.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		payload = data[decoded.Start : decoded.Start+decoded.Length]
	}

	reader, err := archive.Open(payload)
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}

	if *showEntries {
		entries := reader.ListEntries()
		fmt.Printf("entries (%d):\n", len(entries))
		for _, e := range entries {
			marker := " "
			if e.IsDirectory {
				marker = "d"
			}
			fmt.Printf("  %s %8d  %s\n", marker, e.Size, e.Name)
		}
	}

	if *showManifest {
		m, err := manifest.Validate(manifest.ArchiveSource{Reader: reader})
		if err != nil {
			fmt.Printf("manifest: INVALID (%s) %s\n", errs.KindOf(err), errs.MessageFor(err))
			os.Exit(1)
		}
		out, err := sonic.MarshalIndent(m, "", "  ")
		if err != nil {
			log.Fatalf("render manifest: %v", err)
		}
		fmt.Printf("manifest:\n%s\n", out)
	}
}
