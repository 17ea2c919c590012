// Command selfscan scans the calling process's own address space for an
// array-of-bytes pattern, the in-process equivalent of gomem's
// cmd/process_aob. There is no --pid flag: the engine only ever looks at
// its own memory.
package main

import (
	"flag"
	"fmt"
	"os"

	"memengine/command"
	"memengine/hexdump"
)

func main() {
	bitsFlag := flag.Int("bits", 64, "pointer/instruction width (32 or 64)")
	aobFlag := flag.String("aob", "", "array of bytes to scan for, e.g. '48 8b 05 ?? ?? ?? ??'")
	executableFlag := flag.Bool("executable", false, "restrict the scan to executable regions")
	contextFlag := flag.Int("context", 16, "each match's hexdump covers twice this many bytes, starting at the match")
	flag.Parse()

	if *aobFlag == "" {
		fmt.Fprintln(os.Stderr, "error: -aob is required")
		flag.Usage()
		os.Exit(1)
	}

	engine := command.Initialize(*bitsFlag)
	defer engine.Shutdown()

	params := command.Params{"pattern": *aobFlag}
	if *executableFlag {
		params["executable"] = "true"
	}

	result, err := engine.Dispatch("pattern.scanall", params)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scan:", err)
		os.Exit(1)
	}

	matches, _ := result["matches"].([]string)
	fmt.Printf("found %d match(es)\n", len(matches))

	for _, addr := range matches {
		fmt.Printf("match at %s\n", addr)

		readResult, err := engine.Dispatch("memory.read", command.Params{
			"address": addr,
			"size":    fmt.Sprintf("%d", *contextFlag*2),
		})
		if err != nil {
			continue
		}
		data, _ := readResult["bytes"].([]byte)
		fmt.Println(hexdump.DumpBytes(data))
	}
}
