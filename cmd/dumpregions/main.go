// Command dumpregions lists the calling process's own mapped regions and,
// optionally, hexdumps a slice of memory at a given address. It is the
// in-process analogue of gomem's cmd/process_aob tool: same flag-driven
// shape, but there is no --pid because this engine never leaves its own
// process.
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
	addrFlag := flag.String("addr", "", "address to hexdump (hex, e.g. 0x7f0000001000)")
	sizeFlag := flag.Int("size", 128, "number of bytes to hexdump")
	moduleFlag := flag.String("module", "", "only list regions belonging to this module")
	flag.Parse()

	engine := command.Initialize(*bitsFlag)
	defer engine.Shutdown()

	params := command.Params{}
	if *moduleFlag != "" {
		params["module"] = *moduleFlag
	}
	result, err := engine.Dispatch("memory.regions", params)
	if err != nil {
		fmt.Fprintln(os.Stderr, "regions:", err)
		os.Exit(1)
	}

	regions, _ := result["regions"].([]command.Result)
	fmt.Printf("%d region(s)\n", len(regions))
	for _, r := range regions {
		fmt.Printf("%-18v %10v  r=%v w=%v x=%v  %v\n",
			r["base"], r["length"], r["readable"], r["writable"], r["executable"], r["module"])
	}

	if *addrFlag == "" {
		return
	}

	readResult, err := engine.Dispatch("memory.read", command.Params{
		"address": *addrFlag,
		"size":    fmt.Sprintf("%d", *sizeFlag),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	data, _ := readResult["bytes"].([]byte)
	fmt.Println(hexdump.DumpBytes(data))
}
