// Command hookdemo walks through the detour lifecycle end to end against
// two throwaway allocations standing in for a "victim" function and its
// replacement, the same install/list/toggle/remove sequence the original
// engine's HookManager exposes to a script console. Nothing here is ever
// invoked as code; it only exercises the byte-patching side of the engine.
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
	hookTypeFlag := flag.String("hook-type", "auto", "hook type: auto, jmp_relative, jmp_absolute, push_ret")
	flag.Parse()

	engine := command.Initialize(*bitsFlag)
	defer engine.Shutdown()

	victim := mustAllocate(engine, 64)
	replacement := mustAllocate(engine, 64)
	defer mustFree(engine, victim)
	defer mustFree(engine, replacement)

	// Ten NOPs then a RET. A 14-byte jmp_absolute hook (the 64-bit auto
	// choice) also takes in the zero bytes that follow in the allocation.
	mustWriteBytes(engine, victim, "90 90 90 90 90 90 90 90 90 90 c3")
	// A distinct stub so the bytes before/after the hook are easy to tell apart.
	mustWriteBytes(engine, replacement, "b8 2a 00 00 00 c3")

	fmt.Println("victim before hook:")
	printBytes(engine, victim, 16)

	installResult, err := engine.Dispatch("hook.install", command.Params{
		"name":      "demo",
		"target":    victim,
		"detour":    replacement,
		"hook_type": *hookTypeFlag,
		"bits":      fmt.Sprintf("%d", *bitsFlag),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "hook.install:", err)
		os.Exit(1)
	}
	fmt.Printf("installed: %+v\n", installResult)

	fmt.Println("victim after hook:")
	printBytes(engine, victim, 16)

	if _, err := engine.Dispatch("hook.toggle", command.Params{"name": "demo"}); err != nil {
		fmt.Fprintln(os.Stderr, "hook.toggle (disable):", err)
	} else {
		fmt.Println("victim after disable:")
		printBytes(engine, victim, 16)
	}

	if _, err := engine.Dispatch("hook.toggle", command.Params{"name": "demo"}); err != nil {
		fmt.Fprintln(os.Stderr, "hook.toggle (enable):", err)
	} else {
		fmt.Println("victim after re-enable:")
		printBytes(engine, victim, 16)
	}

	listResult, err := engine.Dispatch("hook.list", command.Params{})
	if err == nil {
		fmt.Printf("active hooks: %+v\n", listResult["hooks"])
	}

	if _, err := engine.Dispatch("hook.remove", command.Params{"name": "demo"}); err != nil {
		fmt.Fprintln(os.Stderr, "hook.remove:", err)
	} else {
		fmt.Println("victim after remove:")
		printBytes(engine, victim, 16)
	}
}

func mustAllocate(e *command.Engine, size int) string {
	result, err := e.Dispatch("memory.allocate", command.Params{"size": fmt.Sprintf("%d", size)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "memory.allocate:", err)
		os.Exit(1)
	}
	return result["address"].(string)
}

func mustFree(e *command.Engine, addr string) {
	if _, err := e.Dispatch("memory.free", command.Params{"address": addr}); err != nil {
		fmt.Fprintln(os.Stderr, "memory.free:", err)
	}
}

func mustWriteBytes(e *command.Engine, addr, hexBytes string) {
	_, err := e.Dispatch("memory.write", command.Params{
		"address": addr,
		"type":    "bytes",
		"value":   hexBytes,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "memory.write:", err)
		os.Exit(1)
	}
}

func printBytes(e *command.Engine, addr string, size int) {
	result, err := e.Dispatch("memory.read", command.Params{"address": addr, "size": fmt.Sprintf("%d", size)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "memory.read:", err)
		return
	}
	data, _ := result["bytes"].([]byte)
	fmt.Println(hexdump.DumpBytes(data))
}
