package command

import (
	"testing"
)

func TestDispatchUnknownCommand(t *testing.T) {
	e := Initialize(64)
	defer e.Shutdown()

	if _, err := e.Dispatch("nonexistent.command", Params{}); err == nil {
		t.Fatal("expected an error for an unregistered command name")
	}
}

func TestMemoryAllocateWriteReadFree(t *testing.T) {
	e := Initialize(64)
	defer e.Shutdown()

	allocResult, err := e.Dispatch("memory.allocate", Params{"size": "64"})
	if err != nil {
		t.Fatalf("memory.allocate failed: %s", err)
	}
	addr, ok := allocResult["address"].(string)
	if !ok || addr == "" {
		t.Fatalf("expected memory.allocate to return an address, got %+v", allocResult)
	}

	if _, err := e.Dispatch("memory.write", Params{
		"address": addr,
		"type":    "int32",
		"value":   "42",
	}); err != nil {
		t.Fatalf("memory.write failed: %s", err)
	}

	readResult, err := e.Dispatch("memory.read_value", Params{
		"address": addr,
		"type":    "int32",
	})
	if err != nil {
		t.Fatalf("memory.read_value failed: %s", err)
	}
	if readResult["value"] != "42" {
		t.Fatalf("expected value 42, got %+v", readResult["value"])
	}

	if _, err := e.Dispatch("memory.free", Params{"address": addr}); err != nil {
		t.Fatalf("memory.free failed: %s", err)
	}
}

func TestMemoryValidateUnmappedAddress(t *testing.T) {
	e := Initialize(64)
	defer e.Shutdown()

	result, err := e.Dispatch("memory.validate", Params{"address": "0x1"})
	if err != nil {
		t.Fatalf("memory.validate failed: %s", err)
	}
	if result["valid"] != false {
		t.Fatalf("expected address 0x1 to be reported invalid, got %+v", result)
	}
}

func TestProcessInfoReportsBits(t *testing.T) {
	e := Initialize(64)
	defer e.Shutdown()

	result, err := e.Dispatch("process.info", Params{})
	if err != nil {
		t.Fatalf("process.info failed: %s", err)
	}
	if result["bits"] != 64 {
		t.Fatalf("expected bits=64, got %+v", result["bits"])
	}
}

func TestHookInstallListRemoveViaCommands(t *testing.T) {
	e := Initialize(64)
	defer e.Shutdown()

	target, err := e.Dispatch("memory.allocate", Params{"size": "32"})
	if err != nil {
		t.Fatal(err)
	}
	detourFn, err := e.Dispatch("memory.allocate", Params{"size": "8"})
	if err != nil {
		t.Fatal(err)
	}
	targetAddr := target["address"].(string)
	detourAddr := detourFn["address"].(string)

	if _, err := e.Dispatch("memory.write", Params{
		"address": targetAddr,
		"type":    "bytes",
		"value":   "90 90 90 90 90 90 90 90 90 90 c3",
	}); err != nil {
		t.Fatal(err)
	}

	installResult, err := e.Dispatch("hook.install", Params{
		"name":      "demo",
		"target":    targetAddr,
		"detour":    detourAddr,
		"hook_type": "jmp_relative",
		"bits":      "64",
	})
	if err != nil {
		t.Fatalf("hook.install failed: %s", err)
	}
	if installResult["name"] != "demo" {
		t.Fatalf("expected hook name demo, got %+v", installResult["name"])
	}

	listResult, err := e.Dispatch("hook.list", Params{})
	if err != nil {
		t.Fatal(err)
	}
	hooksList, ok := listResult["hooks"].([]Result)
	if !ok || len(hooksList) != 1 {
		t.Fatalf("expected exactly one installed hook, got %+v", listResult)
	}

	if _, err := e.Dispatch("hook.remove", Params{"name": "demo"}); err != nil {
		t.Fatalf("hook.remove failed: %s", err)
	}

	if _, err := e.Dispatch("memory.free", Params{"address": targetAddr}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Dispatch("memory.free", Params{"address": detourAddr}); err != nil {
		t.Fatal(err)
	}
}
