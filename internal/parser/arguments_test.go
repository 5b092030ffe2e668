package parser

import "testing"

func TestDecodeArgumentsStrictJSON(t *testing.T) {
	args, err := DecodeArguments(`{"path": "main.go", "content": "package main"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args["path"] != "main.go" {
		t.Fatalf("expected path main.go, got %v", args["path"])
	}
}

func TestDecodeArgumentsEmptyPayload(t *testing.T) {
	args, err := DecodeArguments("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 0 {
		t.Fatalf("expected empty map, got %v", args)
	}
}

func TestDecodeArgumentsRepairsMalformedJSON(t *testing.T) {
	// Trailing comma and single quotes are common model output defects.
	args, err := DecodeArguments(`{'path': 'a.txt', 'content': 'hi',}`)
	if err != nil {
		t.Fatalf("expected repair to succeed: %v", err)
	}
	if args["path"] != "a.txt" {
		t.Fatalf("expected path a.txt, got %v", args["path"])
	}
	if args["content"] != "hi" {
		t.Fatalf("expected content hi, got %v", args["content"])
	}
}

func TestDecodeArgumentsUnrepairable(t *testing.T) {
	if _, err := DecodeArguments(`"just a string"`); err == nil {
		t.Fatalf("expected error for non-object payload")
	}
}
