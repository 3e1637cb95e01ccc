package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/runger/nicehist/internal/rpc"
)

func TestFrecentAddCmd_DefaultIncrement(t *testing.T) {
	dir := withIsolatedHome(t)
	sock := filepath.Join(dir, "nicehist.sock")
	serveOnceRPC(t, sock, func(req rpc.Request) *rpc.Response {
		var p rpc.FrecentAddParams
		_ = json.Unmarshal(req.Params, &p)
		if p.Path != "/home/user/project" {
			t.Errorf("expected path, got %q", p.Path)
		}
		if p.Rank != nil {
			t.Errorf("expected nil rank when --rank not set, got %v", *p.Rank)
		}
		return rpc.Success(req.ID, nil)
	})

	frecentAddType = "d"
	frecentAddCmd.Flags().Set("rank", "")
	frecentAddCmd.Flags().Lookup("rank").Changed = false
	t.Cleanup(func() { frecentAddType = "d" })

	if err := frecentAddCmd.RunE(frecentAddCmd, []string{"/home/user/project"}); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
}

func TestFrecentAddCmd_ExplicitRank(t *testing.T) {
	dir := withIsolatedHome(t)
	sock := filepath.Join(dir, "nicehist.sock")
	serveOnceRPC(t, sock, func(req rpc.Request) *rpc.Response {
		var p rpc.FrecentAddParams
		_ = json.Unmarshal(req.Params, &p)
		if p.Rank == nil || *p.Rank != 42 {
			t.Errorf("expected rank 42, got %v", p.Rank)
		}
		return rpc.Success(req.ID, nil)
	})

	frecentAddType = "d"
	frecentAddRank = 42
	if err := frecentAddCmd.Flags().Set("rank", "42"); err != nil {
		t.Fatalf("Flags().Set error: %v", err)
	}
	t.Cleanup(func() {
		frecentAddType = "d"
		frecentAddRank = 0
		frecentAddCmd.Flags().Lookup("rank").Changed = false
	})

	if err := frecentAddCmd.RunE(frecentAddCmd, []string{"/home/user/project"}); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
}

func TestFrecentQueryCmd_FormatsResults(t *testing.T) {
	dir := withIsolatedHome(t)
	sock := filepath.Join(dir, "nicehist.sock")
	serveOnceRPC(t, sock, func(req rpc.Request) *rpc.Response {
		return rpc.Success(req.ID, rpc.FrecencyResultList{
			Results: []rpc.FrecencyResult{{Path: "/home/user/project", Score: 12.5}},
		})
	})

	frecentQueryType = "d"
	frecentQueryLimit = 20
	frecentQueryRaw = false
	frecentQueryJSON = false
	t.Cleanup(func() {
		frecentQueryType = "d"
		frecentQueryLimit = 20
		frecentQueryRaw = false
		frecentQueryJSON = false
	})

	out := captureStdout(t, func() {
		if err := frecentQueryCmd.RunE(frecentQueryCmd, []string{"proj"}); err != nil {
			t.Fatalf("RunE error: %v", err)
		}
	})

	if !strings.Contains(out, "/home/user/project") {
		t.Fatalf("expected path in output, got %q", out)
	}
}

func TestFrecentQueryCmd_JSON(t *testing.T) {
	dir := withIsolatedHome(t)
	sock := filepath.Join(dir, "nicehist.sock")
	serveOnceRPC(t, sock, func(req rpc.Request) *rpc.Response {
		return rpc.Success(req.ID, rpc.FrecencyResultList{
			Results: []rpc.FrecencyResult{{Path: "/tmp", Score: 1}},
		})
	})

	frecentQueryType = "d"
	frecentQueryLimit = 20
	frecentQueryRaw = false
	frecentQueryJSON = true
	t.Cleanup(func() {
		frecentQueryType = "d"
		frecentQueryLimit = 20
		frecentQueryRaw = false
		frecentQueryJSON = false
	})

	out := captureStdout(t, func() {
		if err := frecentQueryCmd.RunE(frecentQueryCmd, nil); err != nil {
			t.Fatalf("RunE error: %v", err)
		}
	})

	if !strings.Contains(out, `"path":"/tmp"`) {
		t.Fatalf("expected JSON result in output, got %q", out)
	}
}
