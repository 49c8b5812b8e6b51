package ollamacli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/llamagate-ai/llamagate/pkg/channel"
	"github.com/llamagate-ai/llamagate/pkg/models"
)

// stubBinary writes an executable shell script standing in for the runtime
// CLI.
func stubBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ollama-stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubmit(t *testing.T) {
	bin := stubBinary(t, `echo "The answer is 4."`)
	c := New(bin)

	res, err := c.Submit(context.Background(), &models.GenerationRequest{
		Model:  "demo:1b",
		Prompt: "2+2?",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Response != "The answer is 4." {
		t.Errorf("unexpected response: %q", res.Response)
	}
	if !res.Done || res.Channel != Name {
		t.Errorf("unexpected result metadata: %+v", res)
	}
}

func TestSubmitExecErrorCarriesStderr(t *testing.T) {
	bin := stubBinary(t, `printf 'Error: model not found\n' >&2; exit 1`)
	c := New(bin)

	_, err := c.Submit(context.Background(), &models.GenerationRequest{
		Model:  "missing:1b",
		Prompt: "hi",
	})

	var execErr *channel.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Output != "Error: model not found\n" {
		t.Errorf("diagnostic output not carried verbatim: %q", execErr.Output)
	}
	if errors.Is(err, channel.ErrUnavailable) {
		t.Error("execution failure must not be classified as transient")
	}
}

func TestSubmitMissingBinary(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "no-such-binary"))

	_, err := c.Submit(context.Background(), &models.GenerationRequest{
		Model:  "demo:1b",
		Prompt: "hi",
	})
	if !errors.Is(err, channel.ErrUnavailable) {
		t.Errorf("missing executable should be transient, got %v", err)
	}
}

func TestStream(t *testing.T) {
	bin := stubBinary(t, `printf 'first line\nsecond line\ntail'`)
	c := New(bin)

	s, err := c.Stream(context.Background(), &models.GenerationRequest{
		Model:  "demo:1b",
		Prompt: "hi",
		Stream: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	var text string
	sawDone := false
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		text += chunk.Response
		if chunk.Done {
			sawDone = true
		}
	}

	if text != "first line\nsecond line\ntail" {
		t.Errorf("unexpected assembled text: %q", text)
	}
	if !sawDone {
		t.Error("expected a terminal done chunk")
	}
}

func TestStreamCancel(t *testing.T) {
	bin := stubBinary(t, `echo started; sleep 30; echo late`)
	c := New(bin)

	s, err := c.Stream(context.Background(), &models.GenerationRequest{
		Model:  "demo:1b",
		Prompt: "hi",
		Stream: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Recv(); err != nil {
		t.Fatal(err)
	}
	if err := s.Cancel(); err != nil {
		t.Fatal(err)
	}

	// No chunks after cancellation is acknowledged.
	if _, err := s.Recv(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled after cancel, got %v", err)
	}
}

func TestListModels(t *testing.T) {
	bin := stubBinary(t, `printf 'NAME ID SIZE MODIFIED\ndemo:1b abc123def456 1.3 GB 4 days ago\n'`)
	c := New(bin)

	list, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "demo:1b" {
		t.Errorf("unexpected list: %+v", list)
	}
}
