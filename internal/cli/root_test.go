package cli

import (
	"bytes"
	"testing"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	_, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	dbFlag := root.PersistentFlags().Lookup("db")
	if dbFlag == nil {
		t.Fatal("expected --db flag to exist")
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	root := NewRootCmd()

	want := map[string]bool{"serve": false, "sweep": false, "seed": false, "version": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %s subcommand to be registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	if _, err := executeCommand("version"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
