package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadCandidates(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{
			name: "valid array",
			body: `[{"site-url":"https://a.example/p","image-url":"https://a.example/1.jpg"},
			        {"site-url":"https://b.example","image-url":"https://b.example/2.png","client-id":"crawler"}]`,
			want: 2,
		},
		{name: "empty array", body: `[]`, want: 0},
		{name: "not json", body: `site,image`, wantErr: true},
		{name: "missing image", body: `[{"site-url":"https://a.example"}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "candidates.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatal(err)
			}

			got, err := readCandidates(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readCandidates() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(got) != tt.want {
				t.Errorf("readCandidates() returned %d candidates, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReadCandidatesMissingFile(t *testing.T) {
	if _, err := readCandidates(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"publish", "ingest", "search", "migrate"} {
		if cmd, _, err := rootCmd.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
