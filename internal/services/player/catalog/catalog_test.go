package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/stories/internal/services/player/storage"
)

func TestDecode(t *testing.T) {
	doc := `{"users":[{"name":"ana","avatar":"a.png","slides":[{"content":"s1"},{"content":"s2","duration_ms":1500}]}]}`
	users, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("users = %d, want 1", len(users))
	}
	if users[0].Name != "ana" || users[0].Avatar != "a.png" {
		t.Fatalf("user = %+v", users[0])
	}
	if len(users[0].Slides) != 2 {
		t.Fatalf("slides = %d, want 2", len(users[0].Slides))
	}
	if users[0].Slides[0].Duration != 0 {
		t.Fatalf("default duration = %v, want 0", users[0].Slides[0].Duration)
	}
	if users[0].Slides[1].Duration != 1500*time.Millisecond {
		t.Fatalf("duration = %v, want 1.5s", users[0].Slides[1].Duration)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"people":[]}`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "decode catalog") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDemoIsValid(t *testing.T) {
	users, err := Normalize(Demo())
	if err != nil {
		t.Fatalf("normalize demo: %v", err)
	}
	if len(users) != 4 {
		t.Fatalf("users = %d, want 4", len(users))
	}
	if len(users[0].Slides) != 2 {
		t.Fatalf("user1 slides = %d, want 2", len(users[0].Slides))
	}
}

func TestNormalize(t *testing.T) {
	users, err := Normalize([]storage.User{
		{Name: "  Jose\u0301 ", Avatar: " a ", Slides: []storage.Slide{{Content: " s "}}},
		{Name: "empty"},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if users[0].Name != "Jos\u00e9" {
		t.Fatalf("name = %q, want NFC form", users[0].Name)
	}
	if users[0].Avatar != "a" || users[0].Slides[0].Content != "s" {
		t.Fatalf("user = %+v, want trimmed fields", users[0])
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want empty author kept", len(users))
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name  string
		users []storage.User
		want  string
	}{
		{name: "no users", users: nil, want: "no users"},
		{name: "no slides", users: []storage.User{{Name: "a"}}, want: "no slides"},
		{name: "missing name", users: []storage.User{{Name: " ", Slides: []storage.Slide{{Content: "x"}}}}, want: "name is required"},
		{
			name: "duplicate after normalisation",
			users: []storage.User{
				{Name: "Jos\u00e9", Slides: []storage.Slide{{Content: "x"}}},
				{Name: "Jose\u0301"},
			},
			want: "duplicates",
		},
		{name: "empty content", users: []storage.User{{Name: "a", Slides: []storage.Slide{{Content: " "}}}}, want: "content is required"},
		{name: "negative duration", users: []storage.User{{Name: "a", Slides: []storage.Slide{{Content: "x", Duration: -time.Second}}}}, want: "must not be negative"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.users)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}
