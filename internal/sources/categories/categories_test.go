package categories

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "categories.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	path := writeFile(t, `---
categories:
  - name: AI
    keywords: [ai, LLM, "machine learning"]
  - name: Go
    keywords:
      - golang
      - "{{STASH_VAR_EXTRA}}"
`)

	f, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f.Categories) != 2 {
		t.Fatalf("Load() returned %d categories, want 2", len(f.Categories))
	}
	if f.Categories[1].Keywords[1] != "" {
		t.Errorf("template variable not stripped: %q", f.Categories[1].Keywords[1])
	}
}

func TestLoaderErrors(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load(); err == nil {
		t.Error("Load() of a missing file should fail")
	}
	if _, err := NewLoader(writeFile(t, "categories: [unterminated")).Load(); err == nil {
		t.Error("Load() of invalid yaml should fail")
	}
}

func TestMapCategories(t *testing.T) {
	tests := []struct {
		name    string
		in      File
		want    []domain.Category
		wantErr bool
	}{
		{
			name: "normalises keywords",
			in: File{Categories: []Entry{
				{Name: " AI ", Keywords: []string{"LLM", " llm", "", "gpt"}},
			}},
			want: []domain.Category{{Name: "AI", Keywords: []string{"llm", "gpt"}}},
		},
		{
			name: "merges repeated names and skips disabled",
			in: File{Categories: []Entry{
				{Name: "Go", Keywords: []string{"golang"}},
				{Name: "Music", Keywords: []string{"song"}, Disabled: true},
				{Name: "go", Keywords: []string{"gopher", "golang"}},
				{Name: "", Keywords: []string{"orphan"}},
			}},
			want: []domain.Category{{Name: "Go", Keywords: []string{"golang", "gopher"}}},
		},
		{
			name:    "empty",
			in:      File{Categories: []Entry{{Name: "x", Disabled: true}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewMapper().MapCategories(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrEmpty) {
					t.Fatalf("MapCategories() error = %v, want ErrEmpty", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MapCategories() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MapCategories() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
