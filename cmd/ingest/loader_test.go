package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# Budgeting")
	writeFile(t, filepath.Join(dir, "nested", "b.csv"), "x\n1\n")
	writeFile(t, filepath.Join(dir, "nested", "c.pdf"), "%PDF")
	writeFile(t, filepath.Join(dir, "d.TXT"), "save")

	files, err := collectFiles([]string{dir, filepath.Join(dir, "a.md")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %v, want a.md, d.TXT and nested/b.csv", files)
	}
	for _, f := range files {
		if strings.HasSuffix(f, ".pdf") {
			t.Errorf("unsupported file collected: %s", f)
		}
	}

	if _, err := collectFiles([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestCSVBlocks(t *testing.T) {
	csvText := "category,percent\nrent,32\ngroceries,24\n\"bad,row\n"
	blocks, err := csvBlocks(strings.NewReader(csvText), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2: %q", len(blocks), blocks)
	}
	if blocks[0] != "category | percent\nrent | 32" {
		t.Errorf("got %q", blocks[0])
	}
}

func TestCSVBlocksGrouping(t *testing.T) {
	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 25; i++ {
		b.WriteString("row\n")
	}
	blocks, err := csvBlocks(strings.NewReader(b.String()), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	if got := strings.Count(blocks[2], "\n"); got != 5 {
		t.Errorf("last block has %d rows, want 5", got)
	}
}

func TestCSVEmpty(t *testing.T) {
	blocks, err := csvBlocks(strings.NewReader(""), 10)
	if err != nil || blocks != nil {
		t.Errorf("got %v, %v", blocks, err)
	}
}

func TestLoaderSplitsText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.txt")
	para := strings.Repeat("Pay yourself first. ", 10)
	writeFile(t, path, strings.Repeat(para+"\n\n", 10))

	chunks, err := newLoader(300, 50, 0).Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 300 {
			t.Errorf("chunk of %d chars exceeds size", len(c))
		}
	}
}

func TestLoaderEmptyText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.md")
	writeFile(t, path, "  \n")
	chunks, err := newLoader(100, 10, 0).Load(path)
	if err != nil || len(chunks) != 0 {
		t.Errorf("got %v, %v", chunks, err)
	}
}
