// Package main contains Mage build targets for book-enricher developer tooling.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the CLI expects.
var projectDirs = []string{
	"catalog/index",
	"testdata",
}

// Init creates the catalog directory structure.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "book-enricher"
	cmdPkg  = "./cmd/book-enricher"
)

// Build compiles the CLI binary into bin/, stamping the version from
// BOOK_ENRICHER_VERSION when set.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version := os.Getenv("BOOK_ENRICHER_VERSION")
	if version == "" {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Demo builds the CLI, loads the sample catalog, and enriches a sample
// baseline against the fixture providers.
func Demo() error {
	mg.SerialDeps(Init, Build)
	bin := filepath.Join(binDir, binName)
	if err := sh.RunV(bin, "catalog", "import", "testdata/catalog.yaml"); err != nil {
		return err
	}
	if err := sh.RunV(bin, "duplicate", "--id", "978-0-441-17271-9"); err != nil {
		return err
	}
	return sh.RunV(bin, "enrich", "--isbn", "0441172717", "--title", "Dune", "--fixtures", "testdata/providers.yaml")
}

// Stats prints Go production and test line counts per top-level tree and
// the word count of Markdown and YAML documentation.
func Stats() error {
	for _, root := range []string{"cmd", "internal", "pkg"} {
		prod, test, err := countGoLines(root)
		if err != nil {
			return err
		}
		fmt.Printf("%-10s production %6d  tests %6d\n", root, prod, test)
	}
	words, err := countDocWords(".")
	if err != nil {
		return err
	}
	fmt.Printf("Words (documentation): %d\n", words)
	return nil
}

// skipDir reports directories that hold reference or fixture material.
func skipDir(name string) bool {
	return strings.HasPrefix(name, "_") || name == "testdata" || name == "bin" || name == ".git"
}

// countGoLines counts non-blank lines in production and _test.go files under root.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}

// countDocWords counts whitespace-separated words in .md and .yaml files.
func countDocWords(root string) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".md", ".yaml", ".yml":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		total += len(strings.Fields(string(data)))
		return nil
	})
	return total, err
}
