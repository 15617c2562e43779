package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const processedSubdir = "processed"

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <stats|remove-duplicates> <content-directory>")
	}

	command := os.Args[1]
	contentDir := os.Args[2]

	switch command {
	case "stats":
		if err := printStats(contentDir, os.Stdout); err != nil {
			log.Fatal(err)
		}
	case "remove-duplicates":
		if _, err := removeDuplicates(contentDir, os.Stdin, os.Stdout); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

type contentStats struct {
	Drafts    int
	Finals    int
	Processed int
}

func collectStats(contentDir string) (contentStats, error) {
	var stats contentStats

	articles, err := listArticles(contentDir)
	if err != nil {
		return stats, err
	}
	for _, path := range articles {
		if strings.HasSuffix(path, "_final.md") {
			stats.Finals++
		} else {
			stats.Drafts++
		}
	}

	// Everything under processed/ is published, whatever its extension.
	processed, err := filepath.Glob(filepath.Join(contentDir, processedSubdir, "*"))
	if err != nil {
		return stats, fmt.Errorf("listing processed articles: %w", err)
	}
	for _, path := range processed {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			stats.Processed++
		}
	}
	return stats, nil
}

func printStats(contentDir string, out io.Writer) error {
	stats, err := collectStats(contentDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Drafts:    %d\n", stats.Drafts)
	fmt.Fprintf(out, "Final:     %d\n", stats.Finals)
	fmt.Fprintf(out, "Processed: %d\n", stats.Processed)
	return nil
}

// listArticles returns draft and final articles in name order. The
// processed directory is not included.
func listArticles(contentDir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(contentDir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func contentHash(path string) (uint64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading file %s: %w", path, err)
	}
	return xxhash.Sum64String(strings.TrimSpace(string(content))), nil
}

// removeDuplicates groups unpublished articles by content hash and offers to
// delete all but the first of each group. Published articles are never touched.
func removeDuplicates(contentDir string, in io.Reader, out io.Writer) (int, error) {
	articles, err := listArticles(contentDir)
	if err != nil {
		return 0, err
	}

	hashToFiles := make(map[uint64][]string)
	var order []uint64
	for _, path := range articles {
		hash, err := contentHash(path)
		if err != nil {
			log.Printf("Error hashing %s: %v", path, err)
			continue
		}
		if _, ok := hashToFiles[hash]; !ok {
			order = append(order, hash)
		}
		hashToFiles[hash] = append(hashToFiles[hash], path)
	}

	reader := bufio.NewReader(in)
	totalRemoved := 0
	for _, hash := range order {
		files := hashToFiles[hash]
		if len(files) <= 1 {
			continue
		}

		fmt.Fprintf(out, "\nFound %d duplicates with hash %016x:\n", len(files), hash)
		for i, file := range files {
			fileName := filepath.Base(file)
			if i == 0 {
				fmt.Fprintf(out, "  KEEP: %s\n", fileName)
				continue
			}

			if confirmDelete(reader, out, file) {
				if err := os.Remove(file); err != nil {
					log.Printf("Error removing %s: %v", file, err)
				} else {
					totalRemoved++
					fmt.Fprintf(out, "  REMOVED: %s\n", fileName)
				}
			} else {
				fmt.Fprintf(out, "  SKIP: %s\n", fileName)
			}
		}
	}

	fmt.Fprintf(out, "\nRemoved %d duplicate files\n", totalRemoved)
	return totalRemoved, nil
}

func confirmDelete(reader *bufio.Reader, out io.Writer, path string) bool {
	for {
		fmt.Fprintf(out, "  DELETE %s? [y/N]: ", filepath.Base(path))
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			if err != io.EOF {
				log.Printf("Error reading input: %v", err)
			}
			return false
		}
		response := strings.ToLower(strings.TrimSpace(input))
		switch response {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Fprintln(out, "  Please enter y or n.")
		}
	}
}
