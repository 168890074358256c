package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	flagfile "github.com/TimurManjosov/flagfile"
)

var (
	findSearch    string
	findCount     bool
	findFilesOnly bool
	findUnused    bool
)

var findCmd = &cobra.Command{
	Use:   "find [path]",
	Short: "Find flag references in source code",
	Long: `Find scans a directory tree for FF- flag references.

Examples:
  ff find
  ff find ./src -s checkout
  ff find -c
  ff find --unused`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		if findUnused {
			return runFindUnused(root)
		}
		return runFind(root)
	},
}

// flagPattern builds the reference regexp. A search term that is itself
// a flag name matches exactly; any other term matches as a substring of
// flag names.
func flagPattern(search string) *regexp.Regexp {
	switch {
	case search == "":
		return regexp.MustCompile(`\bFF[-_][a-zA-Z0-9_-]+`)
	case strings.HasPrefix(search, "FF-") || strings.HasPrefix(search, "FF_"):
		return regexp.MustCompile(`\b` + regexp.QuoteMeta(search))
	default:
		return regexp.MustCompile(`\bFF[-_][a-zA-Z0-9_-]*` + regexp.QuoteMeta(search) + `[a-zA-Z0-9_-]*`)
	}
}

// walkSources visits regular files under root, skipping VCS and
// dependency directories.
func walkSources(root string, visit func(path string)) error {
	skipDirs := map[string]bool{".git": true, "node_modules": true, "vendor": true, "target": true}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		visit(path)
		return nil
	})
}

func scanFile(path string, pattern *regexp.Regexp, onMatch func(line int, text, match string)) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		for _, match := range pattern.FindAllString(text, -1) {
			onMatch(lineNo, text, match)
		}
	}
}

func runFind(root string) error {
	pattern := flagPattern(findSearch)

	switch {
	case findCount:
		counts := map[string]int{}
		err := walkSources(root, func(path string) {
			scanFile(path, pattern, func(_ int, _ string, match string) {
				counts[match]++
			})
		})
		if err != nil {
			return err
		}
		names := make([]string, 0, len(counts))
		total := 0
		for name, n := range counts {
			names = append(names, name)
			total += n
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s: %d\n", name, counts[name])
		}
		fmt.Printf("total: %d\n", total)

	case findFilesOnly:
		var files []string
		err := walkSources(root, func(path string) {
			found := false
			scanFile(path, pattern, func(int, string, string) { found = true })
			if found {
				files = append(files, path)
			}
		})
		if err != nil {
			return err
		}
		sort.Strings(files)
		for _, f := range files {
			fmt.Println(f)
		}

	default:
		return walkSources(root, func(path string) {
			scanFile(path, pattern, func(line int, text, _ string) {
				fmt.Printf("%s:%d: %s\n", path, line, strings.TrimSpace(text))
			})
		})
	}
	return nil
}

// runFindUnused reports flags defined in the Flagfile with no reference
// anywhere in the tree. The Flagfile itself and its test file do not
// count as references.
func runFindUnused(root string) error {
	f, err := flagfile.ParseFile(flagfilePath)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	defined := f.Names()
	if len(defined) == 0 {
		fmt.Printf("No flags defined in %s\n", flagfilePath)
		return nil
	}

	exclude := map[string]bool{}
	if abs, err := filepath.Abs(flagfilePath); err == nil {
		exclude[abs] = true
	}
	if abs, err := filepath.Abs(flagfilePath + ".tests"); err == nil {
		exclude[abs] = true
	}

	pattern := flagPattern("")
	referenced := map[string]bool{}
	err = walkSources(root, func(path string) {
		if abs, aerr := filepath.Abs(path); aerr == nil && exclude[abs] {
			return
		}
		scanFile(path, pattern, func(_ int, _ string, match string) {
			referenced[match] = true
		})
	})
	if err != nil {
		return err
	}

	unused := 0
	for _, name := range defined {
		if !referenced[name] {
			fmt.Println(name)
			unused++
		}
	}
	if unused == 0 {
		fmt.Println("All flags are referenced")
		return nil
	}
	return fmt.Errorf("%d unused flag(s)", unused)
}

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().StringVarP(&findSearch, "search", "s", "", "Filter flag names (case-sensitive substring match)")
	findCmd.Flags().BoolVarP(&findCount, "count", "c", false, "Print occurrence counts per flag")
	findCmd.Flags().BoolVarP(&findFilesOnly, "files-only", "l", false, "Print only file paths containing matches")
	findCmd.Flags().BoolVarP(&findUnused, "unused", "u", false, "Report flags defined but never referenced")
	findCmd.MarkFlagsMutuallyExclusive("count", "files-only", "unused")
}
