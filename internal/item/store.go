package item

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrNotFound indicates no item matched a query.
var ErrNotFound = errors.New("item not found")

var numberedFileRe = regexp.MustCompile(`^(\d{1,3})-`)

// Store manages the directory of work item files (NNN-slug.md, optionally in
// subfolders). Archived items live under completed/.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// DiscoverOptions filters item discovery.
type DiscoverOptions struct {
	// Include restricts to a range spec like "001-005,010".
	Include string
	// Exclude removes a range spec from the result.
	Exclude string
	// Folder restricts to one subfolder of the items dir.
	Folder string
}

// Discover finds item files under the store directory. Items under
// completed/ are skipped unless Folder targets it, or no active items exist
// at all (so a run can still be planned over an archived-only directory).
func (s *Store) Discover(opts DiscoverOptions) ([]Item, error) {
	base, err := filepath.Abs(s.Dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("items directory not found: %s", base)
	}

	var includeIDs map[string]struct{}
	if opts.Include != "" {
		ids, err := ParseRange(opts.Include)
		if err != nil {
			return nil, err
		}
		includeIDs = toSet(ids)
	}
	excludeIDs := map[string]struct{}{}
	if opts.Exclude != "" {
		ids, err := ParseRange(opts.Exclude)
		if err != nil {
			return nil, err
		}
		excludeIDs = toSet(ids)
	}

	searchRoot := base
	includeCompleted := false
	if opts.Folder != "" {
		cleaned := strings.Trim(strings.ReplaceAll(opts.Folder, "\\", "/"), "/")
		candidate := filepath.Join(base, cleaned)
		if rel, err := filepath.Rel(base, candidate); err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("--folder must be a subfolder of %s: %s", base, opts.Folder)
		}
		if info, err := os.Stat(candidate); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("no item folder: %s", opts.Folder)
		}
		searchRoot = candidate
		includeCompleted = cleaned == "completed" || strings.HasPrefix(cleaned, "completed/")
	}

	files, err := collectNumberedFiles(searchRoot, base, includeCompleted)
	if err != nil {
		return nil, err
	}
	// Fallback for archive-only directories.
	if opts.Folder == "" && len(files) == 0 {
		files, err = collectNumberedFiles(searchRoot, base, true)
		if err != nil {
			return nil, err
		}
	}

	var items []Item
	for _, path := range files {
		name := filepath.Base(path)
		m := numberedFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		number := NormalizeID(m[1])
		if includeIDs != nil {
			if _, ok := includeIDs[number]; !ok {
				continue
			}
		}
		if _, ok := excludeIDs[number]; ok {
			continue
		}

		folder := ""
		if rel, err := filepath.Rel(base, path); err == nil {
			if dir := filepath.Dir(rel); dir != "." {
				folder = filepath.ToSlash(dir)
			}
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read item %s: %w", path, err)
		}

		items = append(items, Item{
			Number:  number,
			Name:    name,
			Path:    path,
			Folder:  folder,
			Content: string(content),
		})
	}

	if err := assignRefs(items); err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		ni, _ := strconv.Atoi(items[i].Number)
		nj, _ := strconv.Atoi(items[j].Number)
		if ni != nj {
			return ni < nj
		}
		return items[i].Ref < items[j].Ref
	})
	return items, nil
}

func collectNumberedFiles(root, base string, includeCompleted bool) ([]string, error) {
	completedDir := filepath.Join(base, "completed")
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") || !numberedFileRe.MatchString(d.Name()) {
			return nil
		}
		if !includeCompleted {
			if rel, err := filepath.Rel(completedDir, path); err == nil && !strings.HasPrefix(rel, "..") {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// assignRefs computes a stable execution reference per item. Numeric refs
// ("011", "providers/011") are preferred; colliding numbers fall back to the
// filename stem. Unresolvable collisions are an error, never guessed around.
func assignRefs(items []Item) error {
	byNumberRef := make(map[string][]int)
	for i := range items {
		ref := items[i].Number
		if items[i].Folder != "" {
			ref = items[i].Folder + "/" + items[i].Number
		}
		byNumberRef[ref] = append(byNumberRef[ref], i)
	}

	for ref, idxs := range byNumberRef {
		if len(idxs) == 1 {
			items[idxs[0]].Ref = ref
			continue
		}
		for _, i := range idxs {
			stem := strings.TrimSuffix(items[i].Name, ".md")
			if items[i].Folder != "" {
				items[i].Ref = items[i].Folder + "/" + stem
			} else {
				items[i].Ref = stem
			}
		}
	}

	seen := make(map[string]string)
	for _, it := range items {
		if prev, ok := seen[it.Ref]; ok {
			return fmt.Errorf("duplicate item reference %q: %s, %s", it.Ref, prev, it.Path)
		}
		seen[it.Ref] = it.Path
	}
	return nil
}

// Resolve finds a single item by number, ref, or name fragment.
func (s *Store) Resolve(query string) (Item, error) {
	items, err := s.Discover(DiscoverOptions{})
	if err != nil {
		return Item{}, err
	}

	norm := NormalizeID(query)
	var matches []Item
	for _, it := range items {
		if it.Ref == norm || it.Ref == query || it.Number == norm {
			matches = append(matches, it)
		}
	}
	if len(matches) == 0 {
		for _, it := range items {
			if strings.Contains(strings.ToLower(it.Name), strings.ToLower(query)) {
				matches = append(matches, it)
			}
		}
	}

	switch len(matches) {
	case 0:
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, query)
	case 1:
		return matches[0], nil
	default:
		var refs []string
		for _, m := range matches {
			refs = append(refs, m.Ref)
		}
		return Item{}, fmt.Errorf("ambiguous item %q: matches %s", query, strings.Join(refs, ", "))
	}
}

// Create writes a new numbered item file and returns it.
func (s *Store) Create(name, content, folder string) (Item, error) {
	dir := s.Dir
	if folder != "" {
		dir = filepath.Join(s.Dir, folder)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Item{}, fmt.Errorf("failed to create items directory: %w", err)
	}

	numbers, err := NextNumbers(dir, 1)
	if err != nil {
		return Item{}, err
	}
	filename := fmt.Sprintf("%s-%s.md", numbers[0], Slugify(name))
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return Item{}, fmt.Errorf("failed to write item file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	ref := numbers[0]
	if folder != "" {
		ref = folder + "/" + numbers[0]
	}
	return Item{
		Number:  numbers[0],
		Name:    filename,
		Path:    abs,
		Folder:  folder,
		Ref:     ref,
		Content: content,
	}, nil
}

// Archive moves an item file into completed/, preserving its subfolder.
func (s *Store) Archive(it Item) error {
	dest := filepath.Join(s.Dir, "completed", it.Folder)
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	return os.Rename(it.Path, filepath.Join(dest, it.Name))
}

// NextNumbers returns count consecutive unused zero-padded numbers in dir.
func NextNumbers(dir string, count int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	max := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		if m := numberedFileRe.FindStringSubmatch(e.Name()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}

	numbers := make([]string, count)
	for i := 0; i < count; i++ {
		numbers[i] = fmt.Sprintf("%03d", max+1+i)
	}
	return numbers, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
