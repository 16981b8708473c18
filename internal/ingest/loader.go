package ingest

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"pack_audit/internal/content"
	"pack_audit/internal/logging"
	"pack_audit/internal/pipeline"
)

var (
	ErrNoPacks    = errors.New("no packs found")
	ErrIndexCycle = errors.New("index page cycle")
)

const IndexFileName = "index.json"

type Options struct {
	Workers int
	Logger  *logging.Logger
}

type Warning struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

type Corpus struct {
	Root     string
	Packs    []content.Pack
	Warnings []Warning
}

// source is one candidate pack file, read lazily by a pipeline worker.
type source struct {
	name string
	read func() ([]byte, error)
}

type indexPage struct {
	Packs []string `json:"packs"`
	Next  string   `json:"next"`
}

// LoadCorpus reads every pack under path. path may be a directory, a paged
// index file, a single pack file or a .zip bundle. Files that fail to decode
// are skipped and reported as warnings; only an unreadable root or an empty
// result is an error.
func LoadCorpus(path string, opts Options) (*Corpus, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("corpus", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat corpus: %w", err)
	}

	corpus := &Corpus{Root: path}
	var sources []source
	switch {
	case info.IsDir():
		sources, err = dirSources(path, corpus, log)
	case strings.EqualFold(filepath.Ext(path), ".zip"):
		sources, err = zipSources(path)
	default:
		sources, err = fileSources(path, corpus, log)
	}
	if err != nil {
		return nil, err
	}

	packs := make([]content.Pack, len(sources))
	failures := pipeline.ForEach(sources, opts.Workers, func(i int, src source) error {
		raw, err := src.read()
		if err != nil {
			return err
		}
		pack, err := decodePack(raw, src.name)
		if err != nil {
			return err
		}
		packs[i] = pack
		return nil
	})
	failed := make(map[int]error, len(failures))
	for _, f := range failures {
		failed[f.Index] = f.Err
	}

	seen := map[string]string{}
	for i, src := range sources {
		if err, ok := failed[i]; ok {
			corpus.warn(log, src.name, err.Error())
			continue
		}
		pack := packs[i]
		if first, dup := seen[pack.ID]; dup {
			corpus.warn(log, src.name, fmt.Sprintf("duplicate pack id %q (first seen in %s)", pack.ID, first))
			continue
		}
		seen[pack.ID] = src.name
		corpus.Packs = append(corpus.Packs, pack)
	}

	if len(corpus.Packs) == 0 {
		return corpus, fmt.Errorf("load %s: %w", path, ErrNoPacks)
	}
	log.Info("corpus loaded", "packs", len(corpus.Packs), "warnings", len(corpus.Warnings))
	return corpus, nil
}

func (c *Corpus) warn(log *logging.Logger, name, reason string) {
	log.Warn("skipping pack file", "source", name, "reason", reason)
	c.Warnings = append(c.Warnings, Warning{Source: name, Reason: reason})
}

func dirSources(root string, corpus *Corpus, log *logging.Logger) ([]source, error) {
	index := filepath.Join(root, IndexFileName)
	if _, err := os.Stat(index); err == nil {
		return indexSources(index, corpus, log)
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".json") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}
	slices.Sort(files)
	return fileList(files), nil
}

func fileSources(path string, corpus *Corpus, log *logging.Logger) ([]source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	var page indexPage
	if json.Unmarshal(raw, &page) == nil && len(page.Packs) > 0 {
		return indexSources(path, corpus, log)
	}
	return fileList([]string{path}), nil
}

// indexSources follows a chain of index pages. Pack paths are relative to
// the page that lists them.
func indexSources(first string, corpus *Corpus, log *logging.Logger) ([]source, error) {
	visited := map[string]bool{}
	var files []string
	for page := first; page != ""; {
		abs, err := filepath.Abs(page)
		if err != nil {
			return nil, fmt.Errorf("resolve index page: %w", err)
		}
		if visited[abs] {
			return nil, fmt.Errorf("%s: %w", page, ErrIndexCycle)
		}
		visited[abs] = true

		raw, err := os.ReadFile(page)
		if err != nil {
			return nil, fmt.Errorf("read index page: %w", err)
		}
		var idx indexPage
		if err := json.Unmarshal(raw, &idx); err != nil {
			return nil, fmt.Errorf("decode index page %s: %w", page, err)
		}

		dir := filepath.Dir(page)
		for _, rel := range idx.Packs {
			p := filepath.Join(dir, filepath.FromSlash(rel))
			if _, err := os.Stat(p); err != nil {
				corpus.warn(log, p, "listed in index but missing")
				continue
			}
			files = append(files, p)
		}
		if idx.Next == "" {
			break
		}
		page = filepath.Join(dir, filepath.FromSlash(idx.Next))
	}
	return fileList(files), nil
}

func zipSources(path string) ([]source, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle zip: %w", err)
	}
	defer zr.Close()

	var entries []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".json") {
			continue
		}
		if filepath.Base(f.Name) == IndexFileName {
			continue
		}
		entries = append(entries, f)
	}
	slices.SortFunc(entries, func(a, b *zip.File) int { return strings.Compare(a.Name, b.Name) })

	// Entries are read eagerly because the archive is closed on return.
	out := make([]source, 0, len(entries))
	for _, f := range entries {
		raw, readErr := readZipEntry(f)
		name := path + "!" + f.Name
		out = append(out, source{name: name, read: func() ([]byte, error) { return raw, readErr }})
	}
	return out, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return raw, nil
}

func fileList(files []string) []source {
	out := make([]source, 0, len(files))
	for _, f := range files {
		if filepath.Base(f) == IndexFileName {
			continue
		}
		out = append(out, source{name: f, read: func() ([]byte, error) { return os.ReadFile(f) }})
	}
	return out
}

func decodePack(raw []byte, name string) (content.Pack, error) {
	var pack content.Pack
	if err := json.Unmarshal(raw, &pack); err != nil {
		return content.Pack{}, fmt.Errorf("decode pack: %w", err)
	}
	if pack.Prompts == nil && pack.ID == "" {
		return content.Pack{}, errors.New("not a pack file: no id and no prompts")
	}
	if pack.ID == "" {
		base := filepath.Base(strings.ReplaceAll(name, "!", string(filepath.Separator)))
		pack.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for i := range pack.Prompts {
		pack.Prompts[i].Text = norm.NFC.String(pack.Prompts[i].Text)
	}
	pack.SourcePath = name
	return pack, nil
}
