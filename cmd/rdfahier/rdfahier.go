// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Program rdfahier extracts the resource hierarchy of RDFa annotated pages,
// optionally reconciles it with the RDF documents the pages link to, and
// prints the resources as JSON lines.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang/glog"
	"github.com/google/rdfahier/config"
	"github.com/google/rdfahier/dom"
	"github.com/google/rdfahier/external"
	"github.com/google/rdfahier/hierarchy"
	"github.com/google/rdfahier/rdfa"
	"github.com/google/rdfahier/resource"
	"golang.org/x/net/html"
)

const (
	outDirMode  os.FileMode = 0770
	outFileMode os.FileMode = 0660
)

var flags = registerFlags(flag.CommandLine)

type options struct {
	htmlGlob        string
	pageURL         string
	base            string
	configPath      string
	fetchTimeout    time.Duration
	skipInvalid     bool
	bestEffort      bool
	external        bool
	strict          bool
	walkDescendants bool
	ignorableOut    string
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.htmlGlob, "html", "", "glob of HTML files to read, ** matches any number of directories")
	fs.StringVar(&o.pageURL, "url", "", "URL of a page to fetch instead of reading files")
	fs.StringVar(&o.base, "base", "", "base URL for resolving alternate links; defaults to the page location")
	fs.StringVar(&o.configPath, "config", "", "if specified, a YAML file overriding the default relations")
	fs.DurationVar(&o.fetchTimeout, "fetch_timeout", 0, "timeout for each external document; overrides the config file when non-zero")
	fs.BoolVar(&o.skipInvalid, "skip_invalid", false, "log and skip annotated elements that do not yield a resource")
	fs.BoolVar(&o.bestEffort, "best_effort", false, "reconcile with the alternate documents that loaded when others fail")
	fs.BoolVar(&o.external, "external", false, "load alternate documents and add the external hierarchy")
	fs.BoolVar(&o.strict, "strict", false, "fail on external resources with more than one parent")
	fs.BoolVar(&o.walkDescendants, "walk_descendants", false, "also list external resources contained in the mapped ones")
	fs.StringVar(&o.ignorableOut, "ignorable_out", "", "if non-empty, mark ignorable elements and write each page to this directory")
	return o
}

func main() {
	flag.Parse()
	if err := run(context.Background(), flags, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fatal rdfahier error: %v\n", err)
		os.Exit(1)
	}
}

// record is one line of output.
type record struct {
	Page   string `json:"page"`
	Origin string `json:"origin"`
	*resource.Resource
}

// page is an HTML document together with the URL its links resolve against.
type page struct {
	name string
	base string
	// out is the slash separated path the page is written to under
	// -ignorable_out.
	out string
	doc *html.Node
}

func run(ctx context.Context, o *options, w io.Writer) error {
	settings, err := loadSettings(o)
	if err != nil {
		return err
	}
	httpFetcher, err := external.NewHTTPFetcher(settings.HTTPOptions())
	if err != nil {
		return err
	}
	fetcher := schemeFetcher(httpFetcher)

	pageOpts := settings.HTTPOptions()
	pageOpts.Accept = external.HTMLAccept
	pageOpts.CacheSize = 0
	pageFetcher, err := external.NewHTTPFetcher(pageOpts)
	if err != nil {
		return err
	}
	pages, err := readPages(ctx, o, pageFetcher)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, p := range pages {
		if err := processPage(ctx, o, settings, fetcher, p, enc); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

// loadSettings reads the config file, if any, and applies the flags that
// override it.
func loadSettings(o *options) (*config.Config, error) {
	settings := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	if o.fetchTimeout != 0 {
		settings.FetchTimeout = o.fetchTimeout
	}
	if o.strict {
		settings.StrictHierarchy = true
	}
	if o.walkDescendants {
		settings.WalkDescendants = true
	}
	return settings, settings.Validate()
}

// schemeFetcher serves file: URLs from the local file system and everything
// else over HTTP.
func schemeFetcher(httpFetcher external.Fetcher) external.Fetcher {
	files := external.FileFetcher(os.DirFS("/"))
	return external.FetcherFunc(func(ctx context.Context, rawURL string) (*external.Response, error) {
		if strings.HasPrefix(rawURL, "file:") {
			return files.Fetch(ctx, rawURL)
		}
		return httpFetcher.Fetch(ctx, rawURL)
	})
}

func readPages(ctx context.Context, o *options, fetcher external.Fetcher) ([]page, error) {
	switch {
	case o.pageURL != "" && o.htmlGlob != "":
		return nil, errors.New("only one of -html and -url may be given")
	case o.pageURL != "":
		resp, err := fetcher.Fetch(ctx, o.pageURL)
		if err != nil {
			return nil, err
		}
		if ct := resp.ContentType; ct != "" && !external.IsHTML(ct) {
			return nil, fmt.Errorf("%s is not an HTML page: Content-Type %q", o.pageURL, ct)
		}
		doc, err := html.Parse(bytes.NewReader(resp.Body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", o.pageURL, err)
		}
		base := o.base
		if base == "" {
			base = resp.URL
		}
		return []page{{name: o.pageURL, base: base, out: outputName(o.pageURL), doc: doc}}, nil
	case o.htmlGlob != "":
	default:
		return nil, errors.New("one of -html or -url is required")
	}

	paths, err := doublestar.FilepathGlob(o.htmlGlob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("bad -html pattern: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files match %q", o.htmlGlob)
	}
	globBase, _ := doublestar.SplitPattern(filepath.ToSlash(o.htmlGlob))
	var pages []page
	for _, path := range paths {
		rel, err := filepath.Rel(filepath.FromSlash(globBase), path)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		doc, err := html.Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		base := o.base
		if base == "" {
			if base, err = fileURL(path); err != nil {
				return nil, err
			}
		}
		pages = append(pages, page{name: path, base: base, out: filepath.ToSlash(rel), doc: doc})
	}
	glog.V(1).Infof("read %d pages matching %s", len(pages), o.htmlGlob)
	return pages, nil
}

func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func processPage(ctx context.Context, o *options, settings *config.Config, fetcher external.Fetcher, p page, enc *json.Encoder) error {
	root := dom.FromHTML(p.doc)
	var opts []rdfa.Option
	opts = append(opts, rdfa.WithXPath(true))
	if o.skipInvalid {
		opts = append(opts, rdfa.SkipInvalid(nil))
	}
	reg, err := rdfa.RegisterResources(root, opts...)
	if err != nil {
		return err
	}

	all := reg
	if o.external {
		ext, err := reconcile(ctx, o, settings, fetcher, p, reg)
		if err != nil {
			return err
		}
		all = hierarchy.Merge(reg, ext)
	}
	for _, r := range all.Resources() {
		origin := "page"
		if _, ok := reg.Get(r.ID); !ok {
			origin = "external"
		}
		if err := enc.Encode(record{Page: p.name, Origin: origin, Resource: r}); err != nil {
			return err
		}
	}

	if o.ignorableOut != "" {
		return writeIgnorable(o.ignorableOut, settings, p)
	}
	return nil
}

func reconcile(ctx context.Context, o *options, settings *config.Config, fetcher external.Fetcher, p page, reg *resource.Registry) ([]*resource.Resource, error) {
	loader := &external.Loader{Fetcher: fetcher, Base: p.base}
	if o.bestEffort {
		loader.Policy = external.BestEffort
	}
	st, err := loader.LoadExternalResources(ctx, p.doc)
	var loadErr *external.LoadError
	if errors.As(err, &loadErr) && st != nil {
		glog.Warningf("%s: %v", p.name, loadErr)
	} else if err != nil {
		return nil, err
	}
	hcfg, err := settings.Hierarchy()
	if err != nil {
		return nil, err
	}
	return hierarchy.ListExternalResources(ctx, st, reg, hcfg)
}

func writeIgnorable(dir string, settings *config.Config, p page) error {
	typ, err := settings.Ignorable()
	if err != nil {
		return err
	}
	root := dom.DocumentElement(dom.FromHTML(p.doc))
	if typ != "" {
		n := rdfa.MarkIgnorable(root, typ)
		glog.V(1).Infof("%s: marked %d ignorable elements", p.name, n)
	}
	var buf bytes.Buffer
	if err := dom.Render(&buf, dom.FromHTML(p.doc)); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.FromSlash(p.out))
	if err := os.MkdirAll(filepath.Dir(target), outDirMode); err != nil {
		return err
	}
	return os.WriteFile(target, buf.Bytes(), outFileMode)
}

// outputName is the file name a fetched page is written under.
func outputName(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		name = u.Path
	}
	base := filepath.Base(name)
	if base == "." || base == "/" || base == "" {
		return "index.html"
	}
	return base
}
