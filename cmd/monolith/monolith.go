// Command monolith saves a web page or local HTML file as a single
// self-contained HTML document with every asset embedded as a data URL.
//
// Usage:
//
//	monolith <target> [flags]
//
// <target> is "-" (read document from stdin), a data/file/http/https URL,
// or a filesystem path.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"

	"github.com/artyom/autoflags"
	"github.com/bradfitz/gomemcache/memcache"

	"github.com/webfold/monolith"
)

func main() {
	opts := monolith.Options{Timeout: 60}
	autoflags.Define(&opts)
	var cache string
	flag.StringVar(&cache, "cache", "", "`address` of memcached server to cache assets in")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: monolith <target> [flags]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	stderr := log.New(os.Stderr, "", 0)
	if flag.NArg() != 1 || flag.Arg(0) == "" {
		if !opts.Silent {
			stderr.Print("No target specified")
		}
		os.Exit(1)
	}
	target := flag.Arg(0)

	if err := run(target, opts, cache, stderr); err != nil {
		if !opts.Silent {
			stderr.Print(err)
		}
		os.Exit(1)
	}
}

func run(target string, opts monolith.Options, cache string, stderr *log.Logger) error {
	if opts.Charset != "" && !monolith.KnownEncoding(opts.Charset) {
		return fmt.Errorf("%w: unknown encoding: %s", monolith.ErrDecode, opts.Charset)
	}

	conf := []monolith.ConfFunc{}
	if !opts.Silent {
		conf = append(conf, monolith.WithLogger(stderr))
	}
	if opts.CookieFile != "" {
		f, err := os.Open(opts.CookieFile)
		if err != nil {
			return fmt.Errorf("could not read specified cookie file: %w", err)
		}
		cookies, err := monolith.ParseCookies(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("could not parse specified cookie file: %w", err)
		}
		conf = append(conf, monolith.WithCookies(cookies))
	}
	if cache != "" {
		conf = append(conf, monolith.WithMemcache(memcache.New(cache)))
	}

	p := monolith.New(opts, conf...)
	ctx := context.Background()

	var result []byte
	if target == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("could not read stdin: %w", err)
		}
		baseURL, _ := url.Parse("data:text/html,")
		if opts.BaseURL != "" {
			if u, err := url.Parse(opts.BaseURL); err == nil {
				baseURL = u
			}
		}
		result, err = p.DocumentFromBytes(ctx, data, baseURL)
		if err != nil {
			return err
		}
	} else {
		var err error
		result, err = p.Document(ctx, target)
		if err != nil {
			return err
		}
	}
	return writeOutput(opts.Output, result)
}

// writeOutput writes data to the named file, or to stdout when path is
// empty or "-". A single trailing newline is appended when missing.
func writeOutput(path string, data []byte) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("could not prepare output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("could not write output: %w", err)
		}
	}
	return nil
}
