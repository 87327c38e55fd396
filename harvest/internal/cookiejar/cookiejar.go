// Package cookiejar resolves and reads Netscape-format cookie files.
//
// Credential files are optional: many extraction methods work against
// public profiles, so "no cookie file" is a normal state, not an error.
package cookiejar

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// File names looked up inside the cookie directory, in priority order:
// a shared master file first, then the per-platform file, then the generic
// fallback.
const (
	masterFile     = "master_cookies.txt"
	platformSuffix = "_cookies.txt"
	genericFile    = "cookies.txt"
)

// Resolver locates the best-available cookie file for a platform.
type Resolver struct {
	dir string
	log *slog.Logger
}

// NewResolver creates a Resolver over a cookie directory.
func NewResolver(dir string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{dir: dir, log: log}
}

// Resolve returns the path of the first usable cookie file for the
// platform, or "" when none exists. A file is usable only if it contains at
// least one well-formed cookie line.
func (r *Resolver) Resolve(platform string) string {
	if r.dir == "" {
		return ""
	}
	candidates := []string{
		filepath.Join(r.dir, masterFile),
		filepath.Join(r.dir, platform+platformSuffix),
		filepath.Join(r.dir, genericFile),
	}
	for _, path := range candidates {
		cookies, err := ParseFile(path, r.log)
		if err != nil {
			continue
		}
		if len(cookies) > 0 {
			return path
		}
		r.log.Debug("cookiejar: file has no usable lines", "path", path)
	}
	return ""
}

// Cookie is one record from a Netscape cookie file.
type Cookie struct {
	Domain string
	Path   string
	Name   string
	Value  string
}

// ParseFile reads a Netscape cookie file. Malformed lines are skipped with
// a logged warning rather than failing the file.
func ParseFile(path string, log *slog.Logger) ([]Cookie, error) {
	if log == nil {
		log = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cookies []Cookie
	malformed := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// domain, include-subdomains, path, secure, expiry, name, value
		fields := strings.Split(line, "\t")
		if len(fields) < 7 || fields[0] == "" || fields[5] == "" {
			malformed++
			continue
		}
		cookies = append(cookies, Cookie{
			Domain: fields[0],
			Path:   fields[2],
			Name:   fields[5],
			Value:  fields[6],
		})
	}
	if err := sc.Err(); err != nil {
		return cookies, err
	}
	if malformed > 0 {
		log.Warn("cookiejar: skipped malformed lines", "path", path, "count", malformed)
	}
	return cookies, nil
}

// HeaderFor builds a Cookie request header value for a host from the
// matching records. Returns "" when nothing matches.
func HeaderFor(cookies []Cookie, host string) string {
	host = strings.ToLower(host)
	var b strings.Builder
	for _, c := range cookies {
		if !domainMatch(host, c.Domain) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
	}
	return b.String()
}

// domainMatch follows cookie-file semantics: a leading dot means the cookie
// applies to the domain and all its subdomains.
func domainMatch(host, domain string) bool {
	domain = strings.ToLower(domain)
	if strings.HasPrefix(domain, ".") {
		bare := strings.TrimPrefix(domain, ".")
		return host == bare || strings.HasSuffix(host, domain)
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
