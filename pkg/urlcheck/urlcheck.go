// Package urlcheck verifies that every uri= of a manifest resolves.
package urlcheck

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/aerorepo/pkg/exitcode"
	"github.com/fulmenhq/aerorepo/pkg/fetch"
)

const uriPrefix = "uri="

// ErrEmptyURI is the outcome of a uri= line without a value.
var ErrEmptyURI = errors.New("empty uri")

// ExtractURIs returns the value of every line starting with uri=, in file
// order. Surrounding whitespace is ignored; a blank value is kept so the
// checker can report it.
func ExtractURIs(r io.Reader) ([]string, error) {
	var urls []string
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if !strings.HasPrefix(line, uriPrefix) {
			continue
		}
		urls = append(urls, strings.TrimSpace(line[len(uriPrefix):]))
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return urls, nil
}

// IsRemote reports whether source names an http(s) manifest.
func IsRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Load reads the URIs of a manifest given as a URL or a local path.
func Load(ctx context.Context, f fetch.HTTPFetcher, source string) ([]string, error) {
	if IsRemote(source) {
		body, err := fetch.GetBody(ctx, f, source)
		if err != nil {
			return nil, err
		}
		return ExtractURIs(bytes.NewReader(body))
	}

	file, err := os.Open(filepath.Clean(source)) // #nosec G304 -- operator-supplied manifest path
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return ExtractURIs(file)
}

// Outcome is the result of checking one URL.
type Outcome struct {
	Index      int
	URL        string
	StatusCode int
	Err        error
}

// Passed reports a 2xx answer.
func (o Outcome) Passed() bool {
	return o.Err == nil && fetch.IsSuccess(o.StatusCode)
}

// String is the report line for o.
func (o Outcome) String() string {
	switch {
	case o.Err != nil:
		return fmt.Sprintf("%d\tERROR %s\t%v", o.Index, o.URL, o.Err)
	case o.Passed():
		return fmt.Sprintf("%d\tpass %d %s", o.Index, o.StatusCode, o.URL)
	default:
		return fmt.Sprintf("%d\tFAIL %d %s", o.Index, o.StatusCode, o.URL)
	}
}

// Report aggregates outcomes.
type Report struct {
	Outcomes []Outcome
	Failed   []string
}

// Passed is true only when every URL passed.
func (r Report) Passed() bool { return len(r.Failed) == 0 }

// ExitCode maps the report to the process exit code.
func (r Report) ExitCode() int { return exitcode.FromBool(r.Passed()) }

// WriteSummary prints the verdict and the failing URLs.
func (r Report) WriteSummary(w io.Writer) error {
	if r.Passed() {
		_, err := fmt.Fprintln(w, "PASS: All URIs downloaded successfully.")
		return err
	}
	var b strings.Builder
	b.WriteString("FAIL: Some/all URIs could not be downloaded.\nFailed URLs:\n")
	for _, u := range r.Failed {
		if u == "" {
			u = "(" + ErrEmptyURI.Error() + ")"
		}
		b.WriteString(u)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Checker issues one HEAD per URL. Redirects are followed by the fetcher.
type Checker struct {
	Fetcher fetch.HTTPFetcher
	// Out receives one line per URL as it is checked; may be nil.
	Out io.Writer
}

// Check never stops early: a failing URL is recorded and the rest are
// still checked. Only a cancelled context ends the run, with its error.
func (c *Checker) Check(ctx context.Context, urls []string) (Report, error) {
	var rep Report
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		o := Outcome{Index: i, URL: u}
		if u == "" {
			o.Err = ErrEmptyURI
		} else if resp, err := fetch.Head(ctx, c.Fetcher, u); err != nil {
			o.Err = err
		} else {
			o.StatusCode = resp.StatusCode
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		rep.Outcomes = append(rep.Outcomes, o)
		if !o.Passed() {
			rep.Failed = append(rep.Failed, u)
		}
		if c.Out != nil {
			if _, err := fmt.Fprintln(c.Out, o.String()); err != nil {
				return rep, err
			}
		}
	}
	return rep, nil
}

// ScheduledCI reports an unattended scheduled CI run, where many forks
// fire at the same minute.
func ScheduledCI(getenv func(string) string) bool {
	return getenv("CI") == "true" && getenv("GITHUB_EVENT_NAME") == "schedule"
}

// Jitter picks a delay in [0, maxDelay] using pick, which returns a value
// in [0, n). A nil pick uses math/rand/v2.
func Jitter(maxDelay time.Duration, pick func(n int64) int64) time.Duration {
	if maxDelay <= 0 {
		return 0
	}
	if pick == nil {
		pick = rand.Int64N
	}
	return time.Duration(pick(int64(maxDelay) + 1))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
