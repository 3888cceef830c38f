package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/notttired/aire-frontend/internal/entity"
	"github.com/notttired/aire-frontend/internal/repository"
	"github.com/notttired/aire-frontend/internal/usecase"
)

const maxBodyShown = 500

// renderer prints scrape progress and the final outcome for a terminal.
// It is the ProgressSink of the scrape command.
type renderer struct {
	mu sync.Mutex
	w  io.Writer
}

var _ usecase.ProgressSink = (*renderer)(nil)

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w}
}

func (r *renderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format, args...)
}

func (r *renderer) Sending(baseURL string) {
	r.printf("Sending request to %s/scrape...\n", baseURL)
}

// OnPollEvent prints the in-progress states. Terminal states are printed
// once Run returns.
func (r *renderer) OnPollEvent(ev entity.PollEvent) {
	if ev.State != entity.PollPending {
		return
	}
	if ev.Attempt == 0 {
		r.printf("⏳ Task submitted (ID: %s). Waiting for results...\n", ev.JobID)
		return
	}
	r.printf("⏳ Task in progress (%ds elapsed, attempt %d/%d)...\n",
		int(ev.Elapsed.Seconds()), ev.Attempt, ev.MaxAttempts)
}

func (r *renderer) Success(out *usecase.ScrapeOutcome) {
	if out.Direct {
		r.printf("✓ Request completed successfully!\n")
	} else {
		r.printf("✓ Scraping completed successfully!\n")
	}
	r.printf("%s\n", pretty(out.Data))
}

func (r *renderer) Failure(err error) {
	var (
		jobErr     *repository.JobFailedError
		timeoutErr *repository.TimeoutError
	)
	switch {
	case errors.As(err, &jobErr):
		r.printf("✗ Task failed: %s\n", jobErr.Message)
		r.printf("%s\n", pretty(jobErr.Raw))
		return
	case errors.As(err, &timeoutErr):
		r.printf("✗ Timeout: Task did not complete within %d attempts\n", timeoutErr.Attempts)
		return
	case errors.Is(err, repository.ErrInvalidInput):
		r.printf("✗ %s\n", err)
		return
	}

	r.printf("✗ %s\n", err)
	fields := map[string]any{
		"error":   err.Error(),
		"details": "Run with --log-level debug for the raw responses",
	}
	var malformed *repository.MalformedResponseError
	if errors.As(err, &malformed) {
		fields["status"] = malformed.StatusCode
		fields["body"] = clipBody(malformed.Body)
		delete(fields, "details")
	}
	details, _ := json.Marshal(fields)
	r.printf("%s\n", pretty(details))
}

// clipBody keeps the start of a raw body for display.
func clipBody(body []byte) string {
	s := strings.ToValidUTF8(string(body), "\uFFFD")
	if len(s) <= maxBodyShown {
		return s
	}
	cut := maxBodyShown
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "... (" + strconv.Itoa(len(body)) + " bytes)"
}

// pretty indents JSON and returns anything else unchanged.
func pretty(raw []byte) string {
	if len(raw) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
