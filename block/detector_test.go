package block

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

type headedPage struct{ *page.Static }

func (headedPage) Interactive() bool { return true }

func staticPage(t *testing.T, html string) *page.Static {
	t.Helper()
	p, err := page.NewStatic("https://example.com/", html)
	require.NoError(t, err)
	return p
}

func TestDetectSignatures(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		blocked   bool
		signature string
	}{
		{"clean", `<p>hello</p>`, false, ""},
		{"recaptcha iframe", `<iframe src="https://www.google.com/recaptcha/api2/anchor"></iframe>`, true, "iframe[src*='google.com/recaptcha']"},
		{"challenge form", `<form id="challenge-form"></form>`, true, "#challenge-form"},
		{"phrase", `<h1>Please VERIFY you are Human</h1>`, true, "verify you are human"},
		{"selector wins over phrase", `<div class="g-recaptcha"></div><p>Complete the security check</p>`, true, "div.g-recaptcha"},
	}
	d := NewDetector(ChanConfirmer{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := d.Detect(context.Background(), staticPage(t, tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.blocked, sig.Blocked)
			assert.Equal(t, tt.signature, sig.Signature)
		})
	}
}

func TestRecoverHeadless(t *testing.T) {
	d := NewDetector(ChanConfirmer{})
	sig, err := d.DetectAndRecover(context.Background(), staticPage(t, `<div class="g-recaptcha"></div>`))
	assert.True(t, sig.Blocked)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeBlockDetected, models.CodeOf(err))
}

func TestRecoverHeadedWaitsForOperator(t *testing.T) {
	resume := make(chan struct{})
	prompts := make(chan string, 1)
	d := NewDetector(ChanConfirmer{C: resume, Prompts: prompts})
	p := headedPage{staticPage(t, `<form id="challenge-form"></form>`)}

	done := make(chan error, 1)
	go func() {
		_, err := d.DetectAndRecover(context.Background(), p)
		done <- err
	}()

	select {
	case prompt := <-prompts:
		assert.Contains(t, prompt, "example.com")
	case <-time.After(2 * time.Second):
		t.Fatal("no operator prompt")
	}
	select {
	case <-done:
		t.Fatal("recovery returned before operator confirmation")
	case <-time.After(50 * time.Millisecond):
	}

	close(resume)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("recovery did not resume")
	}
}

func TestRecoverHeadedCancelled(t *testing.T) {
	d := NewDetector(ChanConfirmer{C: make(chan struct{})})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.DetectAndRecover(ctx, headedPage{staticPage(t, `<div class="g-recaptcha"></div>`)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConsoleConfirmer(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleConfirmer(strings.NewReader("\n"), &out)
	require.NoError(t, c.Confirm(context.Background(), "press enter"))
	assert.Contains(t, out.String(), "press enter")
}

func TestConsoleConfirmerCancelledWaitKeepsNextLine(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	prompts := promptWriter(make(chan string, 4))
	c := NewConsoleConfirmer(pr, prompts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Confirm(ctx, "first"), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- c.Confirm(context.Background(), "second") }()
	for p := range prompts {
		if strings.Contains(p, "second") {
			break
		}
	}

	_, err := pw.Write([]byte("\n"))
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("one line did not release the second wait")
	}
}

// promptWriter passes every printed prompt to the test.
type promptWriter chan string

func (w promptWriter) Write(b []byte) (int, error) {
	w <- string(b)
	return len(b), nil
}

func TestConsoleConfirmerEOF(t *testing.T) {
	c := NewConsoleConfirmer(strings.NewReader(""), io.Discard)
	require.NoError(t, c.Confirm(context.Background(), "a"))
	require.NoError(t, c.Confirm(context.Background(), "b"))
}
