package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestClientURLIncludesQuery(t *testing.T) {
	client, err := New(
		WithBaseURL("https://example.test/ena/portal/api/filereport"),
		WithFields("run_accession", "tax_id", "strain"),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	parsed, err := url.Parse(client.URL("PRJEB1"))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := parsed.Query()
	if q.Get("accession") != "PRJEB1" || q.Get("result") != "read_run" || q.Get("format") != "tsv" {
		t.Fatalf("unexpected query: %v", q)
	}
	if q.Get("fields") != "run_accession,tax_id,strain" {
		t.Fatalf("unexpected fields: %q", q.Get("fields"))
	}
}

func TestClientRejectsNonHTTPBase(t *testing.T) {
	if _, err := New(WithBaseURL("ftp://example.test")); err == nil {
		t.Fatal("expected error for ftp base url")
	}
}

func TestDownloadCopiesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("accession") != "PRJEB1" {
			http.Error(w, "unknown accession", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("run_accession\ttax_id\nERR1\t4932\n"))
	}))
	defer srv.Close()

	client, err := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var buf bytes.Buffer
	n, err := client.Download(context.Background(), "PRJEB1", &buf)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if n != int64(buf.Len()) || buf.String() != "run_accession\ttax_id\nERR1\t4932\n" {
		t.Fatalf("unexpected body %q (%d bytes)", buf.String(), n)
	}
}

func TestDownloadReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such accession", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := New(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = client.Download(context.Background(), "PRJEB404", &bytes.Buffer{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || statusErr.Body != "no such accession" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestDownloadRejectsEmptyAccession(t *testing.T) {
	client, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := client.Download(context.Background(), "  ", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for empty accession")
	}
}
