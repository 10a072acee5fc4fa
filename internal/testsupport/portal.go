package testsupport

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Portal is a fake ENA filereport endpoint serving fixed per-accession bodies.
type Portal struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   map[string]string
	statuses map[string]int
	requests map[string]int
}

// NewPortal starts a fake portal and registers its shutdown.
func NewPortal(t testing.TB) *Portal {
	t.Helper()

	p := &Portal{
		bodies:   make(map[string]string),
		statuses: make(map[string]int),
		requests: make(map[string]int),
	}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)
	return p
}

// Endpoint returns the filereport endpoint URL.
func (p *Portal) Endpoint() string {
	return p.Server.URL + "/ena/portal/api/filereport"
}

// Set serves body for accession.
func (p *Portal) Set(accession, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies[accession] = body
	delete(p.statuses, accession)
}

// Fail answers requests for accession with status.
func (p *Portal) Fail(accession string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[accession] = status
}

// Requests returns how many times accession was requested.
func (p *Portal) Requests(accession string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[accession]
}

func (p *Portal) serve(w http.ResponseWriter, r *http.Request) {
	accession := r.URL.Query().Get("accession")
	p.mu.Lock()
	p.requests[accession]++
	status, failing := p.statuses[accession]
	body, known := p.bodies[accession]
	p.mu.Unlock()

	switch {
	case failing:
		http.Error(w, http.StatusText(status), status)
	case !known:
		http.Error(w, "accession not found", http.StatusNotFound)
	default:
		w.Header().Set("Content-Type", "text/tab-separated-values")
		_, _ = w.Write([]byte(body))
	}
}
