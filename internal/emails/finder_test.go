package emails

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/models"
)

func testConfig() *common.EmailsConfig {
	return &common.EmailsConfig{
		MaxPages:       3,
		RequestTimeout: 5 * time.Second,
		RequestDelay:   time.Millisecond,
		UserAgent:      "test-agent",
	}
}

func newTestFinder() *Finder {
	return NewFinder(testConfig(), arbor.NewLogger())
}

func TestFindEmails_MailtoAndTextMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="mailto:hello@acme.test?subject=Hi">Email us</a>
			<p>Reach sales at sales@acme.test or dave@acme.test</p>
			<img src="logo@2x.png"/>
		</body></html>`)
	}))
	defer server.Close()

	emails, primary, err := newTestFinder().FindEmails(context.Background(), models.Business{
		Name:    "Acme",
		Website: server.URL,
	})
	if err != nil {
		t.Fatalf("FindEmails failed: %v", err)
	}

	if len(emails) != 3 {
		t.Fatalf("emails = %v, want 3 real addresses (asset filename excluded)", emails)
	}
	// Generic inboxes sort ahead of personal addresses
	if primary != "hello@acme.test" {
		t.Errorf("primary = %q, want hello@acme.test", primary)
	}
}

func TestFindEmails_FollowsContactPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/contact">Contact us</a></body></html>`)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>Write to contact@widgets.test</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	emails, primary, err := newTestFinder().FindEmails(context.Background(), models.Business{
		Name:    "Widgets",
		Website: server.URL,
	})
	if err != nil {
		t.Fatalf("FindEmails failed: %v", err)
	}
	if len(emails) != 1 || primary != "contact@widgets.test" {
		t.Errorf("emails = %v, primary = %q", emails, primary)
	}
}

func TestFindEmails_GeneratedFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>No contact details here.</body></html>`)
	}))
	defer server.Close()

	emails, primary, err := newTestFinder().FindEmails(context.Background(), models.Business{
		Name:    "Silent Co",
		Website: server.URL,
	})
	if err != nil {
		t.Fatalf("FindEmails failed: %v", err)
	}
	if len(emails) != 0 {
		t.Errorf("emails = %v, want none", emails)
	}

	host, _ := url.Parse(server.URL)
	want := "info@" + host.Hostname() + " (generated)"
	if primary != want {
		t.Errorf("primary = %q, want %q", primary, want)
	}
}

func TestFindEmails_NoWebsiteIsItemError(t *testing.T) {
	_, _, err := newTestFinder().FindEmails(context.Background(), models.Business{Name: "Offline Shop"})
	if err == nil {
		t.Fatal("expected error for business without website")
	}
}

func TestFindEmails_ServerErrorIsItemError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, _, err := newTestFinder().FindEmails(context.Background(), models.Business{
		Name:    "Broken",
		Website: server.URL,
	})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestSortByPreference(t *testing.T) {
	emails := []string{"zack@x.test", "support@x.test", "info@x.test", "contact@x.test"}
	sortByPreference(emails)

	want := []string{"contact@x.test", "info@x.test", "support@x.test", "zack@x.test"}
	for i := range want {
		if emails[i] != want[i] {
			t.Fatalf("order = %v, want %v", emails, want)
		}
	}
}
