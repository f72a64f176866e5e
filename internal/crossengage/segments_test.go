package crossengage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResolveEmailAttributeID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/campaigns/event-classes" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"properties":[{"id":7,"label":"traits.firstName"},{"id":42,"label":"traits.email"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	id, err := client.ResolveEmailAttributeID(context.Background())
	if err != nil {
		t.Fatalf("ResolveEmailAttributeID failed: %v", err)
	}
	if id.String() != "42" {
		t.Errorf("Expected attribute id 42, got %s", id.String())
	}
}

func TestResolveEmailAttributeIDNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"properties":[{"id":7,"label":"traits.firstName"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	if _, err := client.ResolveEmailAttributeID(context.Background()); !errors.Is(err, ErrAttributeNotFound) {
		t.Errorf("Expected ErrAttributeNotFound, got %v", err)
	}
}

func TestCreateSegment(t *testing.T) {
	var captured segmentPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/campaigns/filters" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("Decoding payload: %v", err)
		}
		w.Write([]byte(`{"id":9001}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	emails := []string{"alice@example.com", "bob@example.com", "carol@example.com"}
	segmentID, err := client.CreateSegment(context.Background(), json.Number("42"), emails)
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}
	if segmentID != "9001" {
		t.Errorf("Expected segment id 9001, got %s", segmentID)
	}

	if captured.Type != "CONTAINER" || captured.Operator != "OR" {
		t.Errorf("Expected OR container, got type=%s operator=%s", captured.Type, captured.Operator)
	}
	if !strings.HasPrefix(captured.Label, "[Sendgrid Opt-Out Sync] ") {
		t.Errorf("Unexpected segment label %q", captured.Label)
	}
	if len(captured.SubFilters) != len(emails) {
		t.Fatalf("Expected %d subfilters, got %d", len(emails), len(captured.SubFilters))
	}
	for i, sub := range captured.SubFilters {
		if sub.Type != "ATTRIBUTE" {
			t.Errorf("Subfilter %d has type %s", i, sub.Type)
		}
		if len(sub.Conditions) != 1 {
			t.Fatalf("Subfilter %d has %d conditions", i, len(sub.Conditions))
		}
		cond := sub.Conditions[0]
		if cond.AttributeID.String() != "42" {
			t.Errorf("Subfilter %d references attribute %s", i, cond.AttributeID.String())
		}
		if cond.Operator != "==" {
			t.Errorf("Subfilter %d uses operator %s", i, cond.Operator)
		}
		if len(cond.Values) != 1 || cond.Values[0] != emails[i] {
			t.Errorf("Subfilter %d matches %v, want %s", i, cond.Values, emails[i])
		}
	}
}

func TestCreateSegmentError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	_, err := client.CreateSegment(context.Background(), json.Number("42"), []string{"a@example.com"})
	if !errors.Is(err, ErrSegmentCreate) {
		t.Errorf("Expected ErrSegmentCreate, got %v", err)
	}
}

func TestTriggerSegmentCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/filters/9001/count" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"total":87}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	total, err := client.TriggerSegmentCount(context.Background(), "9001")
	if err != nil {
		t.Fatalf("TriggerSegmentCount failed: %v", err)
	}
	if total != 87 {
		t.Errorf("Expected total 87, got %d", total)
	}
}

func TestListSegmentMembers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userexplorer/9001" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("offset") != "0" || q.Get("limit") != "100" {
			t.Errorf("Unexpected paging params: %v", q)
		}
		w.Write([]byte(`{"part":[
			{"xngGlobalUserId":"u1","externalId":"ext1","email":"alice@example.com"},
			{"xngGlobalUserId":"u2","externalId":"","email":"bob@example.com"}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	users, err := client.ListSegmentMembers(context.Background(), "9001", 0, 100)
	if err != nil {
		t.Fatalf("ListSegmentMembers failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	if users[0].ExternalID != "ext1" {
		t.Errorf("Unexpected first user: %+v", users[0])
	}
	if users[1].ExternalID != "" {
		t.Errorf("Expected empty external id, got %q", users[1].ExternalID)
	}
}

func TestDeleteSegmentRequires204(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Expected DELETE, got %s", r.Method)
		}
		// 200 instead of 204 is a failure
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	if err := client.DeleteSegment(context.Background(), "9001"); !errors.Is(err, ErrSegmentDelete) {
		t.Errorf("Expected ErrSegmentDelete, got %v", err)
	}
}

// segmentServer implements the whole segment lifecycle and records calls.
type segmentServer struct {
	createCalls int
	countCalls  int
	listCalls   int
	deleteCalls int

	failCount  bool
	failDelete bool
}

func (s *segmentServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/campaigns/filters":
			s.createCalls++
			w.Write([]byte(`{"id":9001}`))
		case r.URL.Path == "/filters/9001/count":
			s.countCalls++
			if s.failCount {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"total":1}`))
		case strings.HasPrefix(r.URL.Path, "/userexplorer/"):
			s.listCalls++
			w.Write([]byte(`{"part":[{"xngGlobalUserId":"u1","externalId":"ext1","email":"a@example.com"}]}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/filters/9001":
			s.deleteCalls++
			if s.failDelete {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestWithSegmentLifecycle(t *testing.T) {
	backend := &segmentServer{}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	var got []User
	err := client.WithSegment(context.Background(), json.Number("42"), []string{"a@example.com"},
		func(ctx context.Context, users []User) error {
			got = users
			return nil
		})
	if err != nil {
		t.Fatalf("WithSegment failed: %v", err)
	}
	if len(got) != 1 || got[0].XNGGlobalUserID != "u1" {
		t.Errorf("Callback received unexpected users: %+v", got)
	}
	if backend.createCalls != 1 || backend.countCalls != 1 || backend.listCalls != 1 || backend.deleteCalls != 1 {
		t.Errorf("Unexpected call counts: %+v", backend)
	}
}

func TestWithSegmentDeletesOnCallbackError(t *testing.T) {
	backend := &segmentServer{}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	wantErr := errors.New("callback failed")
	err := client.WithSegment(context.Background(), json.Number("42"), []string{"a@example.com"},
		func(ctx context.Context, users []User) error {
			return wantErr
		})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected callback error, got %v", err)
	}
	if backend.deleteCalls != 1 {
		t.Errorf("Expected delete to be attempted after callback failure, got %d calls", backend.deleteCalls)
	}
}

func TestWithSegmentDeletesOnCountError(t *testing.T) {
	backend := &segmentServer{failCount: true}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	err := client.WithSegment(context.Background(), json.Number("42"), []string{"a@example.com"},
		func(ctx context.Context, users []User) error {
			t.Error("Callback should not run when counting fails")
			return nil
		})
	if !errors.Is(err, ErrSegmentCount) {
		t.Fatalf("Expected ErrSegmentCount, got %v", err)
	}
	if backend.deleteCalls != 1 {
		t.Errorf("Expected delete to be attempted after count failure, got %d calls", backend.deleteCalls)
	}
}

func TestWithSegmentReportsDeleteFailure(t *testing.T) {
	backend := &segmentServer{failDelete: true}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	err := client.WithSegment(context.Background(), json.Number("42"), []string{"a@example.com"},
		func(ctx context.Context, users []User) error {
			return nil
		})
	if !errors.Is(err, ErrSegmentDelete) {
		t.Errorf("Expected ErrSegmentDelete on the success path, got %v", err)
	}
}
