// Command stub-api serves hardcoded stand-ins for the CrossEngage API, the
// CrossEngage UI API, the tracking webhook, and the SendGrid v3 suppression
// API, so both pipelines can be exercised locally without credentials.
//
// Point the pipelines at it with:
//
//	XNG_API_BASE_URL=http://localhost:8899
//	XNG_UI_BASE_URL=http://localhost:8899/ui
//	XNG_TRACKING_BASE_URL=http://localhost:8899
//	SENDGRID_BASE_URL=http://localhost:8899/v3
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type stub struct {
	mu            sync.Mutex
	nextSegmentID int64
	optedOut      map[string]bool
}

func main() {
	log.Println("Starting stub API (hardcoded responses, local testing only)...")

	port := os.Getenv("STUB_PORT")
	if port == "" {
		port = "8899"
	}

	s := &stub{nextSegmentID: 9000, optedOut: map[string]bool{}}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Link"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy", "service": "crossengage-ops-stub"})
	})

	// CrossEngage UI API
	r.Route("/ui", func(r chi.Router) {
		r.Post("/managers/companies", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, []int64{1})
		})
		r.Post("/managers/login", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]string{"token": "stub-ui-token"})
		})
		r.Get("/campaigns", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, []map[string]interface{}{
				{"id": 100, "name": "Welcome Series"},
				{"id": 101, "name": "Winback"},
			})
		})
		r.Get("/campaign/{id}/stats", s.campaignStats)
		r.Get("/campaigns/event-classes", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]interface{}{
				"properties": []map[string]interface{}{
					{"id": 7, "label": "traits.firstName"},
					{"id": 42, "label": "traits.email"},
				},
			})
		})
		r.Post("/campaigns/filters", s.createSegment)
		r.Get("/filters/{id}/count", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]int{"total": 2})
		})
		r.Get("/userexplorer/{id}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]interface{}{
				"part": []map[string]string{
					{"xngGlobalUserId": "xng-u-1", "externalId": "ext-1", "email": "alice@example.com"},
					{"xngGlobalUserId": "xng-u-2", "externalId": "", "email": "bob@example.com"},
				},
			})
		})
		r.Delete("/filters/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	// CrossEngage statistics/users API
	r.Get("/statistics/kpi", func(w http.ResponseWriter, _ *http.Request) {
		kpis := []string{"Sent", "Delivered", "Viewed", "Clicked", "Unique Viewed", "Unique Clicked",
			"Soft Bounced", "Hard Bounced", "Marked as Spam", "Unsubscribed", "Internal Metric"}
		defs := make([]map[string]interface{}, 0, len(kpis))
		for i, name := range kpis {
			defs = append(defs, map[string]interface{}{"id": i + 1, "name": name})
		}
		writeJSON(w, defs)
	})
	r.Get("/users/{externalId}/recipient-status", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, map[string]bool{"optOutAll": s.optedOut[chi.URLParam(req, "externalId")]})
	})
	r.Put("/users/{externalId}/optout-status", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.optedOut[chi.URLParam(req, "externalId")] = true
		s.mu.Unlock()
		writeJSON(w, map[string]bool{"optOut": true})
	})

	// Tracking webhook
	r.Get("/optout/inbound/webhook/{trackingKey}/{userId}", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(w, "opted out %s\n", chi.URLParam(req, "userId"))
	})

	// SendGrid v3 suppression API, two pages to exercise pagination
	r.Get("/v3/suppression/unsubscribes", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("offset") == "0" || req.URL.Query().Get("offset") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/v3/suppression/unsubscribes?limit=500&offset=500>; rel="next"`, req.Host))
			writeJSON(w, []map[string]interface{}{
				{"created": 1704067200, "email": "alice@example.com"},
				{"created": 1704067300, "email": "bob@example.com"},
			})
			return
		}
		writeJSON(w, []map[string]interface{}{
			{"created": 1704067400, "email": "alice@example.com"},
		})
	})

	addr := ":" + port
	log.Printf("stub API listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("stub API failed: %v", err)
	}
}

func (s *stub) campaignStats(w http.ResponseWriter, req *http.Request) {
	date := req.URL.Query().Get("startDate")
	if len(date) < 10 {
		date = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	} else {
		date = date[:10]
	}
	writeJSON(w, map[string]interface{}{
		"history": map[string]interface{}{
			date + "T00:00:00.000Z": []map[string]interface{}{
				{"id": "m1", "values": map[string]interface{}{"1": 1000, "2": 970, "3": 210}},
				{"id": "m2", "values": map[string]interface{}{"1": 500, "10": 3}},
			},
		},
		"description": map[string]interface{}{
			"m1": map[string]string{"name": "Welcome Mail", "channelType": "email"},
			"m2": map[string]string{"name": "Welcome Push", "channelType": "push"},
		},
	})
}

func (s *stub) createSegment(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.nextSegmentID++
	id := s.nextSegmentID
	s.mu.Unlock()
	writeJSON(w, map[string]int64{"id": id})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
