package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

var baseURL = &url.URL{Scheme: "http", Host: "example.com", Path: "/"}

// TestNewClient confirms that a client can be created with the default baseURL
// and default User-Agent.
func TestNewClient(t *testing.T) {
	c := NewClient(baseURL, nil)

	if c.BaseURL.String() != baseURL.String() {
		t.Errorf("NewClient BaseURL is %v, expected %v", c.BaseURL, baseURL)
	}
	if c.userAgent != userAgent {
		t.Errorf("NewClient User-Agent is %v, expected %v", c.userAgent, userAgent)
	}
}

// TestNewRequest confirms that NewRequest returns an API request with the
// correct URL, a correctly encoded body and the correct headers set.
func TestNewRequest(t *testing.T) {
	c := NewClient(baseURL, nil)
	c.SetHeader("apikey", "anon-key")

	type workoutBody struct {
		ID          string `json:"id"`
		Date        string `json:"date"`
		DurationMin int    `json:"duration_min"`
	}

	t.Run("valid request", func(tc *testing.T) {
		inURL, outURL := "rest/v1/workouts", baseURL.String()+"rest/v1/workouts"
		inBody, outBody := &workoutBody{
			ID: "w1", Date: "2024-01-01", DurationMin: 45,
		}, `{"id":"w1","date":"2024-01-01","duration_min":45}`+"\n"

		req, err := c.NewRequest(context.Background(), "POST", inURL, inBody)
		if err != nil {
			tc.Errorf("Unexpected error: %s", err)
		}
		if req.URL.String() != outURL {
			tc.Errorf("Expecting URL %v, got %v", outURL, req.URL.String())
		}

		body, _ := io.ReadAll(req.Body)
		if string(body) != outBody {
			tc.Errorf("Expecting body %v, got %v", outBody, string(body))
		}
		if req.Header.Get("User-Agent") != userAgent {
			tc.Errorf("Expecting User-Agent %v, got %v", userAgent, req.Header.Get("User-Agent"))
		}
		if req.Header.Get("Content-Type") != "application/json" {
			tc.Errorf("Expecting Content-Type %v, got %v", "application/json", req.Header.Get("Content-Type"))
		}
		if req.Header.Get("apikey") != "anon-key" {
			tc.Errorf("Expecting apikey header %v, got %v", "anon-key", req.Header.Get("apikey"))
		}
	})

	t.Run("request with invalid JSON", func(tc *testing.T) {
		type T struct{ A map[interface{}]interface{} }
		_, err := c.NewRequest(context.Background(), "GET", ".", &T{})
		if err == nil {
			tc.Error("Expected error")
		}
	})

	t.Run("request with an invalid URL", func(tc *testing.T) {
		_, err := c.NewRequest(context.Background(), "GET", ":", nil)
		if err == nil {
			tc.Error("Expected error")
		}
	})

	t.Run("request with an empty body", func(tc *testing.T) {
		req, err := c.NewRequest(context.Background(), "GET", ".", nil)
		if err != nil {
			tc.Error("Unexpected error")
		}
		if req.Body != nil {
			tc.Error("Expected nil body")
		}
	})
}

// TestDo confirms that Do returns a JSON decoded value when making a request,
// treats non-2xx responses as errors and honours context cancellation.
func TestDo(t *testing.T) {
	t.Run("successful GET request", func(tc *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		type foo struct{ A string }

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("Expected GET, got %s", r.Method)
			}
			fmt.Fprint(w, `{"A":"a"}`)
		})

		want := &foo{"a"}
		got := new(foo)

		req, _ := client.NewRequest(context.Background(), "GET", ".", nil)
		client.Do(req, got) //nolint:errcheck,bodyclose // we don't care about this in tests

		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expecting %v, got %v", want, got)
		}
	})

	t.Run("GET request that returns an HTTP error", func(tc *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		req, _ := client.NewRequest(context.Background(), "GET", ".", nil)
		resp, err := client.Do(req, nil) //nolint:bodyclose // we don't care about this in tests

		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("Expecting status code %v, got %v", http.StatusInternalServerError, resp.StatusCode)
		}
		if err == nil {
			t.Errorf("Expected error")
		}
	})

	t.Run("request that receives an empty payload", func(tc *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		type foo struct{ A string }

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// PostgREST-style 204 on writes
			w.WriteHeader(http.StatusNoContent)
		})

		req, _ := client.NewRequest(context.Background(), "PATCH", ".", nil)
		got := new(foo)
		resp, err := client.Do(req, got) //nolint:bodyclose // we don't care about this in tests

		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("Expecting status code %v, got %v", http.StatusNoContent, resp.StatusCode)
		}
		if err != nil {
			t.Error("Unexpected error")
		}
	})

	t.Run("GET request on a cancelled context", func(tc *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req, _ := client.NewRequest(ctx, "GET", ".", nil)

		resp, err := client.Do(req, nil) //nolint:bodyclose // we don't care about this in tests

		if err == nil {
			t.Error("Expected error")
		}
		if resp != nil {
			t.Error("Expected nil response")
		}
	})
}

// setup establishes a test Server that can be used to provide mock responses during testing.
// It returns a pointer to a client, a mux and a teardown function that
// must be called when testing is complete.
func setup() (client *Client, mux *http.ServeMux, teardown func()) {
	mux = http.NewServeMux()
	server := httptest.NewServer(mux)

	surl, _ := url.Parse(server.URL + "/")
	c := NewClient(surl, nil)

	return c, mux, server.Close
}
