package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestEditOriginal(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("", srv.URL)
	if err := c.EditOriginal(context.Background(), "app-1", "tok-abc", "all done"); err != nil {
		t.Fatalf("EditOriginal: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", gotMethod)
	}
	if gotPath != "/webhooks/app-1/tok-abc/messages/@original" {
		t.Errorf("path = %s", gotPath)
	}
	if gotBody["content"] != "all done" {
		t.Errorf("content = %q, want all done", gotBody["content"])
	}
}

func TestEditOriginal_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("", srv.URL)
	if err := c.EditOriginal(context.Background(), "app", "tok", "hi"); err != nil {
		t.Fatalf("EditOriginal: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestEditOriginal_NonRetryableError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"Unknown Webhook"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("", srv.URL)
	err := c.EditOriginal(context.Background(), "app", "tok", "hi")
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 404)", got)
	}
}

func TestRegisterCommands(t *testing.T) {
	var gotPath, gotAuth string
	var gotCmds []Command

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotCmds); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cmds := []Command{
		{Name: "ask", Description: "Ask about feedback", Options: []CommandOption{
			{Type: OptionTypeString, Name: "query", Description: "What to ask", Required: true},
		}},
		{Name: "digest", Description: "Daily digest"},
	}

	c := NewClientWithBaseURL("bot-token", srv.URL)
	if err := c.RegisterCommands(context.Background(), "app-9", cmds); err != nil {
		t.Fatalf("RegisterCommands: %v", err)
	}

	if gotPath != "/applications/app-9/commands" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "Bot bot-token" {
		t.Errorf("Authorization = %q, want Bot bot-token", gotAuth)
	}
	if len(gotCmds) != 2 || gotCmds[0].Name != "ask" {
		t.Errorf("registered commands = %+v", gotCmds)
	}
	if len(gotCmds[0].Options) != 1 || !gotCmds[0].Options[0].Required {
		t.Errorf("ask options = %+v, want one required option", gotCmds[0].Options)
	}
}
