package tasktransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/tasksvc"
)

type httpClient struct {
	t   *testing.T
	srv *httptest.Server
}

func newHTTPClient(t *testing.T) httpClient {
	srv := httptest.NewServer(NewHTTPHandler(newEndpoints(), testSecret, log.NewNopLogger()))
	t.Cleanup(srv.Close)
	return httpClient{t: t, srv: srv}
}

// do sends body to path and decodes the JSON reply into out when out is not
// nil. It returns the status code.
func (c httpClient) do(method, path, token, body string, out interface{}) int {
	c.t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, r)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.srv.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode reply: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type taskReply struct {
	Task  tasksvc.Task `json:"task"`
	Error string       `json:"error"`
}

type tasksReply struct {
	Tasks []tasksvc.Task `json:"tasks"`
}

type notesReply struct {
	Notes []tasksvc.Note `json:"notes"`
}

type resultReply struct {
	Result bool   `json:"result"`
	Error  string `json:"error"`
}

func TestHTTPTaskLifecycle(t *testing.T) {
	c := newHTTPClient(t)
	u1 := signToken(t, testSecret, "u1", time.Hour)
	u2 := signToken(t, testSecret, "u2", time.Hour)

	var created taskReply
	code := c.do("POST", "/tasks", u1, `{"title":"Buy milk","priority":"low","dueDate":"2030-01-02T09:00:00Z"}`, &created)
	if code != http.StatusOK {
		t.Fatalf("create: status %d (%s)", code, created.Error)
	}
	x := created.Task
	if x.ID == "" || x.UserID != "u1" || x.Completed || x.DueDate == nil {
		t.Fatalf("create: task = %+v", x)
	}

	var list tasksReply
	if code := c.do("GET", "/tasks", u1, "", &list); code != http.StatusOK {
		t.Fatalf("list: status %d", code)
	}
	if len(list.Tasks) != 1 || list.Tasks[0].ID != x.ID || list.Tasks[0].Completed {
		t.Fatalf("list u1 = %+v", list.Tasks)
	}

	list = tasksReply{}
	if code := c.do("GET", "/tasks", u2, "", &list); code != http.StatusOK || len(list.Tasks) != 0 {
		t.Fatalf("list u2: status %d, tasks %+v", code, list.Tasks)
	}

	var rej taskReply
	if code := c.do("POST", "/tasks/"+x.ID+"/notes", u2, `{"content":"2%  please"}`, &rej); code != http.StatusForbidden {
		t.Fatalf("note by u2: status %d, want 403", code)
	}
	if rej.Error == "" {
		t.Fatalf("note by u2: empty error body")
	}

	if code := c.do("POST", "/tasks/"+x.ID+"/notes", u1, `{"content":"2% please"}`, nil); code != http.StatusOK {
		t.Fatalf("note by u1: status %d", code)
	}

	var patched taskReply
	if code := c.do("PATCH", "/tasks/"+x.ID, u1, `{"completed":true}`, &patched); code != http.StatusOK {
		t.Fatalf("patch: status %d (%s)", code, patched.Error)
	}
	if !patched.Task.Completed || patched.Task.Title != "Buy milk" || patched.Task.Priority != tasksvc.PriorityLow {
		t.Fatalf("patch: task = %+v", patched.Task)
	}

	var got taskReply
	if code := c.do("GET", "/tasks/"+x.ID, u1, "", &got); code != http.StatusOK || !got.Task.Completed {
		t.Fatalf("get: status %d, task %+v", code, got.Task)
	}

	var removed resultReply
	if code := c.do("DELETE", "/tasks/"+x.ID, u1, "", &removed); code != http.StatusOK || !removed.Result {
		t.Fatalf("delete: status %d, reply %+v", code, removed)
	}

	var notes notesReply
	if code := c.do("GET", "/tasks/"+x.ID+"/notes", u1, "", &notes); code != http.StatusOK {
		t.Fatalf("notes: status %d", code)
	}
	if notes.Notes == nil || len(notes.Notes) != 0 {
		t.Fatalf("notes after delete = %#v, want []", notes.Notes)
	}

	if code := c.do("DELETE", "/tasks/"+x.ID, u1, "", nil); code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", code)
	}
}

func TestHTTPAnonymous(t *testing.T) {
	c := newHTTPClient(t)
	other := signToken(t, []byte("some-other-secret"), "u1", time.Hour)
	expired := signToken(t, testSecret, "u1", -time.Minute)

	for name, token := range map[string]string{
		"no token":      "",
		"garbage":       "not-a-jwt",
		"wrong secret":  other,
		"expired token": expired,
	} {
		t.Run(name, func(t *testing.T) {
			var list tasksReply
			if code := c.do("GET", "/tasks", token, "", &list); code != http.StatusOK {
				t.Fatalf("list: status %d, want 200", code)
			}
			if list.Tasks == nil || len(list.Tasks) != 0 {
				t.Fatalf("list = %#v, want []", list.Tasks)
			}

			if code := c.do("POST", "/tasks", token, `{"title":"t","priority":"low"}`, nil); code != http.StatusUnauthorized {
				t.Fatalf("create: status %d, want 401", code)
			}
		})
	}
}

func TestHTTPBodyValidation(t *testing.T) {
	c := newHTTPClient(t)
	u1 := signToken(t, testSecret, "u1", time.Hour)

	var created taskReply
	if code := c.do("POST", "/tasks", u1, `{"title":"t","priority":"high"}`, &created); code != http.StatusOK {
		t.Fatalf("create: status %d", code)
	}
	taskPath := "/tasks/" + created.Task.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"malformed json", "POST", "/tasks", `{"title":`},
		{"missing priority", "POST", "/tasks", `{"title":"t"}`},
		{"missing title", "POST", "/tasks", `{"priority":"low"}`},
		{"unknown priority", "POST", "/tasks", `{"title":"t","priority":"urgent"}`},
		{"bad due date", "POST", "/tasks", `{"title":"t","priority":"low","dueDate":"tomorrow"}`},
		{"unknown field", "POST", "/tasks", `{"title":"t","priority":"low","owner":"u2"}`},
		{"wrong type", "PATCH", taskPath, `{"completed":"yes"}`},
		{"patch unknown priority", "PATCH", taskPath, `{"priority":"urgent"}`},
		{"note without content", "POST", taskPath + "/notes", `{}`},
		{"bad status filter", "GET", "/tasks?status=done", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reply taskReply
			if code := c.do(tt.method, tt.path, u1, tt.body, &reply); code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", code)
			}
			if !strings.Contains(reply.Error, tasksvc.ErrInvalidArgument.Error()) {
				t.Fatalf("error = %q", reply.Error)
			}
		})
	}
}

func TestHTTPEmptyTitleAccepted(t *testing.T) {
	c := newHTTPClient(t)
	u1 := signToken(t, testSecret, "u1", time.Hour)

	var created taskReply
	if code := c.do("POST", "/tasks", u1, `{"title":"","priority":"medium"}`, &created); code != http.StatusOK {
		t.Fatalf("create: status %d (%s)", code, created.Error)
	}
	if created.Task.Title != "" {
		t.Fatalf("title = %q", created.Task.Title)
	}
}

func TestHTTPListFilters(t *testing.T) {
	c := newHTTPClient(t)
	u1 := signToken(t, testSecret, "u1", time.Hour)

	for i, p := range []string{"low", "high", "medium"} {
		body := fmt.Sprintf(`{"title":"t%d","priority":%q}`, i, p)
		if code := c.do("POST", "/tasks", u1, body, nil); code != http.StatusOK {
			t.Fatalf("create %s: status %d", p, code)
		}
	}

	var list tasksReply
	if code := c.do("GET", "/tasks?sort=priority", u1, "", &list); code != http.StatusOK {
		t.Fatalf("list: status %d", code)
	}
	var got []tasksvc.Priority
	for _, task := range list.Tasks {
		got = append(got, task.Priority)
	}
	want := []tasksvc.Priority{tasksvc.PriorityHigh, tasksvc.PriorityMedium, tasksvc.PriorityLow}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("sort=priority = %v, want %v", got, want)
	}

	list = tasksReply{}
	if code := c.do("GET", "/tasks?priority=low", u1, "", &list); code != http.StatusOK {
		t.Fatalf("list: status %d", code)
	}
	if len(list.Tasks) != 1 || list.Tasks[0].Priority != tasksvc.PriorityLow {
		t.Fatalf("priority=low = %+v", list.Tasks)
	}
}

func TestHTTPDeleteNote(t *testing.T) {
	c := newHTTPClient(t)
	u1 := signToken(t, testSecret, "u1", time.Hour)
	u2 := signToken(t, testSecret, "u2", time.Hour)

	var created taskReply
	if code := c.do("POST", "/tasks", u1, `{"title":"t","priority":"low"}`, &created); code != http.StatusOK {
		t.Fatalf("create: status %d", code)
	}

	var note struct {
		Note tasksvc.Note `json:"note"`
	}
	if code := c.do("POST", "/tasks/"+created.Task.ID+"/notes", u1, `{"content":"n"}`, &note); code != http.StatusOK {
		t.Fatalf("create note: status %d", code)
	}

	if code := c.do("DELETE", "/notes/"+note.Note.ID, "", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous delete: status %d, want 401", code)
	}
	if code := c.do("DELETE", "/notes/"+note.Note.ID, u2, "", nil); code != http.StatusForbidden {
		t.Fatalf("u2 delete: status %d, want 403", code)
	}
	if code := c.do("DELETE", "/notes/"+note.Note.ID, u1, "", nil); code != http.StatusOK {
		t.Fatalf("u1 delete: status %d", code)
	}
	if code := c.do("DELETE", "/notes/"+note.Note.ID, u1, "", nil); code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", code)
	}
}

func TestErr2Code(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{tasksvc.ErrUnauthenticated, http.StatusUnauthorized},
		{tasksvc.ErrForbidden, http.StatusForbidden},
		{tasksvc.ErrTaskNotFound, http.StatusNotFound},
		{tasksvc.ErrNoteNotFound, http.StatusNotFound},
		{fmt.Errorf("priority %q: %w", "x", tasksvc.ErrInvalidArgument), http.StatusBadRequest},
		{errors.New("database is locked"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := err2code(tt.err); got != tt.want {
			t.Fatalf("err2code(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
