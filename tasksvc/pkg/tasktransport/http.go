package tasktransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/tasknotes/tasksvc"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/taskendpoint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPHandler mounts the task and note endpoints. Bearer tokens signed
// with secret identify the caller; requests without one are anonymous.
func NewHTTPHandler(endpoints taskendpoint.Set, secret []byte, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(kitjwt.HTTPToContext()),
	}

	identify := Identify(secret)
	serve := func(e endpoint.Endpoint, dec httptransport.DecodeRequestFunc) http.Handler {
		return httptransport.NewServer(identify(e), dec, encodeHTTPGenericResponse, options...)
	}

	r := mux.NewRouter()

	r.Methods("GET").Path("/tasks").Handler(serve(endpoints.TasksEndpoint, decodeHTTPTasksRequest))
	r.Methods("POST").Path("/tasks").Handler(serve(endpoints.CreateTaskEndpoint, decodeHTTPCreateTaskRequest))
	r.Methods("GET").Path("/tasks/{task_id}").Handler(serve(endpoints.TaskEndpoint, decodeHTTPTaskRequest))
	r.Methods("PATCH").Path("/tasks/{task_id}").Handler(serve(endpoints.UpdateTaskEndpoint, decodeHTTPUpdateTaskRequest))
	r.Methods("DELETE").Path("/tasks/{task_id}").Handler(serve(endpoints.DeleteTaskEndpoint, decodeHTTPDeleteTaskRequest))
	r.Methods("GET").Path("/tasks/{task_id}/notes").Handler(serve(endpoints.NotesEndpoint, decodeHTTPNotesRequest))
	r.Methods("POST").Path("/tasks/{task_id}/notes").Handler(serve(endpoints.CreateNoteEndpoint, decodeHTTPCreateNoteRequest))
	r.Methods("DELETE").Path("/notes/{note_id}").Handler(serve(endpoints.DeleteNoteEndpoint, decodeHTTPDeleteNoteRequest))
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	return r
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err2code(err))
	json.NewEncoder(w).Encode(errorWrapper{Error: err.Error()})
}

type errorWrapper struct {
	Error string `json:"error"`
}

func err2code(err error) int {
	switch {
	case errors.Is(err, tasksvc.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, tasksvc.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, tasksvc.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tasksvc.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeHTTPTasksRequest(_ context.Context, r *http.Request) (interface{}, error) {
	q := r.URL.Query()
	return taskendpoint.TasksRequest{
		Options: tasksvc.ListOptions{
			Status:   tasksvc.StatusFilter(q.Get("status")),
			Priority: tasksvc.Priority(q.Get("priority")),
			SortBy:   tasksvc.SortKey(q.Get("sort")),
		},
	}, nil
}

func decodeHTTPCreateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req taskendpoint.CreateTaskRequest
	if err := decodeBody(r, createTaskBody, &req); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeHTTPTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, ok := mux.Vars(r)["task_id"]
	if !ok {
		return nil, ErrBadRouting
	}
	return taskendpoint.TaskRequest{TaskID: taskID}, nil
}

func decodeHTTPUpdateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, ok := mux.Vars(r)["task_id"]
	if !ok {
		return nil, ErrBadRouting
	}

	var req taskendpoint.UpdateTaskRequest
	if err := decodeBody(r, updateTaskBody, &req); err != nil {
		return nil, err
	}
	req.TaskID = taskID

	return req, nil
}

func decodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, ok := mux.Vars(r)["task_id"]
	if !ok {
		return nil, ErrBadRouting
	}
	return taskendpoint.DeleteTaskRequest{TaskID: taskID}, nil
}

func decodeHTTPNotesRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, ok := mux.Vars(r)["task_id"]
	if !ok {
		return nil, ErrBadRouting
	}
	return taskendpoint.NotesRequest{TaskID: taskID}, nil
}

func decodeHTTPCreateNoteRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, ok := mux.Vars(r)["task_id"]
	if !ok {
		return nil, ErrBadRouting
	}

	var req taskendpoint.CreateNoteRequest
	if err := decodeBody(r, createNoteBody, &req); err != nil {
		return nil, err
	}
	req.TaskID = taskID

	return req, nil
}

func decodeHTTPDeleteNoteRequest(_ context.Context, r *http.Request) (interface{}, error) {
	noteID, ok := mux.Vars(r)["note_id"]
	if !ok {
		return nil, ErrBadRouting
	}
	return taskendpoint.DeleteNoteRequest{NoteID: noteID}, nil
}

// ErrBadRouting is returned when an expected path variable is missing.
// It always indicates programmer error.
var ErrBadRouting = errors.New("inconsistent mapping between route and handler (programmer error)")

func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}
